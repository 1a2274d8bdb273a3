package evaluation

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/metrics"
	"github.com/YuminosukeSato/geofit/modelselection"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
)

// SplitResult is the outcome of one fit on a holdout split.
type SplitResult struct {
	RunID        string
	Target       dataset.Target
	Spec         FitSpec
	TrainSize    int
	TestSize     int
	TrainMSE     float64
	TestMSE      float64
	// TrainR2 and TestR2 are nil when the targets on that side have no
	// variance.
	TrainR2      *float64
	TestR2       *float64
	Coefficients *linear.Coefficients
}

// NonZero returns the number of non-zero coefficients of the fit.
func (r *SplitResult) NonZero() int {
	return r.Coefficients.NonZero()
}

// EvaluateSplit fits plain least squares on the leading train fraction of
// the table and reports the mean squared error on both sides.
func (e *Evaluator) EvaluateSplit(ctx context.Context, table *dataset.Table, target dataset.Target) (*SplitResult, error) {
	return e.EvaluateModel(ctx, table, target, FitSpec{Kind: linear.OLS})
}

// EvaluateModel is EvaluateSplit for an arbitrary model kind and
// regularization strength.
func (e *Evaluator) EvaluateModel(ctx context.Context, table *dataset.Table, target dataset.Target, spec FitSpec) (*SplitResult, error) {
	logger, runID := e.runLogger(log.OperationEvaluate)
	logger = logger.With(log.TargetKey, target.String(), log.ModelNameKey, spec.Kind.String(), log.RegularizationKey, spec.Lambda)
	start := time.Now()

	split, err := modelselection.TrainTestSplit(table, target, e.trainFraction)
	if err != nil {
		return nil, err
	}

	f, err := e.fitSplit(ctx, split, spec)
	if err != nil {
		logger.Error("holdout evaluation failed", log.ErrorKey, err)
		return nil, errors.Wrapf(err, "evaluation: %s holdout for %s", spec, target)
	}

	trainR2, err := r2(logger, "train", f.coef, split.XTrain, split.YTrain)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluation: train R² for %s", target)
	}
	testR2, err := r2(logger, "test", f.coef, split.XTest, split.YTest)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluation: test R² for %s", target)
	}

	res := &SplitResult{
		RunID:        runID,
		Target:       target,
		Spec:         spec,
		TrainSize:    split.TrainSize(),
		TestSize:     split.TestSize(),
		TrainMSE:     f.trainMSE,
		TestMSE:      f.testMSE,
		TrainR2:      trainR2,
		TestR2:       testR2,
		Coefficients: f.coef,
	}

	logger.Info("holdout evaluation finished",
		log.SamplesKey, table.Rows(),
		log.FeaturesKey, table.NumFeatures(),
		log.TrainMSEKey, res.TrainMSE,
		log.TestMSEKey, res.TestMSE,
		log.NonZeroKey, res.NonZero(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// r2 scores coef on one side of the split. Targets without variance leave
// R² undefined: that is logged and reported as nil.
func r2(logger log.Logger, side string, coef *linear.Coefficients, X *mat.Dense, y *mat.VecDense) (*float64, error) {
	pred, err := coef.Predict(X)
	if err != nil {
		return nil, err
	}
	v, err := metrics.R2Score(y, pred)
	if err != nil {
		var ve *errors.ValueError
		if errors.As(err, &ve) {
			logger.Warn("R² undefined, targets have no variance", log.PhaseKey, side, log.SamplesKey, y.Len())
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
