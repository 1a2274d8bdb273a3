package evaluation

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/geofit/core/parallel"
	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/modelselection"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
)

// CVScores are the per-fold scores of one target.
type CVScores struct {
	Target       dataset.Target
	TrainScores  []float64
	TestScores   []float64
	MeanTrainMSE float64
	MeanTestMSE  float64
	StdTestMSE   float64
}

// CVResult is the outcome of k-fold cross-validation over every target of a
// table.
type CVResult struct {
	RunID   string
	K       int
	Spec    FitSpec
	Folds   []modelselection.Fold
	Targets []CVScores
}

// For returns the scores of target.
func (r *CVResult) For(target dataset.Target) (*CVScores, bool) {
	for i := range r.Targets {
		if r.Targets[i].Target == target {
			return &r.Targets[i], true
		}
	}
	return nil, false
}

// CrossValidate runs k-fold cross-validation with plain least squares.
func (e *Evaluator) CrossValidate(ctx context.Context, table *dataset.Table, k int) (*CVResult, error) {
	return e.CrossValidateModel(ctx, table, k, FitSpec{Kind: linear.OLS})
}

// CrossValidateModel runs k-fold cross-validation with the given model.
// Every fold fits each target independently. The mean errors are the fold
// errors summed in fold order and divided by k, whatever the parallelism.
func (e *Evaluator) CrossValidateModel(ctx context.Context, table *dataset.Table, k int, spec FitSpec) (*CVResult, error) {
	if table == nil {
		return nil, errors.NewEmptyInputError("evaluation.CrossValidate")
	}

	folds, err := modelselection.KFold{K: k}.Folds(table.Rows())
	if err != nil {
		return nil, err
	}

	logger, runID := e.runLogger(log.OperationCrossValidate)
	logger = logger.With(log.FoldsKey, k, log.ModelNameKey, spec.Kind.String(), log.RegularizationKey, spec.Lambda)
	start := time.Now()

	targets := table.Targets()
	train := make([][]float64, len(targets))
	test := make([][]float64, len(targets))
	for t := range targets {
		train[t] = make([]float64, k)
		test[t] = make([]float64, k)
	}

	logger.Info("cross-validation started",
		log.SamplesKey, table.Rows(),
		log.FeaturesKey, table.NumFeatures(),
		log.TargetsKey, len(targets),
	)

	e.progress.Start("cv", k*len(targets))
	defer e.progress.Finish()

	err = parallel.Run(ctx, k, e.parallelism, func(ctx context.Context, i int) error {
		fold := folds[i]
		for t, target := range targets {
			split, err := modelselection.KFoldSplit(table, target, k, i)
			if err != nil {
				return err
			}
			f, err := e.fitSplit(ctx, split, spec)
			if err != nil {
				return errors.Wrapf(err, "evaluation: %s for %s", fold, target)
			}
			train[t][i] = f.trainMSE
			test[t][i] = f.testMSE

			logger.Debug("fold finished",
				log.FoldKey, i,
				log.FoldStartKey, fold.Start,
				log.FoldEndKey, fold.End,
				log.TargetKey, target.String(),
				log.TrainMSEKey, f.trainMSE,
				log.TestMSEKey, f.testMSE,
			)
			e.progress.Increment()
		}
		return nil
	})
	if err != nil {
		logger.Error("cross-validation failed", log.ErrorKey, err)
		return nil, err
	}

	res := &CVResult{RunID: runID, K: k, Spec: spec, Folds: folds, Targets: make([]CVScores, len(targets))}
	for t, target := range targets {
		res.Targets[t] = CVScores{
			Target:       target,
			TrainScores:  train[t],
			TestScores:   test[t],
			MeanTrainMSE: foldMean(train[t]),
			MeanTestMSE:  foldMean(test[t]),
			StdTestMSE:   stat.StdDev(test[t], nil),
		}
		logger.Info("cross-validation finished",
			log.TargetKey, target.String(),
			log.TrainMSEKey, res.Targets[t].MeanTrainMSE,
			log.TestMSEKey, res.Targets[t].MeanTestMSE,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return res, nil
}

// foldMean sums in fold order and divides by the number of folds.
func foldMean(scores []float64) float64 {
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
