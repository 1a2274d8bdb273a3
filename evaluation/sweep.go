package evaluation

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/geofit/core/parallel"
	"github.com/YuminosukeSato/geofit/dataset"
	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/modelselection"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
)

// SweepPoint is the holdout result of one lambda candidate.
type SweepPoint struct {
	Lambda   float64
	TrainMSE float64
	TestMSE  float64
	NonZero  int
}

// SweepResult is the outcome of a lambda sweep for one target.
type SweepResult struct {
	RunID  string
	Target dataset.Target
	Kind   linear.Kind
	Points []SweepPoint
	Best   SweepPoint
}

// BestLambda returns the point with the smallest test error. Ties keep the
// earliest point.
func BestLambda(points []SweepPoint) (SweepPoint, error) {
	if len(points) == 0 {
		return SweepPoint{}, errors.NewEmptyInputError("evaluation.BestLambda")
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.TestMSE < best.TestMSE {
			best = p
		}
	}
	return best, nil
}

// LogSpace returns n candidates spaced evenly in log space from lo to hi,
// both included.
func LogSpace(lo, hi float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, errors.NewValidationError("n", "must be at least 1", n)
	}
	if !(lo > 0) || !(hi > 0) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, errors.NewValidationError("lambda range", "bounds must be finite and > 0", [2]float64{lo, hi})
	}
	if n == 1 {
		return []float64{lo}, nil
	}
	out := floats.LogSpan(make([]float64, n), lo, hi)
	out[0], out[n-1] = lo, hi
	return out, nil
}

func validateLambdas(lambdas []float64) error {
	if len(lambdas) == 0 {
		return errors.NewEmptyInputError("evaluation.SweepLambda")
	}
	for _, l := range lambdas {
		if math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
			return errors.NewValidationError("lambda", "candidates must be finite and >= 0", l)
		}
	}
	return nil
}

// SweepLambda evaluates every candidate on the same holdout split and
// selects the one with the smallest test error. All candidates are
// evaluated; the first failure aborts the sweep.
func (e *Evaluator) SweepLambda(ctx context.Context, table *dataset.Table, target dataset.Target, kind linear.Kind, lambdas []float64) (*SweepResult, error) {
	if err := validateLambdas(lambdas); err != nil {
		return nil, err
	}

	split, err := modelselection.TrainTestSplit(table, target, e.trainFraction)
	if err != nil {
		return nil, err
	}

	logger, runID := e.runLogger(log.OperationSweep)
	logger = logger.With(log.TargetKey, target.String(), log.ModelNameKey, kind.String())
	start := time.Now()
	logger.Info("lambda sweep started",
		log.CandidatesKey, len(lambdas),
		log.SamplesKey, table.Rows(),
		log.FeaturesKey, table.NumFeatures(),
	)

	e.progress.Start("sweep "+target.String(), len(lambdas))
	defer e.progress.Finish()

	points := make([]SweepPoint, len(lambdas))
	err = parallel.Run(ctx, len(lambdas), e.parallelism, func(ctx context.Context, i int) error {
		f, err := e.fitSplit(ctx, split, FitSpec{Kind: kind, Lambda: lambdas[i]})
		if err != nil {
			return errors.Wrapf(err, "evaluation: %s sweep for %s at λ=%g", kind, target, lambdas[i])
		}
		points[i] = SweepPoint{
			Lambda:   lambdas[i],
			TrainMSE: f.trainMSE,
			TestMSE:  f.testMSE,
			NonZero:  f.coef.NonZero(),
		}

		logger.Debug("candidate evaluated",
			log.RegularizationKey, lambdas[i],
			log.TrainMSEKey, f.trainMSE,
			log.TestMSEKey, f.testMSE,
			log.NonZeroKey, points[i].NonZero,
		)
		e.progress.Increment()
		return nil
	})
	if err != nil {
		logger.Error("lambda sweep failed", log.ErrorKey, err)
		return nil, err
	}

	best, err := BestLambda(points)
	if err != nil {
		return nil, err
	}

	logger.Info("lambda sweep finished",
		log.RegularizationKey, best.Lambda,
		log.TestMSEKey, best.TestMSE,
		log.NonZeroKey, best.NonZero,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &SweepResult{RunID: runID, Target: target, Kind: kind, Points: points, Best: best}, nil
}
