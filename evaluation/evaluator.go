// Package evaluation runs the three evaluation protocols of geofit on a
// dataset.Table: a holdout split, k-fold cross-validation and a
// regularization strength sweep.
//
// An Evaluator holds configuration only. Each protocol call builds its own
// splits and fits, so calls are independent and may run concurrently.
package evaluation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/linear"
	"github.com/YuminosukeSato/geofit/metrics"
	"github.com/YuminosukeSato/geofit/modelselection"
	"github.com/YuminosukeSato/geofit/pkg/log"
	"github.com/YuminosukeSato/geofit/solver"
)

// FitSpec selects the model fitted inside a protocol.
type FitSpec struct {
	Kind   linear.Kind
	Lambda float64
}

func (s FitSpec) String() string {
	if s.Kind == linear.OLS {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(λ=%g)", s.Kind, s.Lambda)
}

// Progress receives one Increment per finished fit. Implementations must be
// safe for concurrent use when parallelism is above 1.
type Progress interface {
	Start(stage string, total int)
	Increment()
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Increment()        {}
func (nopProgress) Finish()           {}

// Evaluator runs evaluation protocols.
type Evaluator struct {
	solver        solver.Solver
	logger        log.Logger
	parallelism   int
	progress      Progress
	trainFraction float64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithSolver sets the solver used for every fit.
func WithSolver(s solver.Solver) Option {
	return func(e *Evaluator) {
		e.solver = s
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithParallelism bounds how many folds or lambda candidates are fitted at
// once. 1 (the default) is strictly sequential.
func WithParallelism(n int) Option {
	return func(e *Evaluator) {
		e.parallelism = n
	}
}

// WithProgress reports finished fits to p.
func WithProgress(p Progress) Option {
	return func(e *Evaluator) {
		e.progress = p
	}
}

// WithTrainFraction sets the share of leading rows used for training by the
// holdout protocols.
func WithTrainFraction(f float64) Option {
	return func(e *Evaluator) {
		e.trainFraction = f
	}
}

// New returns an Evaluator with the given options applied.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		solver:        solver.Default(),
		parallelism:   1,
		progress:      nopProgress{},
		trainFraction: modelselection.DefaultTrainFraction,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("evaluation")
	}
	if e.solver == nil {
		e.solver = solver.Default()
	}
	if e.progress == nil {
		e.progress = nopProgress{}
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	return e
}

// runLogger tags every record of one protocol call with a fresh run id.
func (e *Evaluator) runLogger(operation string) (log.Logger, string) {
	id := uuid.NewString()
	return e.logger.With(log.RunIDKey, id, log.OperationKey, operation, log.SolverKey, e.solver.Name()), id
}

// fitted is one fit on a split together with both mean squared errors.
type fitted struct {
	coef     *linear.Coefficients
	trainMSE float64
	testMSE  float64
}

func (e *Evaluator) fitSplit(ctx context.Context, split *modelselection.Split, spec FitSpec) (*fitted, error) {
	coef, err := linear.Fit(ctx, e.solver, spec.Kind, split.XTrain, split.YTrain, spec.Lambda)
	if err != nil {
		return nil, err
	}

	trainMSE, err := mse(coef, split.XTrain, split.YTrain)
	if err != nil {
		return nil, err
	}
	testMSE, err := mse(coef, split.XTest, split.YTest)
	if err != nil {
		return nil, err
	}
	return &fitted{coef: coef, trainMSE: trainMSE, testMSE: testMSE}, nil
}

func mse(coef *linear.Coefficients, X *mat.Dense, y *mat.VecDense) (float64, error) {
	pred, err := coef.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.MSE(y, pred)
}
