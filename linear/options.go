package linear

import (
	"github.com/YuminosukeSato/geofit/pkg/log"
	"github.com/YuminosukeSato/geofit/solver"
)

// DefaultLambda は Ridge と Lasso の既定の正則化強度
const DefaultLambda = 1.0

type options struct {
	solver solver.Solver
	lambda float64
	logger log.Logger
}

// Option is a function that configures an estimator
type Option func(*options)

// WithSolver sets the solver used by Fit
func WithSolver(s solver.Solver) Option {
	return func(o *options) {
		o.solver = s
	}
}

// WithLambda sets the regularization strength (ignored by LinearRegression)
func WithLambda(lambda float64) Option {
	return func(o *options) {
		o.lambda = lambda
	}
}

// WithLogger sets the logger
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{
		solver: solver.Default(),
		lambda: DefaultLambda,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("linear")
	}
	return o
}
