package solver

import (
	"context"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// LBFGS minimizes the smooth objectives (no penalty or L2) with the
// limited-memory BFGS method from gonum/optimize. The L1 penalty is not
// differentiable at zero and is rejected.
type LBFGS struct {
	MaxIter int
	GradTol float64
}

// Name implements Solver.
func (LBFGS) Name() string { return "lbfgs" }

// Minimize implements Solver.
func (l LBFGS) Minimize(ctx context.Context, obj Objective) (beta *mat.VecDense, err error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if obj.Penalty == L1 {
		return nil, errors.NewSolverError(l.Name(), "l1 penalty is not differentiable", 0, nil)
	}

	settings := &optimize.Settings{
		MajorIterations:   l.MaxIter,
		GradientThreshold: l.GradTol,
		Recorder:          contextRecorder{ctx: ctx},
	}
	if settings.MajorIterations <= 0 {
		settings.MajorIterations = DefaultMaxIter
	}
	if settings.GradientThreshold <= 0 {
		settings.GradientThreshold = 1e-10
	}

	_, p := obj.X.Dims()
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return obj.Value(mat.NewVecDense(len(x), x))
		},
		Grad: func(grad, x []float64) {
			obj.gradient(grad, x)
		},
	}

	var result *optimize.Result
	err = errors.SafeSolve(l.Name(), func() error {
		var runErr error
		result, runErr = optimize.Minimize(problem, make([]float64, p), settings, &optimize.LBFGS{})
		return runErr
	})
	if ctx.Err() != nil {
		return nil, interrupted(ctx, l.Name(), 0)
	}
	if err != nil {
		var se *errors.SolverError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, errors.NewSolverError(l.Name(), "optimization failed", 0, err)
	}

	iters := result.Stats.MajorIterations
	switch result.Status {
	case optimize.GradientThreshold, optimize.Success, optimize.MethodConverge:
	case optimize.FunctionConvergence, optimize.StepConvergence:
		// 目的関数は停滞したが勾配は閾値に達していない
		errors.Warn(errors.NewConvergenceWarning(l.Name(), iters, result.Status.String()))
	default:
		return nil, errors.NewSolverError(l.Name(), "terminated with status "+result.Status.String(), iters, nil)
	}

	return finish(l.Name(), mat.NewVecDense(p, result.X), iters)
}

// gradient は ∇ = (−2Xᵀ(y − Xβ) + 2λβ) / scale を grad に書き込む
func (o Objective) gradient(grad, x []float64) {
	beta := mat.NewVecDense(len(x), x)

	var r mat.VecDense
	r.MulVec(o.X, beta)
	r.SubVec(&r, o.Y)

	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(o.X.T(), &r)
	g.ScaleVec(2, g)
	if o.Penalty == L2 {
		g.AddScaledVec(g, 2*o.Lambda, beta)
	}
	g.ScaleVec(1/o.Scale(), g)
}

// contextRecorder は ctx がキャンセルされたら最適化を打ち切る
type contextRecorder struct {
	ctx context.Context
}

func (r contextRecorder) Init() error { return r.ctx.Err() }

func (r contextRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}
