package solver

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// Auto picks Direct for the smooth objectives and CoordinateDescent for L1.
type Auto struct {
	CoordinateDescent CoordinateDescent
}

// Name implements Solver.
func (Auto) Name() string { return "auto" }

// Minimize implements Solver.
func (a Auto) Minimize(ctx context.Context, obj Objective) (*mat.VecDense, error) {
	return a.For(obj.Penalty).Minimize(ctx, obj)
}

// For returns the solver Auto delegates to for the given penalty.
func (a Auto) For(p Penalty) Solver {
	if p == L1 {
		return a.CoordinateDescent
	}
	return Direct{}
}

// Default returns the solver used when none is configured.
func Default() Solver {
	return Auto{}
}

// ByName resolves a solver from its name: "auto", "direct",
// "coordinate_descent" (or "cd") and "lbfgs".
func ByName(name string) (Solver, error) {
	switch name {
	case "", "auto":
		return Auto{}, nil
	case "direct":
		return Direct{}, nil
	case "coordinate_descent", "cd":
		return CoordinateDescent{}, nil
	case "lbfgs":
		return LBFGS{}, nil
	default:
		return nil, errors.NewValidationError("solver", "must be auto, direct, coordinate_descent or lbfgs", name)
	}
}

type timeoutSolver struct {
	Solver
	timeout time.Duration
}

// WithTimeout bounds every Minimize call of s by d. Running out of time is
// reported as a solver failure; cancellation of the caller's context is
// passed through unchanged. A non-positive d returns s.
func WithTimeout(s Solver, d time.Duration) Solver {
	if d <= 0 {
		return s
	}
	return &timeoutSolver{Solver: s, timeout: d}
}

func (t *timeoutSolver) Minimize(ctx context.Context, obj Objective) (*mat.VecDense, error) {
	fitCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	beta, err := t.Solver.Minimize(fitCtx, obj)
	if err != nil && ctx.Err() == nil && errors.Is(fitCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.NewSolverError(t.Name(), "timed out after "+t.timeout.String(), 0, err)
	}
	return beta, err
}
