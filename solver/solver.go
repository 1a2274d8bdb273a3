// Package solver minimizes the least squares objectives used by the linear
// models: plain residual sum of squares, and the same with an L2 or L1
// penalty on the coefficients.
//
// Every solver reports failure (non-convergence, a non-finite solution, a
// timeout or a panic in the numeric backend) as an error matching
// errors.ErrSolverFailure.
package solver

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// Solver minimizes an Objective.
type Solver interface {
	// Name identifies the solver in errors and logs.
	Name() string
	// Minimize returns the coefficient vector minimizing obj.
	Minimize(ctx context.Context, obj Objective) (*mat.VecDense, error)
}

// Penalty is the regularization term added to the residual sum of squares.
type Penalty int

const (
	// None is plain least squares.
	None Penalty = iota
	// L2 adds λ‖β‖².
	L2
	// L1 adds λ‖β‖₁.
	L1
)

func (p Penalty) String() string {
	switch p {
	case None:
		return "none"
	case L2:
		return "l2"
	case L1:
		return "l1"
	default:
		return fmt.Sprintf("penalty(%d)", int(p))
	}
}

// Objective is (‖Y − Xβ‖² + λ·P(β)) / scale. scale is 1 for plain least
// squares and the number of samples when a penalty is present; it changes
// the value but never the minimizer.
type Objective struct {
	X       *mat.Dense
	Y       *mat.VecDense
	Penalty Penalty
	Lambda  float64
}

// Scale returns the normalizer applied to the objective value.
func (o Objective) Scale() float64 {
	if o.Penalty == None {
		return 1
	}
	r, _ := o.X.Dims()
	return float64(r)
}

// Value evaluates the objective at beta.
func (o Objective) Value(beta mat.Vector) float64 {
	var r mat.VecDense
	r.MulVec(o.X, beta)
	r.SubVec(o.Y, &r)
	v := mat.Dot(&r, &r)

	switch o.Penalty {
	case L2:
		v += o.Lambda * mat.Dot(beta, beta)
	case L1:
		v += o.Lambda * mat.Norm(beta, 1)
	}
	return v / o.Scale()
}

// Validate checks that the objective is well formed.
func (o Objective) Validate() error {
	const op = "solver.Objective"

	if o.X == nil || o.X.IsEmpty() || o.Y == nil || o.Y.IsEmpty() {
		return errors.NewEmptyInputError(op)
	}
	r, _ := o.X.Dims()
	if o.Y.Len() != r {
		return errors.NewDimensionError(op, r, o.Y.Len(), 0)
	}
	if o.Penalty < None || o.Penalty > L1 {
		return errors.NewValidationError("penalty", "unknown penalty", o.Penalty)
	}
	if math.IsNaN(o.Lambda) || math.IsInf(o.Lambda, 0) || o.Lambda < 0 {
		return errors.NewValidationError("lambda", "must be a finite value >= 0", o.Lambda)
	}
	return nil
}

// finish rejects non-finite solutions.
func finish(name string, beta *mat.VecDense, iterations int) (*mat.VecDense, error) {
	if err := errors.CheckNumericalStability(name, beta.RawVector().Data, iterations); err != nil {
		return nil, errors.NewSolverError(name, "non-finite solution", iterations, err)
	}
	return beta, nil
}

// interrupted converts a context error into the error a solver returns.
func interrupted(ctx context.Context, name string, iterations int) error {
	return errors.Wrapf(ctx.Err(), "solver %s interrupted after %d iterations", name, iterations)
}
