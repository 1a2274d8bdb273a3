package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// Direct solves the unpenalized and L2 problems in closed form.
//
// Plain least squares goes through a thin SVD and returns the minimum-norm
// solution when X is rank deficient, emitting an IllConditionedWarning.
// The L2 problem solves (XᵀX + λI)β = Xᵀy with a Cholesky factorization.
// L1 has no closed form and is rejected.
type Direct struct{}

// Name implements Solver.
func (Direct) Name() string { return "direct" }

// Minimize implements Solver.
func (d Direct) Minimize(ctx context.Context, obj Objective) (beta *mat.VecDense, err error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, interrupted(ctx, d.Name(), 0)
	}

	err = errors.SafeSolve(d.Name(), func() error {
		switch {
		case obj.Penalty == L1:
			return errors.NewSolverError(d.Name(), "l1 penalty has no closed form", 0, nil)
		case obj.Penalty == L2 && obj.Lambda > 0:
			beta, err = ridgeCholesky(d.Name(), obj.X, obj.Y, obj.Lambda)
		default:
			beta, err = leastSquaresSVD(d.Name(), obj.X, obj.Y)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return finish(d.Name(), beta, 0)
}

// leastSquaresSVD は特異値分解で最小ノルム最小二乗解を求める
func leastSquaresSVD(name string, X *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	n, p := X.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, errors.NewSolverError(name, "svd factorization failed", 0, errors.ErrSingularMatrix)
	}

	// numpy.linalg.lstsq と同じ相対しきい値
	rcond := float64(max(n, p)) * eps
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, errors.NewSolverError(name, "design matrix has rank 0", 0, errors.ErrSingularMatrix)
	}
	if rank < p {
		errors.Warn(errors.NewIllConditionedWarning(name, rank, p, n))
	}

	beta := mat.NewVecDense(p, nil)
	svd.SolveVecTo(beta, y, rank)
	return beta, nil
}

// ridgeCholesky は (XᵀX + λI)β = Xᵀy をコレスキー分解で解く
func ridgeCholesky(name string, X *mat.Dense, y *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	_, p := X.Dims()

	a := mat.NewSymDense(p, nil)
	a.SymOuterK(1, X.T())
	for i := 0; i < p; i++ {
		a.SetSym(i, i, a.At(i, i)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errors.NewSolverError(name, "XᵀX + λI is not positive definite", 0, errors.ErrSingularMatrix)
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	beta := mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, errors.NewSolverError(name, "cholesky solve failed", 0, err)
		}
		// 解は得られているが精度が低い
		errors.Warn(errors.NewConvergenceWarning(name, 0, err.Error()))
	}
	return beta, nil
}

var eps = math.Nextafter(1, 2) - 1
