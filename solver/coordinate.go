package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// CoordinateDescent minimizes the objective one coefficient at a time,
// cycling over features until the largest update in a sweep falls below
// Tol (relative to the largest coefficient). Under an L1 penalty each
// update is soft-thresholded, so unused features end at exactly zero, and
// the loop also stops once the duality gap is at most GapTol·‖Y‖².
//
// Updates run on the Gram matrix XᵀX, so a sweep costs O(p²) regardless of
// the number of samples.
type CoordinateDescent struct {
	MaxIter int
	Tol     float64
	GapTol  float64
}

// デフォルトの反復上限と許容誤差
const (
	DefaultMaxIter = 10000
	DefaultTol     = 1e-8
	DefaultGapTol  = 1e-4
)

// Name implements Solver.
func (CoordinateDescent) Name() string { return "coordinate_descent" }

// Minimize implements Solver.
func (cd CoordinateDescent) Minimize(ctx context.Context, obj Objective) (beta *mat.VecDense, err error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	if cd.MaxIter <= 0 {
		cd.MaxIter = DefaultMaxIter
	}
	if cd.Tol <= 0 {
		cd.Tol = DefaultTol
	}
	if cd.GapTol <= 0 {
		cd.GapTol = DefaultGapTol
	}

	var iterations int
	err = errors.SafeSolve(cd.Name(), func() error {
		beta, iterations, err = cd.run(ctx, obj)
		return err
	})
	if err != nil {
		return nil, err
	}
	return finish(cd.Name(), beta, iterations)
}

// gramState holds XᵀX, Xᵀy, ‖y‖² and the running correlation q = Xᵀr.
type gramState struct {
	gram mat.Dense
	xty  []float64
	yy   float64
	q    []float64
}

func newGramState(X *mat.Dense, y *mat.VecDense) *gramState {
	_, p := X.Dims()
	s := &gramState{xty: make([]float64, p), q: make([]float64, p)}
	s.gram.Mul(X.T(), X)

	xty := mat.NewVecDense(p, s.xty)
	xty.MulVec(X.T(), y)
	copy(s.q, s.xty)
	s.yy = mat.Dot(y, y)
	return s
}

// resync recomputes q = Xᵀy − XᵀXβ from scratch.
func (s *gramState) resync(beta []float64) {
	p := len(beta)
	q := mat.NewVecDense(p, s.q)
	q.MulVec(&s.gram, mat.NewVecDense(p, beta))
	for j := range s.q {
		s.q[j] = s.xty[j] - s.q[j]
	}
}

// dualityGap bounds ½‖r‖² + α‖β‖₁ minus its minimum from above, using the
// rescaled residual as the dual point.
func (s *gramState) dualityGap(beta []float64, alpha float64) float64 {
	var bc, bq, l1, qmax float64
	for j, b := range beta {
		bc += b * s.xty[j]
		bq += b * s.q[j]
		l1 += math.Abs(b)
		qmax = math.Max(qmax, math.Abs(s.q[j]))
	}
	// ‖r‖² = ‖y‖² − βᵀXᵀy − βᵀXᵀr, rᵀy = ‖y‖² − βᵀXᵀy
	rr := math.Max(s.yy-bc-bq, 0)
	ry := s.yy - bc

	scale := 1.0
	if qmax > alpha {
		scale = alpha / qmax
	}
	return 0.5*rr*(1+scale*scale) + alpha*l1 - scale*ry
}

func (cd CoordinateDescent) run(ctx context.Context, obj Objective) (*mat.VecDense, int, error) {
	_, p := obj.X.Dims()
	st := newGramState(obj.X, obj.Y)
	g := st.gram.RawMatrix()

	// ½‖r‖² + α‖β‖₁ の α
	alpha := obj.Lambda / 2
	useGap := obj.Penalty == L1 && alpha > 0

	beta := make([]float64, p)
	for iter := 1; iter <= cd.MaxIter; iter++ {
		if ctx.Err() != nil {
			return nil, iter - 1, interrupted(ctx, cd.Name(), iter-1)
		}

		var maxDelta, maxBeta float64
		for j := 0; j < p; j++ {
			gjj := g.Data[j*g.Stride+j]
			if gjj == 0 {
				continue
			}

			// ρ_j = X_jᵀ(r + X_j β_j)
			old := beta[j]
			rho := st.q[j] + gjj*old

			var next float64
			switch obj.Penalty {
			case L1:
				next = softThreshold(rho, alpha) / gjj
			case L2:
				next = rho / (gjj + obj.Lambda)
			default:
				next = rho / gjj
			}

			if delta := next - old; delta != 0 {
				// XᵀX は対称なので j 行目を j 列目として使う
				row := g.Data[j*g.Stride : j*g.Stride+p]
				for k, v := range row {
					st.q[k] -= v * delta
				}
				maxDelta = math.Max(maxDelta, math.Abs(delta))
			}
			beta[j] = next
			maxBeta = math.Max(maxBeta, math.Abs(next))
		}

		if err := errors.CheckScalar(cd.Name(), maxDelta, iter); err != nil {
			return nil, iter, errors.NewSolverError(cd.Name(), "diverged", iter, err)
		}
		if maxDelta <= cd.Tol*math.Max(1, maxBeta) {
			return mat.NewVecDense(p, beta), iter, nil
		}
		if useGap && st.dualityGap(beta, alpha) <= cd.GapTol*st.yy {
			// 累積した丸め誤差を除いてから確定する
			st.resync(beta)
			if st.dualityGap(beta, alpha) <= cd.GapTol*st.yy {
				return mat.NewVecDense(p, beta), iter, nil
			}
		}
	}

	return nil, cd.MaxIter, errors.NewSolverError(cd.Name(), "did not converge", cd.MaxIter, nil)
}

// softThreshold は S(z, γ) = sign(z)·max(|z| − γ, 0)
func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}
