package solver

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// randomProblem returns X (n×p) with standard normal entries and y = Xβ + noise.
func randomProblem(seed uint64, n, p int, trueBeta []float64, noise float64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	y := mat.NewVecDense(n, nil)
	y.MulVec(X, mat.NewVecDense(p, trueBeta))
	for i := 0; i < n; i++ {
		y.SetVec(i, y.AtVec(i)+noise*rng.NormFloat64())
	}
	return X, y
}

// factorProblem returns X (n×p) driven by k shared latent factors plus
// small per-column noise, so the columns are strongly correlated and XᵀX is
// badly conditioned.
func factorProblem(seed uint64, n, p, k int, noise float64) (*mat.Dense, *mat.VecDense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	F := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for f := 0; f < k; f++ {
			F.Set(i, f, rng.NormFloat64())
		}
	}
	W := mat.NewDense(k, p, nil)
	for f := 0; f < k; f++ {
		for j := 0; j < p; j++ {
			W.Set(f, j, rng.NormFloat64())
		}
	}
	X := mat.NewDense(n, p, nil)
	X.Mul(F, W)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, X.At(i, j)+noise*rng.NormFloat64())
		}
		y.SetVec(i, 30+2*F.At(i, 0)-F.At(i, 1)+5*rng.NormFloat64())
	}
	return X, y
}

// orthonormalProblem has two unit-norm orthogonal columns, so the lasso
// solution is the soft-thresholded correlation Xᵀy.
func orthonormalProblem() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(4, 2, []float64{
		0.5, 0.5,
		0.5, -0.5,
		0.5, 0.5,
		0.5, -0.5,
	})
	y := mat.NewVecDense(4, []float64{3, 1, 2, 0})
	return X, y
}

func captureWarnings(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var got []error
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), got...)
	}
}

func TestObjectiveValue(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewVecDense(2, []float64{1, 1})
	beta := mat.NewVecDense(1, []float64{1})

	// 残差 (0, -1)
	assert.InDelta(t, 1.0, Objective{X: X, Y: y}.Value(beta), 1e-12)
	assert.InDelta(t, (1.0+3.0*1)/2, Objective{X: X, Y: y, Penalty: L2, Lambda: 3}.Value(beta), 1e-12)
	assert.InDelta(t, (1.0+3.0*1)/2, Objective{X: X, Y: y, Penalty: L1, Lambda: 3}.Value(mat.NewVecDense(1, []float64{1})), 1e-12)
	// β = -1 で残差 (2, 3)
	assert.InDelta(t, (13.0+0.5*1)/2, Objective{X: X, Y: y, Penalty: L1, Lambda: 0.5}.Value(mat.NewVecDense(1, []float64{-1})), 1e-12)
}

func TestObjectiveValidate(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	assert.NoError(t, Objective{X: X, Y: y, Penalty: L2, Lambda: 1}.Validate())

	err := Objective{X: X, Y: y, Penalty: L2, Lambda: -1}.Validate()
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))

	err = Objective{X: X, Y: y, Penalty: L1, Lambda: math.NaN()}.Validate()
	assert.True(t, errors.As(err, &ve))

	err = Objective{X: X, Y: mat.NewVecDense(2, []float64{1, 2})}.Validate()
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	err = Objective{X: &mat.Dense{}, Y: y}.Validate()
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
}

func TestDirectRecoversCoefficients(t *testing.T) {
	want := []float64{2, -1, 0.5}
	X, y := randomProblem(1, 50, 3, want, 0)

	beta, err := Direct{}.Minimize(context.Background(), Objective{X: X, Y: y})
	require.NoError(t, err)
	for j, w := range want {
		assert.InDelta(t, w, beta.AtVec(j), 1e-10)
	}
}

func TestDirectRankDeficientReturnsMinimumNorm(t *testing.T) {
	warnings := captureWarnings(t)

	// 2列目は1列目の複製
	X := mat.NewDense(4, 2, []float64{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	})
	y := mat.NewVecDense(4, []float64{2, 4, 6, 8})

	beta, err := Direct{}.Minimize(context.Background(), Objective{X: X, Y: y})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, beta.AtVec(0), 1e-10)
	assert.InDelta(t, 1.0, beta.AtVec(1), 1e-10)

	got := warnings()
	require.Len(t, got, 1)
	var w *errors.IllConditionedWarning
	require.True(t, errors.As(got[0], &w))
	assert.Equal(t, 1, w.Rank)
	assert.Equal(t, 2, w.NFeatures)
}

func TestDirectMoreFeaturesThanSamples(t *testing.T) {
	captureWarnings(t)

	X, y := randomProblem(2, 3, 5, []float64{1, 2, 3, 4, 5}, 0)
	beta, err := Direct{}.Minimize(context.Background(), Objective{X: X, Y: y})
	require.NoError(t, err)

	// 劣決定系なので残差は0になる
	var pred mat.VecDense
	pred.MulVec(X, beta)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, y.AtVec(i), pred.AtVec(i), 1e-9)
	}
}

func TestDirectRejectsL1(t *testing.T) {
	X, y := orthonormalProblem()
	_, err := Direct{}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: 1})
	assert.True(t, errors.Is(err, errors.ErrSolverFailure))
}

func TestRidgeSolversAgree(t *testing.T) {
	X, y := randomProblem(3, 40, 4, []float64{1, -2, 0, 3}, 0.1)
	obj := Objective{X: X, Y: y, Penalty: L2, Lambda: 5}
	ctx := context.Background()

	direct, err := Direct{}.Minimize(ctx, obj)
	require.NoError(t, err)
	cd, err := CoordinateDescent{Tol: 1e-12}.Minimize(ctx, obj)
	require.NoError(t, err)
	lbfgs, err := LBFGS{}.Minimize(ctx, obj)
	require.NoError(t, err)

	for j := 0; j < 4; j++ {
		assert.InDelta(t, direct.AtVec(j), cd.AtVec(j), 1e-8, "coordinate descent, coef %d", j)
		assert.InDelta(t, direct.AtVec(j), lbfgs.AtVec(j), 1e-5, "lbfgs, coef %d", j)
	}
}

func TestRidgeLimits(t *testing.T) {
	X, y := randomProblem(4, 30, 3, []float64{1, 2, 3}, 0.05)
	ctx := context.Background()

	ols, err := Direct{}.Minimize(ctx, Objective{X: X, Y: y})
	require.NoError(t, err)

	tiny, err := Direct{}.Minimize(ctx, Objective{X: X, Y: y, Penalty: L2, Lambda: 1e-10})
	require.NoError(t, err)
	for j := 0; j < 3; j++ {
		assert.InDelta(t, ols.AtVec(j), tiny.AtVec(j), 1e-8)
	}

	zero, err := Direct{}.Minimize(ctx, Objective{X: X, Y: y, Penalty: L2, Lambda: 0})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(ols, zero, 1e-12))

	huge, err := Direct{}.Minimize(ctx, Objective{X: X, Y: y, Penalty: L2, Lambda: 1e12})
	require.NoError(t, err)
	assert.Less(t, mat.Norm(huge, 2), 1e-8)
}

func TestLassoMatchesSoftThreshold(t *testing.T) {
	X, y := orthonormalProblem()

	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	for _, lambda := range []float64{0, 0.5, 2, 4, 5, 10} {
		beta, err := CoordinateDescent{}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: lambda})
		require.NoError(t, err, "lambda %v", lambda)

		for j := 0; j < 2; j++ {
			want := softThreshold(xty.AtVec(j), lambda/2)
			assert.InDelta(t, want, beta.AtVec(j), 1e-12, "lambda %v coef %d", lambda, j)
		}
	}
}

func TestLassoExactZerosAndMonotoneSparsity(t *testing.T) {
	X, y := orthonormalProblem()

	prev := math.MaxInt
	for _, lambda := range []float64{0, 1, 2, 3, 4, 5, 6, 8} {
		beta, err := Auto{}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: lambda})
		require.NoError(t, err)

		nonZero := 0
		for j := 0; j < beta.Len(); j++ {
			if beta.AtVec(j) != 0 {
				nonZero++
			}
		}
		assert.LessOrEqual(t, nonZero, prev, "lambda %v", lambda)
		prev = nonZero
	}
	// λ ≥ 2·max|Xᵀy| = 6 ですべて厳密に0
	assert.Equal(t, 0, prev)
}

func TestLassoOnRandomDesign(t *testing.T) {
	X, y := randomProblem(5, 60, 5, []float64{3, 0, 0, -2, 0}, 0.01)
	obj := Objective{X: X, Y: y, Penalty: L1, Lambda: 1}

	beta, err := CoordinateDescent{Tol: 1e-12, GapTol: 1e-12}.Minimize(context.Background(), obj)
	require.NoError(t, err)

	// 最適性: 任意の摂動で目的関数は下がらない
	best := obj.Value(beta)
	for j := 0; j < 5; j++ {
		for _, step := range []float64{-1e-4, 1e-4} {
			moved := mat.VecDenseCopyOf(beta)
			moved.SetVec(j, moved.AtVec(j)+step)
			assert.GreaterOrEqual(t, obj.Value(moved), best-1e-12)
		}
	}
	assert.InDelta(t, 3, beta.AtVec(0), 0.05)
	assert.InDelta(t, -2, beta.AtVec(3), 0.05)
}

func TestLassoOnCorrelatedDesign(t *testing.T) {
	X, y := factorProblem(7, 300, 30, 3, 0.1)
	ctx := context.Background()

	ols, err := Direct{}.Minimize(ctx, Objective{X: X, Y: y})
	require.NoError(t, err)

	n, _ := X.Dims()
	yy := mat.Dot(y, y)
	for _, lambda := range []float64{1e-4, 1e-2, 1} {
		obj := Objective{X: X, Y: y, Penalty: L1, Lambda: lambda}
		for _, s := range []Solver{Auto{}, CoordinateDescent{}} {
			beta, err := s.Minimize(ctx, obj)
			require.NoError(t, err, "%s lambda %v", s.Name(), lambda)

			// 最小二乗解は実行可能点なので、目的関数はそれ以下（許容誤差分を除く）
			slack := 2 * DefaultGapTol * yy / float64(n)
			assert.LessOrEqual(t, obj.Value(beta), obj.Value(ols)+slack, "%s lambda %v", s.Name(), lambda)
		}
	}
}

func TestCoordinateDescentDiverges(t *testing.T) {
	X, y := randomProblem(8, 10, 3, []float64{1, 2, 3}, 0)
	y.SetVec(0, math.Inf(1))

	_, err := CoordinateDescent{}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSolverFailure))

	var se *errors.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Iterations)
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ni))
}

func TestDualityGap(t *testing.T) {
	X, y := orthonormalProblem()
	st := newGramState(X, y)

	// λ ≥ 2·max|Xᵀy| では β = 0 が最適でギャップは0
	assert.InDelta(t, 0, st.dualityGap([]float64{0, 0}, 3), 1e-12)

	// β = 0 は小さい λ では最適でない
	assert.Greater(t, st.dualityGap([]float64{0, 0}, 0.5), 0.1)

	// 直交計画では軟閾値解が最適
	beta := []float64{softThreshold(st.xty[0], 0.5), softThreshold(st.xty[1], 0.5)}
	st.resync(beta)
	assert.InDelta(t, 0, st.dualityGap(beta, 0.5), 1e-12)
}

func TestCoordinateDescentNonConvergence(t *testing.T) {
	X, y := randomProblem(6, 20, 3, []float64{1, 1, 1}, 0)
	_, err := CoordinateDescent{MaxIter: 1, GapTol: 1e-15}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: 0.1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSolverFailure))

	var se *errors.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Iterations)
}

func TestLBFGSRejectsL1(t *testing.T) {
	X, y := orthonormalProblem()
	_, err := LBFGS{}.Minimize(context.Background(), Objective{X: X, Y: y, Penalty: L1, Lambda: 1})
	assert.True(t, errors.Is(err, errors.ErrSolverFailure))
}

func TestCancelledContext(t *testing.T) {
	X, y := randomProblem(7, 20, 3, []float64{1, 2, 3}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, s := range []Solver{Direct{}, CoordinateDescent{}, LBFGS{}} {
		_, err := s.Minimize(ctx, Objective{X: X, Y: y, Penalty: L2, Lambda: 1})
		require.Error(t, err, s.Name())
		assert.True(t, errors.Is(err, context.Canceled), s.Name())
		assert.False(t, errors.Is(err, errors.ErrSolverFailure), s.Name())
	}
}

// blockingSolver waits until its context is done.
type blockingSolver struct{}

func (blockingSolver) Name() string { return "blocking" }

func (blockingSolver) Minimize(ctx context.Context, _ Objective) (*mat.VecDense, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	X, y := orthonormalProblem()
	obj := Objective{X: X, Y: y}

	_, err := WithTimeout(blockingSolver{}, 10*time.Millisecond).Minimize(context.Background(), obj)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSolverFailure))

	// 呼び出し元のキャンセルはそのまま返す
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WithTimeout(blockingSolver{}, time.Hour).Minimize(ctx, obj)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, errors.ErrSolverFailure))

	// 十分な時間があれば通常通り解く
	beta, err := WithTimeout(Direct{}, time.Minute).Minimize(context.Background(), obj)
	require.NoError(t, err)
	assert.Equal(t, 2, beta.Len())

	assert.Equal(t, Direct{}, WithTimeout(Direct{}, 0))
}

func TestAutoDispatch(t *testing.T) {
	assert.Equal(t, Direct{}, Auto{}.For(None))
	assert.Equal(t, Direct{}, Auto{}.For(L2))
	assert.Equal(t, CoordinateDescent{}, Auto{}.For(L1))
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{
		"":                   "auto",
		"auto":               "auto",
		"direct":             "direct",
		"cd":                 "coordinate_descent",
		"coordinate_descent": "coordinate_descent",
		"lbfgs":              "lbfgs",
	} {
		s, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}

	_, err := ByName("cvxpy")
	assert.Error(t, err)
}
