package linear

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/core/parallel"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/solver"
)

// Kind は回帰モデルの種類（正則化の有無と種類）
type Kind int

const (
	// OLS は正則化なしの最小二乗法
	OLS Kind = iota
	// Ridge は L2 正則化付き最小二乗法
	Ridge
	// Lasso は L1 正則化付き最小二乗法
	Lasso
)

func (k Kind) String() string {
	switch k {
	case OLS:
		return "ols"
	case Ridge:
		return "ridge"
	case Lasso:
		return "lasso"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Penalty は Kind に対応する正則化項
func (k Kind) Penalty() solver.Penalty {
	switch k {
	case Ridge:
		return solver.L2
	case Lasso:
		return solver.L1
	default:
		return solver.None
	}
}

// ParseKind は "ols", "ridge"/"l2", "lasso"/"l1" を解釈する
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ols", "linear", "none":
		return OLS, nil
	case "ridge", "l2":
		return Ridge, nil
	case "lasso", "l1":
		return Lasso, nil
	default:
		return OLS, errors.NewValidationError("kind", "must be ols, ridge or lasso", s)
	}
}

// Coefficients は学習済みの係数ベクトル（不変）
type Coefficients struct {
	beta   []float64
	kind   Kind
	lambda float64
}

// NewCoefficients は beta のコピーから係数を作成する
func NewCoefficients(kind Kind, lambda float64, beta []float64) *Coefficients {
	return &Coefficients{beta: append([]float64(nil), beta...), kind: kind, lambda: lambda}
}

// Len は係数の数（特徴量の数）
func (c *Coefficients) Len() int { return len(c.beta) }

// At は j 番目の係数
func (c *Coefficients) At(j int) float64 { return c.beta[j] }

// Raw は係数のコピーを返す
func (c *Coefficients) Raw() []float64 { return append([]float64(nil), c.beta...) }

// Kind は係数を学習したモデルの種類
func (c *Coefficients) Kind() Kind { return c.kind }

// Lambda は学習時の正則化強度
func (c *Coefficients) Lambda() float64 { return c.lambda }

// NonZero は厳密に0でない係数の数を返す
func (c *Coefficients) NonZero() int {
	n := 0
	for _, b := range c.beta {
		if b != 0 {
			n++
		}
	}
	return n
}

// predictParallelThreshold 以下の行数では逐次処理を使用
const predictParallelThreshold = 1000

// Predict は X·β を計算する
func (c *Coefficients) Predict(X mat.Matrix) (*mat.VecDense, error) {
	r, cols := X.Dims()
	if r == 0 || cols == 0 {
		return nil, errors.NewEmptyInputError("Coefficients.Predict")
	}
	if cols != len(c.beta) {
		return nil, errors.NewDimensionError("Coefficients.Predict", len(c.beta), cols, 1)
	}

	pred := make([]float64, r)
	parallel.ParallelizeWithThreshold(r, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for j, b := range c.beta {
				sum += X.At(i, j) * b
			}
			pred[i] = sum
		}
	})
	return mat.NewVecDense(r, pred), nil
}

// Fit は kind に応じた目的関数を s で最小化し、係数を返す
//
// OLS では lambda は無視される。s が nil の場合は solver.Default() を使う。
func Fit(ctx context.Context, s solver.Solver, kind Kind, X mat.Matrix, y *mat.VecDense, lambda float64) (*Coefficients, error) {
	const op = "linear.Fit"

	if kind < OLS || kind > Lasso {
		return nil, errors.NewValidationError("kind", "unknown model kind", kind)
	}
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
		return nil, errors.NewValidationError("lambda", "must be a finite value >= 0", lambda)
	}
	if kind == OLS {
		lambda = 0
	}

	if X == nil || y == nil || y.IsEmpty() {
		return nil, errors.NewEmptyInputError(op)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewEmptyInputError(op)
	}
	if y.Len() != r {
		return nil, errors.NewDimensionError(op, r, y.Len(), 0)
	}
	if err := errors.CheckMatrix(op, X); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix(op, y); err != nil {
		return nil, err
	}

	if s == nil {
		s = solver.Default()
	}

	xd, ok := X.(*mat.Dense)
	if !ok {
		xd = mat.DenseCopyOf(X)
	}

	beta, err := s.Minimize(ctx, solver.Objective{
		X:       xd,
		Y:       y,
		Penalty: kind.Penalty(),
		Lambda:  lambda,
	})
	if err != nil {
		return nil, err
	}

	raw := make([]float64, beta.Len())
	for j := range raw {
		raw[j] = beta.AtVec(j)
	}
	return &Coefficients{beta: raw, kind: kind, lambda: lambda}, nil
}
