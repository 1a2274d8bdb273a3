// Package linear は切片なしの線形回帰モデル y = Xβ を提供する
//
// 正則化なし（OLS）、L2 正則化（Ridge）、L1 正則化（Lasso）の3種類を持ち、
// 係数の推定は solver パッケージに委譲する。
package linear

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/core/model"
	"github.com/YuminosukeSato/geofit/metrics"
	"github.com/YuminosukeSato/geofit/pkg/errors"
	"github.com/YuminosukeSato/geofit/pkg/log"
)

var (
	_ model.LinearModel = (*LinearRegression)(nil)
	_ model.LinearModel = (*RidgeRegression)(nil)
	_ model.LinearModel = (*LassoRegression)(nil)
)

// estimator は3種類のモデルに共通の実装
type estimator struct {
	model.BaseEstimator
	name string
	kind Kind
	opts options
	coef *Coefficients
}

func newEstimator(name string, kind Kind, opts []Option) estimator {
	return estimator{name: name, kind: kind, opts: newOptions(opts)}
}

// Fit はモデルを訓練データで学習させる
func (e *estimator) Fit(X, y mat.Matrix) error {
	return e.FitContext(context.Background(), X, y)
}

// FitContext は ctx によるキャンセルをサポートする Fit
func (e *estimator) FitContext(ctx context.Context, X, y mat.Matrix) error {
	op := e.name + ".Fit"

	// 失敗した場合に以前の係数を使わせない
	e.Reset()
	e.coef = nil

	yVec, err := columnVector(op, y)
	if err != nil {
		return err
	}

	start := time.Now()
	coef, err := Fit(ctx, e.opts.solver, e.kind, X, yVec, e.opts.lambda)
	if err != nil {
		e.opts.logger.Debug("fit failed",
			log.ModelNameKey, e.name,
			log.SolverKey, e.opts.solver.Name(),
			log.ErrorKey, err,
		)
		return err
	}

	r, c := X.Dims()
	e.opts.logger.Debug("model fitted",
		log.ModelNameKey, e.name,
		log.SolverKey, e.opts.solver.Name(),
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.RegularizationKey, coef.Lambda(),
		log.NonZeroKey, coef.NonZero(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	e.coef = coef
	e.SetFitted()
	return nil
}

// Predict は入力データに対する予測を n×1 行列で返す
func (e *estimator) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError(e.name, "Predict")
	}
	return e.coef.Predict(X)
}

// Score はモデルの決定係数（R²）を計算する
func (e *estimator) Score(X, y mat.Matrix) (float64, error) {
	if !e.IsFitted() {
		return 0, errors.NewNotFittedError(e.name, "Score")
	}

	yVec, err := columnVector(e.name+".Score", y)
	if err != nil {
		return 0, err
	}
	pred, err := e.coef.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yVec, pred)
}

// Coef は学習された係数のコピーを返す（未学習なら nil）
func (e *estimator) Coef() []float64 {
	if !e.IsFitted() {
		return nil
	}
	return e.coef.Raw()
}

// Coefficients は学習された係数を返す（未学習なら nil）
func (e *estimator) Coefficients() *Coefficients {
	return e.coef
}

// columnVector は n×1 行列を VecDense に変換する
func columnVector(op string, y mat.Matrix) (*mat.VecDense, error) {
	if y == nil {
		return nil, errors.NewEmptyInputError(op)
	}
	if v, ok := y.(*mat.VecDense); ok {
		return v, nil
	}
	r, c := y.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewEmptyInputError(op)
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v, nil
}

// LinearRegression は正則化なしの線形回帰モデル
type LinearRegression struct {
	estimator
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	return &LinearRegression{newEstimator("LinearRegression", OLS, opts)}
}

// RidgeRegression は L2 正則化付き線形回帰モデル
//
//	minimize (‖y − Xβ‖² + λ‖β‖²) / n
type RidgeRegression struct {
	estimator
}

// NewRidge は新しい Ridge 回帰モデルを作成する
func NewRidge(opts ...Option) *RidgeRegression {
	return &RidgeRegression{newEstimator("Ridge", Ridge, opts)}
}

// LassoRegression は L1 正則化付き線形回帰モデル
//
//	minimize (‖y − Xβ‖² + λ‖β‖₁) / n
type LassoRegression struct {
	estimator
}

// NewLasso は新しい Lasso 回帰モデルを作成する
func NewLasso(opts ...Option) *LassoRegression {
	return &LassoRegression{newEstimator("Lasso", Lasso, opts)}
}
