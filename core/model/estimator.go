// Package model はモデルの共通インターフェースと基底型を提供する
package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// ContextFitter はキャンセル可能な学習をサポートするモデルのインターフェース
type ContextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 の列ベクトル）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は決定係数 R² を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor は回帰モデルのインターフェース
type Regressor interface {
	Fitter
	ContextFitter
	Predictor
	Scorer
}

// LinearModel は切片を持たない線形モデル y = Xβ のインターフェース
type LinearModel interface {
	Regressor
	// Coef は学習された係数のコピーを返す
	Coef() []float64
}
