// Package metrics は回帰モデルの評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// MeanSquaredError は予測値と実測値の平均二乗誤差を計算する
//
//	MSE = Σ(actual - predicted)² / n
//
// 長さ0の入力は ErrEmptyInput、NaN・Inf を含む入力は ErrInvalidValue を返す。
// 引数の順序を入れ替えても結果は変わらない。
func MeanSquaredError(predicted, actual []float64) (float64, error) {
	if err := validate("MeanSquaredError", predicted, actual); err != nil {
		return 0, err
	}

	var sum float64
	for i := range actual {
		r := actual[i] - predicted[i]
		sum += r * r
	}
	return sum / float64(len(actual)), nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	return MeanSquaredError(vecData(yPred), vecData(yTrue))
}

// MSEMatrix は n×1 行列形式の入力に対してMSEを計算する
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, errors.NewEmptyInputError("MSEMatrix")
	}

	if rTrue != rPred {
		return 0, errors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}

	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MeanSquaredError(column(yPred), column(yTrue))
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
// 目的変数と同じ単位（度）で誤差を報告するために使う
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	actual, predicted := vecData(yTrue), vecData(yPred)
	if err := validate("MAE", predicted, actual); err != nil {
		return 0, err
	}

	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual)), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	actual, predicted := vecData(yTrue), vecData(yPred)
	if err := validate("R2Score", predicted, actual); err != nil {
		return 0, err
	}

	yMean := stat.Mean(actual, nil)

	// 全変動（TSS）と残差変動（RSS）を計算
	var tss, rss float64
	for i := range actual {
		tss += (actual[i] - yMean) * (actual[i] - yMean)
		rss += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
	}

	// 全変動が0の場合（すべてのyTrueが同じ値）
	if tss == 0 {
		return 0, errors.NewValueError("R2Score", "total sum of squares is zero (no variance in yTrue)")
	}

	return 1 - rss/tss, nil
}

func validate(op string, predicted, actual []float64) error {
	if len(predicted) == 0 || len(actual) == 0 {
		return errors.NewEmptyInputError(op)
	}
	if len(predicted) != len(actual) {
		return errors.NewDimensionError(op, len(actual), len(predicted), 0)
	}
	if err := errors.CheckFinite(op, predicted); err != nil {
		return err
	}
	return errors.CheckFinite(op, actual)
}

// vecData はストライドを考慮して要素を取り出す
func vecData(v *mat.VecDense) []float64 {
	if v == nil || v.IsEmpty() {
		return nil
	}
	n := v.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = v.AtVec(i)
	}
	return out
}

func column(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}
