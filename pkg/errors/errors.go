// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// 回帰モデルの学習と評価で発生する失敗を、構造化されたエラー型として表現します。
package errors

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("geofit-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nil を渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は反復ソルバーが許容誤差に近い状態で停止した場合の警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s stopped after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s stopped after %d iterations", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// IllConditionedWarning は計画行列がランク落ちしている場合の警告です。
// 最小ノルム解を返すため処理は継続されます。
type IllConditionedWarning struct {
	Op        string
	Rank      int
	NFeatures int
	NSamples  int
}

func (w *IllConditionedWarning) Error() string {
	return fmt.Sprintf("%s: design matrix is rank deficient (rank %d < %d features, %d samples); returning minimum-norm solution",
		w.Op, w.Rank, w.NFeatures, w.NSamples)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *IllConditionedWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Int("rank", w.Rank).
		Int("features", w.NFeatures).
		Int("samples", w.NSamples).
		Str("type", "IllConditionedWarning")
}

// NewIllConditionedWarning は新しいIllConditionedWarningを作成します。
func NewIllConditionedWarning(op string, rank, nFeatures, nSamples int) *IllConditionedWarning {
	return &IllConditionedWarning{Op: op, Rank: rank, NFeatures: nFeatures, NSamples: nSamples}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("geofit: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("geofit: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("geofit: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("geofit: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geofit: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("geofit: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// NewEmptyInputError は長さ0のベクトルや行列が渡された場合のエラーを作成します。
func NewEmptyInputError(op string) error {
	return NewModelError(op, "empty input", ErrEmptyInput)
}

// InvalidValueError は予測値または実測値に非有限値（NaN, ±Inf）が含まれる場合のエラーです。
type InvalidValueError struct {
	Op    string
	Index int
	Value float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("geofit: %s: non-finite value %v at index %d", e.Op, e.Value, e.Index)
}

// Is は ErrInvalidValue との比較を可能にします。
func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidValueError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("index", e.Index).
		Float64("value", e.Value).
		Str("type", "InvalidValueError")
}

// NewInvalidValueError は新しいInvalidValueErrorを作成し、スタックトレースを付与します。
func NewInvalidValueError(op string, index int, value float64) error {
	return errors.WithStack(&InvalidValueError{Op: op, Index: index, Value: value})
}

// CheckFinite は values に NaN または ±Inf が含まれていれば InvalidValueError を返します。
func CheckFinite(op string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewInvalidValueError(op, i, v)
		}
	}
	return nil
}

// InvalidPartitionError は分割数がデータ数と整合しない場合のエラーです。
type InvalidPartitionError struct {
	Op    string
	K     int
	NRows int
	Fold  int // -1 when the fold index is not involved
}

func (e *InvalidPartitionError) Error() string {
	if e.Fold >= 0 {
		return fmt.Sprintf("geofit: %s: fold index %d out of range for k=%d", e.Op, e.Fold, e.K)
	}
	return fmt.Sprintf("geofit: %s: k=%d is invalid for %d rows (need 2 <= k <= rows)", e.Op, e.K, e.NRows)
}

// Is は ErrInvalidPartition との比較を可能にします。
func (e *InvalidPartitionError) Is(target error) bool {
	return target == ErrInvalidPartition
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidPartitionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("k", e.K).
		Int("rows", e.NRows).
		Int("fold", e.Fold).
		Str("type", "InvalidPartitionError")
}

// NewInvalidPartitionError は新しいInvalidPartitionErrorを作成し、スタックトレースを付与します。
func NewInvalidPartitionError(op string, k, nRows, fold int) error {
	return errors.WithStack(&InvalidPartitionError{Op: op, K: k, NRows: nRows, Fold: fold})
}

// SolverError は凸最適化ソルバーが利用可能な解を返さなかった場合のエラーです。
// 非収束、実行不能・非有界、タイムアウト、数値バックエンドのpanicを含みます。
type SolverError struct {
	Solver     string
	Reason     string
	Iterations int
	Err        error
}

func (e *SolverError) Error() string {
	msg := fmt.Sprintf("geofit: solver %s failed: %s", e.Solver, e.Reason)
	if e.Iterations > 0 {
		msg += fmt.Sprintf(" after %d iterations", e.Iterations)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

// Is は ErrSolverFailure との比較を可能にします。
func (e *SolverError) Is(target error) bool {
	return target == ErrSolverFailure
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SolverError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("solver", e.Solver).
		Str("reason", e.Reason).
		Int("iterations", e.Iterations).
		Str("type", "SolverError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewSolverError は新しいSolverErrorを作成し、スタックトレースを付与します。
func NewSolverError(solver, reason string, iterations int, cause error) error {
	return errors.WithStack(&SolverError{Solver: solver, Reason: reason, Iterations: iterations, Err: cause})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	数値計算エラー
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// ソルバー内部で係数や目的関数値が NaN、Inf になったことを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "coordinate_descent"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("geofit: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyInput は長さ0のベクトル・行列で計算や学習が要求された場合のエラーです。
	ErrEmptyInput = New("empty input")

	// ErrInvalidValue は入力に非有限値が含まれる場合のエラーです。
	ErrInvalidValue = New("invalid value")

	// ErrInvalidPartition は分割数がデータ数と整合しない場合のエラーです。
	ErrInvalidPartition = New("invalid partition")

	// ErrSolverFailure はソルバーが利用可能な解を返さなかった場合のエラーです。
	ErrSolverFailure = New("solver failure")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
