// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"strings"
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
		log.Printf("carprice-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the library-wide warning handler. Passing a no-op
// function silences warnings such as ElbowWarning.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog hook wins when installed, otherwise the
// plain handler is used.
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

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
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

// ElbowWarning is raised when the elbow search cannot locate a knee and a
// fallback cluster count is used instead.
type ElbowWarning struct {
	Lower    int
	Upper    int
	Fallback int
	Reason   string
}

func (w *ElbowWarning) Error() string {
	return fmt.Sprintf("no elbow found for k in [%d, %d] (%s); using k=%d", w.Lower, w.Upper, w.Reason, w.Fallback)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ElbowWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("lower", w.Lower).
		Int("upper", w.Upper).
		Int("fallback", w.Fallback).
		Str("reason", w.Reason).
		Str("type", "ElbowWarning")
}

// NewElbowWarning creates a new ElbowWarning.
func NewElbowWarning(lower, upper, fallback int, reason string) *ElbowWarning {
	return &ElbowWarning{Lower: lower, Upper: upper, Fallback: fallback, Reason: reason}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、クラスタ数がサンプル数と等しい場合のシルエット係数など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("carprice: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
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
	return fmt.Sprintf("carprice: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName(e.Axis), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName(e.Axis)).
		Str("type", "DimensionError")
}

func axisName(axis int) string {
	if axis == 0 {
		return "rows"
	}
	return "features"
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
// `ValueError`よりも具体的なバリデーションロジックの失敗を示します。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("carprice: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
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
// 例えば、実際の価格が0の購入確率など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("carprice: %s: %s", e.Op, e.Message)
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
		return fmt.Sprintf("carprice: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("carprice: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	パイプライン固有のエラー型
//
// ===========================================================================

// MissingColumnError reports required columns absent from a dataset.
type MissingColumnError struct {
	Op      string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("carprice: %s: missing required column(s): %s", e.Op, strings.Join(e.Columns, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("columns", e.Columns).
		Str("type", "MissingColumnError")
}

// NewMissingColumnError creates a MissingColumnError with a stack trace.
func NewMissingColumnError(op string, columns ...string) error {
	return errors.WithStack(&MissingColumnError{Op: op, Columns: columns})
}

// MergeInvariantError is returned when merging cluster ids back onto the
// dataset would change its row count or leave rows without a cluster.
type MergeInvariantError struct {
	Column       string
	ExpectedRows int
	GotRows      int
	Unmatched    int
	FirstRow     int // first unmatched row, -1 when none
}

func (e *MergeInvariantError) Error() string {
	if e.Unmatched > 0 {
		return fmt.Sprintf("carprice: merge %s: %d of %d rows did not match any group (first at row %d)",
			e.Column, e.Unmatched, e.ExpectedRows, e.FirstRow)
	}
	return fmt.Sprintf("carprice: merge %s: row count changed from %d to %d", e.Column, e.ExpectedRows, e.GotRows)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MergeInvariantError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Int("expected_rows", e.ExpectedRows).
		Int("got_rows", e.GotRows).
		Int("unmatched", e.Unmatched).
		Int("first_row", e.FirstRow).
		Str("type", "MergeInvariantError")
}

// NewMergeInvariantError creates a MergeInvariantError with a stack trace.
func NewMergeInvariantError(column string, expected, got, unmatched, firstRow int) error {
	return errors.WithStack(&MergeInvariantError{
		Column:       column,
		ExpectedRows: expected,
		GotRows:      got,
		Unmatched:    unmatched,
		FirstRow:     firstRow,
	})
}

// StageOrderError is returned when a pipeline stage runs before the stage it
// depends on.
type StageOrderError struct {
	Stage    string
	Requires string
}

func (e *StageOrderError) Error() string {
	return fmt.Sprintf("carprice: stage %s requires %s to run first", e.Stage, e.Requires)
}

// NewStageOrderError creates a StageOrderError with a stack trace.
func NewStageOrderError(stage, requires string) error {
	return errors.WithStack(&StageOrderError{Stage: stage, Requires: requires})
}

// UnknownCategoryError is returned by an encoder configured to reject
// categories that were not seen while fitting.
type UnknownCategoryError struct {
	Feature  string
	Category string
	Row      int
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("carprice: unknown category %q in feature %q at row %d", e.Category, e.Feature, e.Row)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownCategoryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("feature", e.Feature).
		Str("category", e.Category).
		Int("row", e.Row).
		Str("type", "UnknownCategoryError")
}

// NewUnknownCategoryError creates an UnknownCategoryError with a stack trace.
func NewUnknownCategoryError(feature, category string, row int) error {
	return errors.WithStack(&UnknownCategoryError{Feature: feature, Category: category, Row: row})
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

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf などを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Iteration int
}

func (e *NumericalInstabilityError) Error() string {
	var b strings.Builder
	for i, v := range e.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		if i >= 5 {
			b.WriteString("...")
			break
		}
		fmt.Fprintf(&b, "%.6g", v)
	}
	return fmt.Sprintf("carprice: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, b.String())
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	})
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
