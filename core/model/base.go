package model

import "github.com/YuminosukeSato/carprice/pkg/errors"

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は学習後に内部状態を更新するモデルの基底となる構造体
type BaseEstimator struct {
	State EstimatorState // gob で保存するため公開
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted はモデルを学習済み状態に設定する
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}

// RequireFitted は未学習なら NotFittedError を返す
func (e *BaseEstimator) RequireFitted(modelName, method string) error {
	if !e.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
