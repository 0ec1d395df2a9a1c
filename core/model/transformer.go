package model

import "gonum.org/v1/gonum/mat"

// Transformer は学習済みのデータ変換のインターフェース。
// 未学習の変換器は Transform を持たないため、学習前の変換は型で防がれる。
type Transformer interface {
	// Transform はデータを変換する。入力は変更しない。
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// TransformerFitter は学習して Transformer を返す設定オブジェクト。
type TransformerFitter[T Transformer] interface {
	// Fit は変換に必要なパラメータを学習し、学習済み変換器を返す
	Fit(X mat.Matrix) (T, error)
}

// FitTransform はFitとTransformを同時に実行する
func FitTransform[T Transformer](f TransformerFitter[T], X mat.Matrix) (T, *mat.Dense, error) {
	fitted, err := f.Fit(X)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	out, err := fitted.Transform(X)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	return fitted, out, nil
}
