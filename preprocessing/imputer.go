package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

var _ model.TransformerFitter[*FittedSimpleImputer] = (*SimpleImputer)(nil)

// StrategyMean は列の平均で欠損値を埋める
const StrategyMean = "mean"

// SimpleImputer は欠損値（NaN）を列の統計量で埋める変換器の設定
type SimpleImputer struct {
	Strategy string
}

// FittedSimpleImputer は学習済みのSimpleImputer
type FittedSimpleImputer struct {
	// Strategy は学習時の補完戦略
	Strategy string

	// Statistics は各列の補完値
	Statistics []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewSimpleImputer は平均で補完するSimpleImputerを作成する
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{Strategy: StrategyMean}
}

// Fit は欠損でない値から列ごとの補完値を計算する。
// 全て欠損の列があると ValueError を返す。
func (s *SimpleImputer) Fit(X mat.Matrix) (*FittedSimpleImputer, error) {
	if s.Strategy != StrategyMean {
		return nil, errors.NewValidationError("strategy", "only \"mean\" is supported", s.Strategy)
	}

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	fitted := &FittedSimpleImputer{
		Strategy:   s.Strategy,
		Statistics: make([]float64, c),
		NFeatures:  c,
	}
	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return nil, errors.NewValueError("SimpleImputer.Fit", "column has no observed values to compute a mean from")
		}
		fitted.Statistics[j] = stat.Mean(observed, nil)
	}
	return fitted, nil
}

// Transform はNaNを学習済みの補完値で置き換えた新しい行列を返す
func (s *FittedSimpleImputer) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("SimpleImputer.Transform", "empty data", errors.ErrEmptyData)
	}
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}
