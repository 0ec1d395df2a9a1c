package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

var (
	_ model.TransformerFitter[*FittedStandardScaler] = (*StandardScaler)(nil)
	_ model.TransformerFitter[*FittedMaxAbsScaler]   = (*MaxAbsScaler)(nil)
)

// StandardScaler はscikit-learn互換の標準化スケーラーの設定
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// FittedStandardScaler は学習済みのStandardScaler
type FittedStandardScaler struct {
	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（母標準偏差、0の場合は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	fitted, err := preprocessing.NewStandardScaler(true, true).Fit(X)
//	XScaled, err := fitted.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) (*FittedStandardScaler, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	fitted := &FittedStandardScaler{
		Mean:      make([]float64, c),
		Scale:     make([]float64, c),
		NFeatures: c,
	}

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean := stat.Mean(col, nil)
		if s.WithMean {
			fitted.Mean[j] = mean
		}

		fitted.Scale[j] = 1.0
		if s.WithStd {
			std := math.Sqrt(stat.PopVariance(col, nil))
			// 標準偏差が0に近い場合は1のまま（ゼロ除算を避ける）
			if std >= 1e-8 {
				fitted.Scale[j] = std
			}
		}
	}

	if err := errors.CheckMatrix("StandardScaler.Fit", mat.NewDense(1, c, fitted.Mean), 1, c, false); err != nil {
		return nil, err
	}
	return fitted, nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *FittedStandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("StandardScaler.Transform", "empty data", errors.ErrEmptyData)
	}
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)
	return result, nil
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *FittedStandardScaler) InverseTransform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("StandardScaler.InverseTransform", "empty data", errors.ErrEmptyData)
	}
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)
	return result, nil
}

// MaxAbsScaler は各特徴量を最大絶対値で割り、[-1, 1] に収めるスケーラーの設定。
// 中心化しないため疎な one-hot 行列をそのまま扱える。
type MaxAbsScaler struct{}

// FittedMaxAbsScaler は学習済みのMaxAbsScaler
type FittedMaxAbsScaler struct {
	// MaxAbs は各特徴量の最大絶対値（NaNは無視）
	MaxAbs []float64

	// Scale は除数。MaxAbsが0の場合は1
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int
}

// NewMaxAbsScaler は新しいMaxAbsScalerを作成する
func NewMaxAbsScaler() *MaxAbsScaler {
	return &MaxAbsScaler{}
}

// Fit は各列の最大絶対値を求める。NaNは欠損値として無視する。
func (s *MaxAbsScaler) Fit(X mat.Matrix) (*FittedMaxAbsScaler, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("MaxAbsScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("MaxAbsScaler.Fit", X, r, c, true); err != nil {
		return nil, err
	}

	fitted := &FittedMaxAbsScaler{
		MaxAbs:    make([]float64, c),
		Scale:     make([]float64, c),
		NFeatures: c,
	}
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			fitted.MaxAbs[j] = math.Max(fitted.MaxAbs[j], math.Abs(v))
		}
		fitted.Scale[j] = fitted.MaxAbs[j]
		if fitted.Scale[j] == 0 {
			fitted.Scale[j] = 1.0
		}
	}
	return fitted, nil
}

// Transform は各列を学習済みの最大絶対値で割る。NaNはNaNのまま残る。
func (s *FittedMaxAbsScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, errors.NewModelError("MaxAbsScaler.Transform", "empty data", errors.ErrEmptyData)
	}
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("MaxAbsScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v / s.Scale[j]
	}, X)
	return result, nil
}
