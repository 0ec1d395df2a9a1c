package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// KElbow は k の範囲で KMeans を学習し、distortion 曲線の肘から k を選ぶ
type KElbow struct {
	lower   int
	upper   int
	options []KMeansOption
}

// ElbowResult は肘法の結果
type ElbowResult struct {
	// Ks は評価した k（昇順）
	Ks []int
	// Distortions は各 k の distortion（クラスタ中心までの距離の二乗和）
	Distortions []float64
	// K は選ばれた k。肘が見つからない場合は下限
	K int
	// Found は肘が検出されたかどうか
	Found bool
}

// NewKElbow は [lower, upper] の範囲を探索するKElbowを作成する。
// options は各 k の KMeans にそのまま渡される。
func NewKElbow(lower, upper int, options ...KMeansOption) *KElbow {
	return &KElbow{lower: lower, upper: upper, options: options}
}

// Fit は k in [lower, min(upper, n)] について distortion を計算し肘を探す。
// 肘が見つからない場合は ElbowWarning を出して下限を選ぶ。
func (e *KElbow) Fit(X mat.Matrix) (*ElbowResult, error) {
	if e.lower < 1 {
		return nil, errors.NewValidationError("k_lower", "must be at least 1", e.lower)
	}
	if e.upper < e.lower {
		return nil, errors.NewValidationError("k_upper", fmt.Sprintf("must be >= k_lower (%d)", e.lower), e.upper)
	}
	n, _ := X.Dims()
	if n < e.lower {
		return nil, errors.NewValueError("KElbow.Fit",
			fmt.Sprintf("%d samples cannot be split into at least %d clusters", n, e.lower))
	}

	upper := e.upper
	if upper > n {
		upper = n
	}

	result := &ElbowResult{}
	for k := e.lower; k <= upper; k++ {
		opts := append(append([]KMeansOption(nil), e.options...), WithKMeansNClusters(k))
		fitted, err := NewKMeans(opts...).Fit(X)
		if err != nil {
			return nil, errors.Wrapf(err, "elbow k=%d", k)
		}
		result.Ks = append(result.Ks, k)
		result.Distortions = append(result.Distortions, fitted.Inertia)
	}

	knee, ok, reason := LocateKnee(result.Ks, result.Distortions)
	if !ok {
		errors.Warn(errors.NewElbowWarning(e.lower, upper, e.lower, reason))
		knee = e.lower
	}
	result.K = knee
	result.Found = ok
	return result, nil
}

// LocateKnee は凸で減少する曲線の肘を返す。両軸を [0,1] に正規化し、
// 始点と終点を結ぶ直線から最も下に離れた点を肘とする。
// 見つからない場合は ok=false と理由を返す。
func LocateKnee(ks []int, distortions []float64) (knee int, ok bool, reason string) {
	if len(ks) < 3 {
		return 0, false, fmt.Sprintf("need at least 3 candidate k values, have %d", len(ks))
	}

	xMin, xMax := float64(ks[0]), float64(ks[len(ks)-1])
	yMin, yMax := floats.Min(distortions), floats.Max(distortions)
	if xMax == xMin || yMax == yMin {
		return 0, false, "distortion curve is flat"
	}

	best, bestDiff := -1, 0.0
	for i, k := range ks {
		x := (float64(k) - xMin) / (xMax - xMin)
		y := (distortions[i] - yMin) / (yMax - yMin)
		if diff := (1 - x) - y; diff > bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 {
		return 0, false, "distortion curve is not convex"
	}
	return ks[best], true, ""
}
