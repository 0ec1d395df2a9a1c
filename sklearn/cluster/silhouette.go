package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// SilhouetteSamples は各サンプルのシルエット係数 (b-a)/max(a,b) を返す。
// a は同じクラスタ内の平均距離、b は最も近い他クラスタへの平均距離。
// 要素数1のクラスタに属するサンプルは0とする。
// ラベルの種類が 2 未満または n 以上の場合は UndefinedMetricWarning を返す。
func SilhouetteSamples(X mat.Matrix, labels []int) ([]float64, error) {
	n, _ := X.Dims()
	if n != len(labels) {
		return nil, errors.NewDimensionError("SilhouetteSamples", n, len(labels), 0)
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) >= n {
		return nil, errors.NewUndefinedMetricWarning("silhouette",
			"number of labels must be in [2, n_samples-1]", math.NaN())
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = mat.Row(nil, i, X)
	}

	scores := make([]float64, n)
	sums := make(map[int]float64, len(sizes))
	for i := range rows {
		if sizes[labels[i]] == 1 {
			continue
		}
		for l := range sums {
			delete(sums, l)
		}
		for j := range rows {
			if i != j {
				sums[labels[j]] += floats.Distance(rows[i], rows[j], 2)
			}
		}

		a := sums[labels[i]] / float64(sizes[labels[i]]-1)
		b := math.Inf(1)
		for l, s := range sums {
			if l != labels[i] {
				b = math.Min(b, s/float64(sizes[l]))
			}
		}
		if m := math.Max(a, b); m > 0 {
			scores[i] = (b - a) / m
		}
	}
	return scores, nil
}

// SilhouetteScore は全サンプルのシルエット係数の平均を返す
func SilhouetteScore(X mat.Matrix, labels []int) (float64, error) {
	scores, err := SilhouetteSamples(X, labels)
	if err != nil {
		return math.NaN(), err
	}
	return stat.Mean(scores, nil), nil
}
