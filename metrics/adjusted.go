package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// AdjustedR2 はモデルの R² を説明変数の数で補正する。
// n は y の行数、p は X の列数。n-p-1 <= 0 のときは ValueError を返す。
func AdjustedR2(m model.Scorer, X, y mat.Matrix) (float64, error) {
	n, _ := y.Dims()
	_, p := X.Dims()
	if err := checkDegreesOfFreedom(n, p); err != nil {
		return 0, err
	}

	r2, err := m.Score(X, y)
	if err != nil {
		return 0, errors.Wrap(err, "AdjustedR2: score")
	}
	return AdjustedR2FromScore(r2, n, p)
}

// AdjustedR2FromScore は 1 - (1-r2)(n-1)/(n-p-1) を計算する
func AdjustedR2FromScore(r2 float64, n, p int) (float64, error) {
	if err := checkDegreesOfFreedom(n, p); err != nil {
		return 0, err
	}
	if err := errors.CheckScalar("AdjustedR2", r2, 0); err != nil {
		return 0, err
	}
	return 1 - (1-r2)*float64(n-1)/float64(n-p-1), nil
}

func checkDegreesOfFreedom(n, p int) error {
	if n-p-1 <= 0 {
		return errors.NewValueError("AdjustedR2",
			fmt.Sprintf("n_samples - n_features - 1 must be positive, got n=%d p=%d", n, p))
	}
	return nil
}

// PurchaseProbability は実価格に対する予測価格の比から購入見込みを推定する。
// 比は下限1に丸められ、比が1なら1、それ以外は 1 - min(1, 比-1)。
// 予測が実価格以下なら1、2倍以上なら0になる。
func PurchaseProbability(yActual, yPred *mat.VecDense) (*mat.VecDense, error) {
	n, err := checkPair("PurchaseProbability", yActual, yPred)
	if err != nil {
		return nil, err
	}

	scores := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		actual := yActual.AtVec(i)
		if actual == 0 {
			return nil, errors.NewValueError("PurchaseProbability",
				fmt.Sprintf("actual price at index %d is zero", i))
		}
		ratio := math.Max(yPred.AtVec(i)/actual, 1)
		score := 1.0
		if ratio != 1 {
			score = 1 - math.Min(1, ratio-1)
		}
		scores.SetVec(i, score)
	}
	return scores, nil
}
