// Package linear は価格予測のベースラインとなる最小二乗線形回帰を提供する。
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/metrics"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

var _ model.Regressor = (*LinearRegression)(nil)

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator // BaseEstimatorを埋め込み

	Weights   *mat.VecDense // 重み（係数）
	Intercept float64       // 切片
	NFeatures int           // 特徴量の数
	Rank      int           // 計画行列の実効ランク

	fitIntercept bool
	rcond        float64
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		fitIntercept: true,
		rcond:        1e-10,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる。
// 特異値分解による最小ノルム最小二乗解を使うため、ランク落ちした X でも解ける。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", X, r, c, false); err != nil {
		return err
	}
	if err := errors.CheckMatrix("LinearRegression.Fit", y, r, 1, false); err != nil {
		return err
	}

	// 切片項のために X に 1 の列を追加: [1, X]
	offset := 0
	if lr.fitIntercept {
		offset = 1
	}
	design := mat.NewDense(r, c+offset, nil)
	for i := 0; i < r; i++ {
		if lr.fitIntercept {
			design.Set(i, 0, 1.0)
		}
		for j := 0; j < c; j++ {
			design.Set(i, j+offset, X.At(i, j))
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "singular value decomposition failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(lr.rcond)
	if rank == 0 {
		return errors.NewModelError("LinearRegression.Fit", "design matrix has rank zero", errors.ErrSingularMatrix)
	}

	var coef mat.Dense
	svd.SolveTo(&coef, y, rank)

	lr.NFeatures = c
	lr.Rank = rank
	lr.Intercept = 0
	if lr.fitIntercept {
		lr.Intercept = coef.At(0, 0)
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, coef.At(j+offset, 0))
	}

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// 予測: y = X * weights + intercept
	predictions := mat.NewVecDense(r, nil)
	predictions.MulVec(X, lr.Weights)
	for i := 0; i < r; i++ {
		predictions.SetVec(i, predictions.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// Coefficients は学習された重み（係数）を返す
func (lr *LinearRegression) Coefficients() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return mat.Col(nil, 0, lr.Weights)
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	yTrue, err := metrics.AsVector("LinearRegression.Score", y)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yPred.(*mat.VecDense))
}
