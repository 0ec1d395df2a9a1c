package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	fitted, scaled, err := model.FitTransform[*FittedStandardScaler](NewStandardScalerDefault(), X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 10}, fitted.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), fitted.Scale[0], 1e-12)
	// 分散0の列はスケール1
	assert.Equal(t, 1.0, fitted.Scale[1])

	col := mat.Col(nil, 0, scaled)
	assert.InDelta(t, 0, col[0]+col[1]+col[2]+col[3], 1e-12)
	assert.Equal(t, 0.0, scaled.At(2, 1))

	restored, err := fitted.InverseTransform(scaled)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, restored, 1e-12))
}

func TestStandardScalerWithoutMean(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})
	fitted, err := NewStandardScaler(false, true).Fit(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, fitted.Mean)
	assert.Equal(t, []float64{1}, fitted.Scale)
}

func TestStandardScalerErrors(t *testing.T) {
	fitted, err := NewStandardScalerDefault().Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	require.NoError(t, err)

	_, err = fitted.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = NewStandardScalerDefault().Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}))
	assert.Error(t, err)
}

func TestTransformDoesNotMutateFittedState(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, -4, 2, 8, -3, 0})
	fitted, err := NewMaxAbsScaler().Fit(X)
	require.NoError(t, err)

	before := *fitted
	before.MaxAbs = append([]float64(nil), fitted.MaxAbs...)
	before.Scale = append([]float64(nil), fitted.Scale...)

	first, err := fitted.Transform(X)
	require.NoError(t, err)
	second, err := fitted.Transform(X)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second))
	assert.Equal(t, before, *fitted)
	// 入力も変更されない
	assert.Equal(t, 1.0, X.At(0, 0))
}

func TestMaxAbsScaler(t *testing.T) {
	nan := math.NaN()
	X := mat.NewDense(3, 3, []float64{
		1, -4, 0,
		nan, 2, 0,
		-3, 1, 0,
	})

	fitted, err := NewMaxAbsScaler().Fit(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 0}, fitted.MaxAbs)
	assert.Equal(t, []float64{3, 4, 1}, fitted.Scale)

	out, err := fitted.Transform(X)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, out.At(0, 0), 1e-12)
	assert.True(t, math.IsNaN(out.At(1, 0)))
	assert.Equal(t, -1.0, out.At(0, 1))
	assert.Equal(t, 0.0, out.At(2, 2))

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if v := out.At(i, j); !math.IsNaN(v) {
				assert.LessOrEqual(t, math.Abs(v), 1.0)
			}
		}
	}
}

func TestMaxAbsScalerRejectsInf(t *testing.T) {
	_, err := NewMaxAbsScaler().Fit(mat.NewDense(1, 1, []float64{math.Inf(1)}))
	assert.Error(t, err)
}
