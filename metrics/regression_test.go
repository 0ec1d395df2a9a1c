package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name   string
		metric func(yTrue, yPred *mat.VecDense) (float64, error)
		yTrue  []float64
		yPred  []float64
		want   float64
	}{
		{"MSE perfect", MSE, []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, 0},
		{"MSE simple", MSE, []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.25},
		{"MSE larger errors", MSE, []float64{10, 20, 30}, []float64{12, 18, 33}, 17.0 / 3.0},
		{"RMSE", RMSE, []float64{1, 2, 3, 4}, []float64{1.5, 2.5, 2.5, 3.5}, 0.5},
		{"MAE", MAE, []float64{10, 20, 30}, []float64{12, 18, 33}, 7.0 / 3.0},
		{"R2 perfect", R2Score, []float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5}, 1},
		{"R2 worse than mean", R2Score, []float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.metric(
				mat.NewVecDense(len(tt.yTrue), tt.yTrue),
				mat.NewVecDense(len(tt.yPred), tt.yPred),
			)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRegressionMetricErrors(t *testing.T) {
	three := mat.NewVecDense(3, []float64{1, 2, 3})
	two := mat.NewVecDense(2, []float64{1, 2})

	for name, metric := range map[string]func(yTrue, yPred *mat.VecDense) (float64, error){
		"MSE": MSE, "RMSE": RMSE, "MAE": MAE, "R2Score": R2Score,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := metric(three, two)
			var dimErr *errors.DimensionError
			assert.True(t, errors.As(err, &dimErr))

			_, err = metric(&mat.VecDense{}, &mat.VecDense{})
			var valueErr *errors.ValueError
			assert.True(t, errors.As(err, &valueErr))
		})
	}

	_, err := R2Score(mat.NewVecDense(3, []float64{3, 3, 3}), three)
	assert.Error(t, err)
}

func TestMSEMatrix(t *testing.T) {
	got, err := MSEMatrix(
		mat.NewDense(3, 1, []float64{10, 20, 30}),
		mat.NewDense(3, 1, []float64{12, 18, 33}),
	)
	require.NoError(t, err)
	assert.InDelta(t, 17.0/3.0, got, 1e-10)

	_, err = MSEMatrix(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.Error(t, err)
}

func BenchmarkMSE(b *testing.B) {
	size := 10000
	yTrue := mat.NewVecDense(size, nil)
	yPred := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		yTrue.SetVec(i, float64(i))
		yPred.SetVec(i, float64(i)+0.1*float64(i%10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
