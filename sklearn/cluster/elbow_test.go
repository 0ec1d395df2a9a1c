package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

func TestLocateKnee(t *testing.T) {
	tests := []struct {
		name        string
		ks          []int
		distortions []float64
		wantK       int
		wantOK      bool
	}{
		{"sharp elbow", []int{2, 3, 4, 5, 6}, []float64{100, 20, 15, 12, 10}, 3, true},
		{"straight line", []int{2, 3, 4}, []float64{30, 20, 10}, 0, false},
		{"too few candidates", []int{2, 3}, []float64{10, 1}, 0, false},
		{"flat", []int{2, 3, 4}, []float64{5, 5, 5}, 0, false},
		{"concave", []int{2, 3, 4, 5}, []float64{100, 95, 80, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok, reason := LocateKnee(tt.ks, tt.distortions)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantK, k)
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestKElbowFindsBlobCount(t *testing.T) {
	X := threeBlobs(15, 3)
	result, err := NewKElbow(2, 8, WithKMeansRandomState(42)).Fit(X)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8}, result.Ks)
	assert.Len(t, result.Distortions, 7)
	assert.True(t, result.Found)
	assert.Equal(t, 3, result.K)
}

func TestKElbowClampsUpperToSamples(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})

	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	result, err := NewKElbow(2, 10, WithKMeansRandomState(1)).Fit(X)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, result.Ks)
	assert.Equal(t, 0.0, result.Distortions[2])
	if !result.Found {
		assert.Equal(t, 2, result.K)
		require.Len(t, warnings, 1)
		var elbowWarn *errors.ElbowWarning
		assert.True(t, errors.As(warnings[0], &elbowWarn))
	}
}

func TestKElbowFallsBackWithWarning(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 5, 10})

	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	result, err := NewKElbow(2, 10, WithKMeansRandomState(1)).Fit(X)
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, 2, result.K)
	require.Len(t, warnings, 1)
	var elbowWarn *errors.ElbowWarning
	require.True(t, errors.As(warnings[0], &elbowWarn))
	assert.Equal(t, 2, elbowWarn.Fallback)
}

func TestKElbowTooFewSamples(t *testing.T) {
	_, err := NewKElbow(3, 10).Fit(mat.NewDense(2, 1, []float64{1, 2}))
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))

	_, err = NewKElbow(5, 4).Fit(mat.NewDense(6, 1, nil))
	var validationErr *errors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}
