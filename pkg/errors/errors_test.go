package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "carprice: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "carprice: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Transform", 3, 2, 1)

	assert.Equal(t, "carprice: Transform: dimension mismatch on axis 1 (features). Expected 3, got 2", err.Error())

	var dimErr *DimensionError
	assert.True(t, As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("LinearRegression", "Predict")

	want := "carprice: LinearRegression: this model is not fitted yet. Call Fit() before using Predict()"
	assert.Equal(t, want, err.Error())

	var notFittedErr *NotFittedError
	assert.True(t, As(err, &notFittedErr))
}

func TestNewMissingColumnError(t *testing.T) {
	err := NewMissingColumnError("groupcluster.New", "price", "model")

	assert.Equal(t, "carprice: groupcluster.New: missing required column(s): price, model", err.Error())

	var colErr *MissingColumnError
	require.True(t, As(err, &colErr))
	assert.Equal(t, []string{"price", "model"}, colErr.Columns)
}

func TestNewMergeInvariantError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "unmatched rows",
			err:     NewMergeInvariantError("cluster_make", 10, 10, 2, 4),
			wantMsg: "carprice: merge cluster_make: 2 of 10 rows did not match any group (first at row 4)",
		},
		{
			name:    "fan out",
			err:     NewMergeInvariantError("cluster_make", 10, 12, 0, -1),
			wantMsg: "carprice: merge cluster_make: row count changed from 10 to 12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			var mergeErr *MergeInvariantError
			assert.True(t, As(tt.err, &mergeErr))
		})
	}
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("PurchaseProbability", "actual price is zero at index 3")

	assert.Equal(t, "carprice: PurchaseProbability: actual price is zero at index 3", err.Error())

	var valErr *ValueError
	assert.True(t, As(err, &valErr))
}

func TestWarnings(t *testing.T) {
	conv := NewConvergenceWarning("KMeans", 300, "centres still moving")
	assert.Equal(t, "KMeans failed to converge after 300 iterations: centres still moving", conv.Error())

	elbow := NewElbowWarning(2, 10, 2, "curve is not convex")
	assert.Equal(t, "no elbow found for k in [2, 10] (curve is not convex); using k=2", elbow.Error())
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewElbowWarning(2, 3, 2, "too few candidates"))

	require.Len(t, got, 1)
	var elbow *ElbowWarning
	assert.True(t, As(got[0], &elbow))
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in KMeans.Fit")

	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.True(t, strings.Contains(wrapped.Error(), "in KMeans.Fit"))
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Contains(t, wrapped.Error(), "in Predict: expected 10, got 5")
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("op", 1.5, 0))
	assert.Error(t, CheckScalar("op", 1.0/zero(), 0))
}

func zero() float64 { return 0 }
