package errors

import (
	"math"
)

// CheckScalar checks a single scalar value for numerical instability.
func CheckScalar(operation string, value float64, iteration int) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NewNumericalInstabilityError(operation, []float64{value}, iteration)
	}
	return nil
}

// CheckMatrix checks all values in a matrix for numerical instability.
// NaN is tolerated when allowNaN is set, which is how missing values travel
// through the max-abs scaler.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int, allowNaN bool) error {
	var unstable []float64

	for i := 0; i < rows && len(unstable) < 10; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsInf(v, 0) || (!allowNaN && math.IsNaN(v)) {
				unstable = append(unstable, v)
				if len(unstable) >= 10 {
					break
				}
			}
		}
	}

	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable, 0)
	}
	return nil
}
