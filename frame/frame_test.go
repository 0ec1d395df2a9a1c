package frame

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/carprice/pkg/errors"
)

const sampleCSV = `manufacturer,model,vehicle_age,price
toyota,corolla,3,12000
toyota,,5,9000
honda,civic,NA,15000
ford,focus,2,11000
`

func TestReadCSVDetectsTypesAndNA(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, df.Nrow())
	assert.Equal(t, []string{"manufacturer", "model"}, CategoricalColumns(df))
	assert.Equal(t, []string{"vehicle_age", "price"}, NumericColumns(df))

	ages, err := Floats(df, "vehicle_age")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ages[2]))
	assert.Equal(t, 3.0, ages[0])

	models, err := Strings(df, "model")
	require.NoError(t, err)
	assert.Equal(t, "NaN", models[1])
}

func TestRequireColumns(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.NoError(t, RequireColumns(df, "test", "price", "model"))

	err = RequireColumns(df, "test", "price", "fuel", "odometer")
	var missing *errors.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"fuel", "odometer"}, missing.Columns)

	_, err = Floats(df, "model")
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestRowKeysMarksNA(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	keys, valid, err := RowKeys(df, []string{"manufacturer", "model"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true, true}, valid)
	assert.Equal(t, GroupKey{"toyota", "corolla"}, keys[0])
	assert.Equal(t, "toyota / corolla", keys[0].Label())
	assert.NotEqual(t, keys[0].String(), GroupKey{"toyotac", "orolla"}.String())
}

func TestMatrixSubsetAndReplace(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	sub, err := Subset(df, []int{3, 0})
	require.NoError(t, err)
	m, err := Matrix(sub, []string{"vehicle_age", "price"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 11000}, []float64{m.At(0, 0), m.At(0, 1)})
	assert.Equal(t, []float64{3, 12000}, []float64{m.At(1, 0), m.At(1, 1)})

	replaced, err := ReplaceFloats(df, "vehicle_age", []float64{1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, series.Float, replaced.Col("vehicle_age").Type())
	original, _ := Floats(df, "vehicle_age")
	assert.Equal(t, 3.0, original[0])

	dropped, err := Drop(df, "price")
	require.NoError(t, err)
	assert.False(t, HasColumn(dropped, "price"))
	assert.True(t, HasColumn(df, "price"))

	_, err = Select(df, []string{"price", "missing"})
	assert.Error(t, err)
}

func TestWriteCSVFileRoundTrip(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSVFile(df, path))

	back, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, df.Names(), back.Names())
	assert.Equal(t, df.Nrow(), back.Nrow())
}

func TestCheckUnique(t *testing.T) {
	assert.NoError(t, CheckUnique("group_columns", []string{"a", "b"}))
	assert.Error(t, CheckUnique("group_columns", []string{"a", "b", "a"}))
}
