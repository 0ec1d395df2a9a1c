package groupcluster

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

type vehicle struct {
	make, model string
	prices      []float64
}

var fleet = []vehicle{
	{"audi", "a8", []float64{61000, 59000, 60000}},
	{"bmw", "m5", []float64{64000, 66000, 65000}},
	{"ford", "focus", []float64{21000, 19000, 20000}},
	{"honda", "civic", []float64{22000, 23000, 21000}},
	{"fiat", "panda", []float64{7000, 8000, 9000}},
	{"dacia", "sandero", []float64{6000, 7000, 6500}},
	{"toyota", "yaris", []float64{9000, 9500, 8500}},
}

func fleetFrame(extra ...vehicle) dataframe.DataFrame {
	var makes, models []string
	var prices []float64
	for _, v := range append(append([]vehicle(nil), fleet...), extra...) {
		for _, p := range v.prices {
			makes = append(makes, v.make)
			models = append(models, v.model)
			prices = append(prices, p)
		}
	}
	return dataframe.New(
		series.New(makes, series.String, "manufacturer"),
		series.New(models, series.String, "model"),
		series.New(prices, series.Float, "price"),
	)
}

func quiet(t *testing.T) *log.TestLogger {
	t.Helper()
	errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return logger
}

func TestAnalyzeAndCluster(t *testing.T) {
	logger := quiet(t)
	data := fleetFrame()

	gc, err := New(data, []string{"manufacturer", "model"},
		WithRandomState(42), WithKRange(2, 6), WithLogger(logger))
	require.NoError(t, err)

	result, err := gc.AnalyzeAndCluster()
	require.NoError(t, err)

	assert.Equal(t, "cluster_manufacturer_model", result.Column.Label)
	assert.Equal(t, []string{"manufacturer", "model"}, result.Column.Sources)
	assert.Equal(t, data.Nrow(), result.Data.Nrow())
	assert.Equal(t, series.String, result.Data.Col(result.Column.Label).Type())
	assert.False(t, frame.HasColumn(data, result.Column.Label))

	// 3つの価格帯
	assert.Equal(t, 3, result.ElbowK)
	assert.Greater(t, result.Silhouette, 0.5)

	labels := result.Data.Col(result.Column.Label).Records()
	for g := range fleet {
		for r := 1; r < 3; r++ {
			assert.Equal(t, labels[g*3], labels[g*3+r], "rows of one group share a cluster")
		}
	}
	assert.Equal(t, labels[0], labels[3], "audi and bmw are both premium")
	assert.NotEqual(t, labels[0], labels[6])

	total := 0
	for _, c := range result.Report {
		total += c.Rows
		assert.LessOrEqual(t, c.MinPrice, c.MeanPrice)
		assert.LessOrEqual(t, c.MeanPrice, c.MaxPrice)
	}
	assert.Equal(t, data.Nrow(), total)
	assert.True(t, logger.ContainsMessage("cluster summary"))
	assert.True(t, logger.ContainsField(log.StageKey, StageMerge))
}

func TestClusterIDsInRangeForEveryK(t *testing.T) {
	quiet(t)
	data := fleetFrame()

	for k := 2; k <= len(fleet); k++ {
		gc, err := New(data, []string{"manufacturer", "model"}, WithRandomState(7), WithKRange(k, k), WithNInit(3))
		require.NoError(t, err)

		s, err := gc.Preprocess(gc.Initial())
		require.NoError(t, err)
		s, err = gc.Train(s)
		require.NoError(t, err)

		require.Equal(t, k, s.Elbow.K)
		require.Len(t, s.Stats.Cluster, s.Stats.Len())
		for _, id := range s.Stats.Cluster {
			assert.GreaterOrEqual(t, id, 0)
			assert.Less(t, id, k)
		}
	}
}

func TestPreprocessSortsKeysAndComputesMedian(t *testing.T) {
	quiet(t)
	data := dataframe.New(
		series.New([]string{"b", "a", "b", "a", "a", "a"}, series.String, "make"),
		series.New([]float64{10, 1, 30, 2, 3, 100}, series.Float, "price"),
	)
	gc, err := New(data, []string{"make"}, WithRandomState(1))
	require.NoError(t, err)

	initial := gc.Initial()
	s, err := gc.Preprocess(initial)
	require.NoError(t, err)
	assert.Nil(t, initial.Stats)

	assert.Equal(t, []frame.GroupKey{{"a"}, {"b"}}, s.Stats.Keys)
	assert.Equal(t, []float64{26.5, 20}, s.Stats.Mean)
	assert.Equal(t, []float64{2.5, 20}, s.Stats.Median)
	assert.Equal(t, []int{4, 2}, s.Stats.Rows)
}

func TestMergeFailsOnMissingGroupKey(t *testing.T) {
	quiet(t)
	data := fleetFrame(vehicle{"NaN", "ghost", []float64{30000}})

	gc, err := New(data, []string{"manufacturer", "model"}, WithRandomState(3), WithKRange(2, 4))
	require.NoError(t, err)

	result, err := gc.AnalyzeAndCluster()
	require.Error(t, err)
	assert.Nil(t, result)

	var mergeErr *errors.MergeInvariantError
	require.True(t, errors.As(err, &mergeErr))
	assert.Equal(t, 1, mergeErr.Unmatched)
	assert.Equal(t, data.Nrow()-1, mergeErr.FirstRow)
	assert.Equal(t, data.Nrow(), mergeErr.ExpectedRows)
}

func TestMergeRejectsExistingColumn(t *testing.T) {
	quiet(t)
	data := fleetFrame()
	data = data.Mutate(series.New(make([]int, data.Nrow()), series.Int, "cluster_manufacturer"))

	gc, err := New(data, []string{"manufacturer"}, WithRandomState(3), WithKRange(2, 4))
	require.NoError(t, err)

	_, err = gc.AnalyzeAndCluster()
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestStageOrder(t *testing.T) {
	quiet(t)
	gc, err := New(fleetFrame(), []string{"manufacturer"}, WithRandomState(3))
	require.NoError(t, err)

	var orderErr *errors.StageOrderError
	_, err = gc.Train(gc.Initial())
	assert.True(t, errors.As(err, &orderErr))
	_, err = gc.Visualize(gc.Initial())
	assert.True(t, errors.As(err, &orderErr))
	_, err = gc.MergeClusters(gc.Initial())
	assert.True(t, errors.As(err, &orderErr))
}

func TestNewValidation(t *testing.T) {
	data := fleetFrame()

	_, err := New(data, []string{"manufacturer", "trim"})
	var missing *errors.MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"trim"}, missing.Columns)

	noPrice, err := frame.Drop(data, "price")
	require.NoError(t, err)
	_, err = New(noPrice, []string{"manufacturer"})
	assert.True(t, errors.As(err, &missing))

	var validation *errors.ValidationError
	_, err = New(data, nil)
	assert.True(t, errors.As(err, &validation))
	_, err = New(data, []string{"model", "model"})
	assert.True(t, errors.As(err, &validation))
	_, err = New(data, []string{"model"}, WithKRange(5, 3))
	assert.True(t, errors.As(err, &validation))
}

func TestNegativeSeedIsKept(t *testing.T) {
	data := fleetFrame()
	gc, err := New(data, []string{"manufacturer"}, WithRandomState(-7))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), gc.Seed())

	unseeded, err := New(data, []string{"manufacturer"})
	require.NoError(t, err)
	assert.NotEqual(t, int64(-7), unseeded.Seed())
}

func TestTooFewGroupsForLowerBound(t *testing.T) {
	quiet(t)
	data := dataframe.New(
		series.New([]string{"a", "a", "b"}, series.String, "make"),
		series.New([]float64{1, 2, 3}, series.Float, "price"),
	)
	gc, err := New(data, []string{"make"}, WithKRange(3, 5), WithRandomState(1))
	require.NoError(t, err)

	_, err = gc.AnalyzeAndCluster()
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestUndefinedSilhouetteIsNotFatal(t *testing.T) {
	quiet(t)
	// 2グループで k=2 のとき k >= グループ数となりシルエットは未定義
	data := dataframe.New(
		series.New([]string{"a", "a", "b", "b"}, series.String, "make"),
		series.New([]float64{1, 2, 30, 40}, series.Float, "price"),
	)
	gc, err := New(data, []string{"make"}, WithKRange(2, 2), WithRandomState(1))
	require.NoError(t, err)

	result, err := gc.AnalyzeAndCluster()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(result.Silhouette))
	assert.Equal(t, 4, result.Data.Nrow())
}

func TestPlotsWrittenToPlotDir(t *testing.T) {
	quiet(t)
	dir := t.TempDir()
	gc, err := New(fleetFrame(), []string{"manufacturer", "model"}, WithRandomState(42), WithPlotDir(dir))
	require.NoError(t, err)

	_, err = gc.AnalyzeAndCluster()
	require.NoError(t, err)

	for _, kind := range []string{"elbow", "silhouette", "clusters"} {
		_, err := os.Stat(filepath.Join(dir, kind+"_cluster_manufacturer_model.png"))
		assert.NoError(t, err, kind)
	}
}
