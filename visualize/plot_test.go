package visualize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestElbowPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "elbow_cluster_make.png")
	err := ElbowPlot([]int{2, 3, 4, 5}, []float64{100, 20, 15, 12}, 3, "elbow", path)
	require.NoError(t, err)
	requireNonEmptyFile(t, path)

	assert.Error(t, ElbowPlot([]int{2, 3}, []float64{1}, 2, "bad", path))
}

func TestSilhouettePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silhouette.svg")
	err := SilhouettePlot([]float64{0.9, 0.8, 0.7, 0.85}, []int{0, 0, 1, 1}, 0.81, "silhouette", path)
	require.NoError(t, err)
	requireNonEmptyFile(t, path)

	assert.Error(t, SilhouettePlot(nil, nil, 0, "empty", path))
}

func TestClusterScatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clusters.png")
	X := [][]float64{{0, 0}, {0.1, 0.2}, {3, 3}, {3.1, 2.9}}
	err := ClusterScatter(X, []int{0, 0, 1, 1}, [][]float64{{0.05, 0.1}, {3.05, 2.95}}, "clusters", path)
	require.NoError(t, err)
	requireNonEmptyFile(t, path)
}
