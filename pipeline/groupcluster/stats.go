package groupcluster

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pkg/errors"
)

// SummaryStats holds one row per distinct group key, sorted by key.
type SummaryStats struct {
	Keys   []frame.GroupKey
	Mean   []float64
	Median []float64
	// Rows is the number of dataset rows in each group.
	Rows []int
	// Cluster is set by Train; nil before.
	Cluster []int
}

// Len returns the number of groups.
func (s *SummaryStats) Len() int {
	return len(s.Keys)
}

// Features returns the [mean, median] matrix used for clustering.
func (s *SummaryStats) Features() *mat.Dense {
	X := mat.NewDense(s.Len(), 2, nil)
	X.SetCol(0, s.Mean)
	X.SetCol(1, s.Median)
	return X
}

// withClusters returns a copy of s carrying the given assignment.
func (s *SummaryStats) withClusters(labels []int) *SummaryStats {
	out := *s
	out.Cluster = append([]int(nil), labels...)
	return &out
}

// summarize groups rows by key and computes mean and median price per group.
// Rows whose key contains NA are left out; NA prices are skipped.
func summarize(data dataframe.DataFrame, groupColumns []string) (*SummaryStats, int, error) {
	keys, valid, err := frame.RowKeys(data, groupColumns)
	if err != nil {
		return nil, 0, err
	}
	prices, err := frame.Floats(data, frame.PriceColumn)
	if err != nil {
		return nil, 0, err
	}

	index := make(map[string]int)
	var (
		groupKeys   []frame.GroupKey
		groupPrices [][]float64
		groupRows   []int
	)
	skipped := 0
	for i, key := range keys {
		if !valid[i] {
			skipped++
			continue
		}
		g, ok := index[key.String()]
		if !ok {
			g = len(groupKeys)
			index[key.String()] = g
			groupKeys = append(groupKeys, key)
			groupPrices = append(groupPrices, nil)
			groupRows = append(groupRows, 0)
		}
		groupRows[g]++
		if !math.IsNaN(prices[i]) {
			groupPrices[g] = append(groupPrices[g], prices[i])
		}
	}
	if len(groupKeys) == 0 {
		return nil, skipped, errors.NewValueError("groupcluster.Preprocess", "no rows with a complete group key")
	}

	order := make([]int, len(groupKeys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return slices.Compare(groupKeys[order[a]], groupKeys[order[b]]) < 0
	})

	stats := &SummaryStats{
		Keys:   make([]frame.GroupKey, len(order)),
		Mean:   make([]float64, len(order)),
		Median: make([]float64, len(order)),
		Rows:   make([]int, len(order)),
	}
	for i, g := range order {
		if len(groupPrices[g]) == 0 {
			return nil, skipped, errors.NewValueError("groupcluster.Preprocess",
				fmt.Sprintf("group %q has no observed price", groupKeys[g].Label()))
		}
		stats.Keys[i] = groupKeys[g]
		stats.Mean[i] = stat.Mean(groupPrices[g], nil)
		stats.Median[i] = median(groupPrices[g])
		stats.Rows[i] = groupRows[g]
	}
	return stats, skipped, nil
}

// median returns the midpoint of the sorted values, averaging the two middle
// values for even lengths.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
