package groupcluster

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/frame"
)

// ClusterSummary describes one cluster at the group and row level.
type ClusterSummary struct {
	Cluster int `yaml:"cluster"`
	// Groups is the number of group keys assigned to the cluster.
	Groups int `yaml:"groups"`
	// GroupMeanPrice is the mean of the groups' mean prices.
	GroupMeanPrice float64 `yaml:"group_mean_price"`
	// Rows is the number of dataset rows in the cluster.
	Rows int `yaml:"rows"`
	// MeanPrice, MinPrice and MaxPrice are computed over the rows.
	MeanPrice float64 `yaml:"mean_price"`
	MinPrice  float64 `yaml:"min_price"`
	MaxPrice  float64 `yaml:"max_price"`
}

func buildReport(data dataframe.DataFrame, stats *SummaryStats, label string) ([]ClusterSummary, error) {
	prices, err := frame.Floats(data, frame.PriceColumn)
	if err != nil {
		return nil, err
	}
	ids, err := frame.Floats(data, label)
	if err != nil {
		return nil, err
	}

	groupMeans := make(map[int][]float64)
	for i, c := range stats.Cluster {
		groupMeans[c] = append(groupMeans[c], stats.Mean[i])
	}
	rowCounts := make(map[int]int)
	rowPrices := make(map[int][]float64)
	for i, id := range ids {
		c := int(id)
		rowCounts[c]++
		if !math.IsNaN(prices[i]) {
			rowPrices[c] = append(rowPrices[c], prices[i])
		}
	}

	clusters := make([]int, 0, len(groupMeans))
	for c := range groupMeans {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)

	report := make([]ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		summary := ClusterSummary{
			Cluster:        c,
			Groups:         len(groupMeans[c]),
			GroupMeanPrice: stat.Mean(groupMeans[c], nil),
			Rows:           rowCounts[c],
			MeanPrice:      math.NaN(),
			MinPrice:       math.NaN(),
			MaxPrice:       math.NaN(),
		}
		if p := rowPrices[c]; len(p) > 0 {
			summary.MeanPrice = stat.Mean(p, nil)
			summary.MinPrice = floats.Min(p)
			summary.MaxPrice = floats.Max(p)
		}
		report = append(report, summary)
	}
	return report, nil
}
