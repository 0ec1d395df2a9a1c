package groupcluster

import "strings"

// ClusterColumn names the column a clustering run adds to the dataset.
type ClusterColumn struct {
	// Sources are the grouping columns, in order.
	Sources []string
	// Label is the generated column name.
	Label string
}

// NewClusterColumn builds the column key for the given grouping columns.
// The label is "cluster_" followed by the sources joined with "_".
func NewClusterColumn(sources []string) ClusterColumn {
	return ClusterColumn{
		Sources: append([]string(nil), sources...),
		Label:   "cluster_" + strings.Join(sources, "_"),
	}
}
