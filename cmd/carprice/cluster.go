package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pipeline/groupcluster"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func (a *app) clusterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster vehicle groups by price and add the cluster column",
		Example: `  carprice cluster -i vehicles.csv --groups manufacturer,model --output clustered.csv
  CARPRICE_CLUSTER_GROUPS=manufacturer carprice cluster -i vehicles.csv --plot-dir plots`,
		Args: cobra.NoArgs,
		RunE: a.runCluster,
	}

	f := cmd.Flags()
	f.StringSlice("groups", nil, "grouping columns")
	f.Int("k-min", 2, "smallest cluster count tried by the elbow search")
	f.Int("k-max", 10, "largest cluster count tried by the elbow search")
	f.Int("n-init", 10, "kmeans restarts per k")
	f.String("plot-dir", "", "directory for elbow and silhouette plots")
	f.StringP("output", "o", "", "write the augmented dataset to this CSV")
	f.String("report", "", "write the cluster report to this YAML file")
	a.bind(cmd, keyGroups, "groups")
	a.bind(cmd, keyKMin, "k-min")
	a.bind(cmd, keyKMax, "k-max")
	a.bind(cmd, keyNInit, "n-init")
	a.bind(cmd, keyPlotDir, "plot-dir")
	a.bind(cmd, keyOutput, "output")
	a.bind(cmd, keyReport, "report")
	return cmd
}

func (a *app) runCluster(cmd *cobra.Command, _ []string) error {
	cfg := a.cfg
	if err := cfg.RequireInput(); err != nil {
		return err
	}
	if len(cfg.GroupColumns) == 0 {
		return errors.NewValidationError(keyGroups, "at least one grouping column is required", cfg.GroupColumns)
	}

	data, err := frame.ReadCSVFile(cfg.Input)
	if err != nil {
		return err
	}
	a.logger.Info("dataset loaded", log.SamplesKey, data.Nrow(), log.ColumnsKey, data.Names())

	opts := []groupcluster.Option{
		groupcluster.WithKRange(cfg.KMin, cfg.KMax),
		groupcluster.WithNInit(cfg.NInit),
		groupcluster.WithPlotDir(cfg.PlotDir),
		groupcluster.WithLogger(a.logger),
	}
	if cfg.Seed != nil {
		opts = append(opts, groupcluster.WithRandomState(*cfg.Seed))
	}
	gc, err := groupcluster.New(data, cfg.GroupColumns, opts...)
	if err != nil {
		return err
	}
	result, err := gc.AnalyzeAndCluster()
	if err != nil {
		return err
	}

	if cfg.Report != "" {
		if err := writeClusterReport(cfg.Report, gc, result); err != nil {
			return err
		}
		a.logger.Info("cluster report written", log.ArtifactPathKey, cfg.Report)
	}

	out := cmd.OutOrStdout()
	if cfg.Output != "" {
		if err := frame.WriteCSVFile(result.Data, cfg.Output); err != nil {
			return err
		}
		a.logger.Info("augmented dataset written", log.ArtifactPathKey, cfg.Output)
	} else if err := result.Data.WriteCSV(out); err != nil {
		return errors.Wrap(err, "write augmented dataset")
	}
	return nil
}

// clusterReport is the YAML document written by --report.
type clusterReport struct {
	Column       string                        `yaml:"column"`
	GroupColumns []string                      `yaml:"group_columns"`
	K            int                           `yaml:"k"`
	Silhouette   float64                       `yaml:"silhouette"`
	Seed         int64                         `yaml:"seed"`
	Clusters     []groupcluster.ClusterSummary `yaml:"clusters"`
	// Assignments maps each group label to its cluster.
	Assignments map[string]int `yaml:"assignments"`
}

func writeClusterReport(path string, gc *groupcluster.GroupClusterer, result *groupcluster.Result) error {
	doc := clusterReport{
		Column:       result.Column.Label,
		GroupColumns: result.Column.Sources,
		K:            result.ElbowK,
		Silhouette:   result.Silhouette,
		Seed:         gc.Seed(),
		Clusters:     result.Report,
		Assignments:  make(map[string]int, result.Stats.Len()),
	}
	for i, key := range result.Stats.Keys {
		doc.Assignments[key.Label()] = result.Stats.Cluster[i]
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encode cluster report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
