// Package groupcluster groups vehicles by categorical columns, clusters the
// groups by their price behaviour and adds the cluster id to every row as a
// new feature.
package groupcluster

import (
	"math"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pipeline"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
	"github.com/YuminosukeSato/carprice/preprocessing"
	"github.com/YuminosukeSato/carprice/sklearn/cluster"
	"github.com/YuminosukeSato/carprice/visualize"
)

const pipelineName = "groupcluster"

// Stage names.
const (
	StagePreprocess = "preprocess"
	StageTrain      = "train"
	StageVisualize  = "visualize"
	StageMerge      = "merge_clusters"
)

// Snapshot is the state passed between stages. Stages never modify the
// snapshot they receive; they return an updated copy.
type Snapshot struct {
	// Data is the raw dataset.
	Data dataframe.DataFrame
	// Stats is set by Preprocess and gains Cluster in Train.
	Stats *SummaryStats
	// Features are the standardised [mean, median] statistics.
	Features *mat.Dense
	// Elbow is the k search result.
	Elbow *cluster.ElbowResult
	// Model is the KMeans fit with the elbow k.
	Model *cluster.FittedKMeans
	// Silhouette is the mean silhouette coefficient, NaN when undefined.
	Silhouette float64
	// Augmented is the dataset with the cluster column, set by MergeClusters.
	Augmented *dataframe.DataFrame
}

// GroupClusterer runs the grouping and clustering pipeline over one dataset.
type GroupClusterer struct {
	data         dataframe.DataFrame
	groupColumns []string
	column       ClusterColumn

	kLower      int
	kUpper      int
	nInit       int
	randomState int64
	seeded      bool
	plotDir     string
	logger      log.Logger
}

// Option configures a GroupClusterer.
type Option func(*GroupClusterer)

// WithKRange sets the inclusive range of cluster counts the elbow search tries.
func WithKRange(lower, upper int) Option {
	return func(g *GroupClusterer) {
		g.kLower = lower
		g.kUpper = upper
	}
}

// WithRandomState fixes the seed used by KMeans.
func WithRandomState(seed int64) Option {
	return func(g *GroupClusterer) {
		g.randomState = seed
		g.seeded = true
	}
}

// WithNInit sets how many KMeans initialisations are tried per k.
func WithNInit(n int) Option {
	return func(g *GroupClusterer) {
		g.nInit = n
	}
}

// WithPlotDir renders the diagnostic plots into dir. Empty disables plotting.
func WithPlotDir(dir string) Option {
	return func(g *GroupClusterer) {
		g.plotDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(g *GroupClusterer) {
		g.logger = logger
	}
}

// New validates the dataset and returns a GroupClusterer. price and every
// grouping column must be present.
func New(data dataframe.DataFrame, groupColumns []string, opts ...Option) (*GroupClusterer, error) {
	if len(groupColumns) == 0 {
		return nil, errors.NewValidationError("group_columns", "at least one grouping column is required", groupColumns)
	}
	if err := frame.CheckUnique("group_columns", groupColumns); err != nil {
		return nil, err
	}
	if err := frame.RequireColumns(data, "groupcluster.New", append([]string{frame.PriceColumn}, groupColumns...)...); err != nil {
		return nil, err
	}
	if !frame.IsNumeric(data.Col(frame.PriceColumn)) {
		return nil, errors.NewValidationError(frame.PriceColumn, "column must be numeric", data.Col(frame.PriceColumn).Type())
	}

	g := &GroupClusterer{
		data:         data,
		groupColumns: append([]string(nil), groupColumns...),
		column:       NewClusterColumn(groupColumns),
		kLower:       2,
		kUpper:       10,
		nInit:        10,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.kLower < 1 {
		return nil, errors.NewValidationError("k_lower", "must be at least 1", g.kLower)
	}
	if g.kUpper < g.kLower {
		return nil, errors.NewValidationError("k_upper", "must not be below k_lower", g.kUpper)
	}
	if g.nInit < 1 {
		return nil, errors.NewValidationError("n_init", "must be at least 1", g.nInit)
	}
	if !g.seeded {
		g.randomState = time.Now().UnixNano()
	}
	if g.logger == nil {
		g.logger = log.GetLoggerWithName("GroupClusterer")
	}
	g.logger = g.logger.With(log.ColumnKey, g.column.Label)
	return g, nil
}

// Seed returns the seed passed to KMeans.
func (g *GroupClusterer) Seed() int64 {
	return g.randomState
}

// Column returns the cluster column this run adds.
func (g *GroupClusterer) Column() ClusterColumn {
	return g.column
}

// Initial returns the snapshot the first stage starts from.
func (g *GroupClusterer) Initial() Snapshot {
	return Snapshot{Data: g.data, Silhouette: math.NaN()}
}

// Stages returns the stages in the order AnalyzeAndCluster runs them.
func (g *GroupClusterer) Stages() []pipeline.Stage[Snapshot] {
	return []pipeline.Stage[Snapshot]{
		{Name: StagePreprocess, Run: g.Preprocess},
		{Name: StageTrain, Run: g.Train},
		{Name: StageVisualize, Run: g.Visualize},
		{Name: StageMerge, Run: g.MergeClusters},
	}
}

// Preprocess computes mean and median price per group key.
func (g *GroupClusterer) Preprocess(s Snapshot) (Snapshot, error) {
	stats, skipped, err := summarize(s.Data, g.groupColumns)
	if err != nil {
		return s, err
	}
	if skipped > 0 {
		g.logger.Warn("rows with missing group key values belong to no group",
			log.MissingKey, skipped)
	}
	g.logger.Info("group statistics computed",
		log.GroupsKey, stats.Len(),
		log.SamplesKey, s.Data.Nrow(),
	)

	s.Stats = stats
	return s, nil
}

// Train standardises the statistics, picks k with the elbow method and
// assigns every group a cluster.
func (g *GroupClusterer) Train(s Snapshot) (Snapshot, error) {
	if s.Stats == nil {
		return s, errors.NewStageOrderError(StageTrain, StagePreprocess)
	}

	_, features, err := model.FitTransform[*preprocessing.FittedStandardScaler](
		preprocessing.NewStandardScalerDefault(), s.Stats.Features())
	if err != nil {
		return s, err
	}

	kmeansOpts := []cluster.KMeansOption{
		cluster.WithKMeansRandomState(g.randomState),
		cluster.WithKMeansNInit(g.nInit),
	}
	elbow, err := cluster.NewKElbow(g.kLower, g.kUpper, kmeansOpts...).Fit(features)
	if err != nil {
		return s, err
	}
	g.logger.Info("elbow selected",
		log.ClusterKKey, elbow.K,
		"elbow.found", elbow.Found,
		log.RandomSeedKey, g.randomState,
	)

	fitted, err := cluster.NewKMeans(append(kmeansOpts, cluster.WithKMeansNClusters(elbow.K))...).Fit(features)
	if err != nil {
		return s, err
	}
	g.logger.Debug("kmeans fitted", log.InertiaKey, fitted.Inertia, log.IterationKey, fitted.NIter)

	if g.plotDir != "" {
		path := g.plotPath("elbow")
		if err := visualize.ElbowPlot(elbow.Ks, elbow.Distortions, elbow.K, "Distortion score elbow for "+g.column.Label, path); err != nil {
			g.logger.Warn("elbow plot not rendered", log.ErrAttrKey, err)
		} else {
			g.logger.Info("elbow plot written", log.ArtifactPathKey, path)
		}
	}

	s.Stats = s.Stats.withClusters(fitted.Labels)
	s.Features = features
	s.Elbow = elbow
	s.Model = fitted
	return s, nil
}

// Visualize computes the mean silhouette coefficient of the clustering and
// renders diagnostics when a plot directory is configured. An undefined
// silhouette is reported as a warning.
func (g *GroupClusterer) Visualize(s Snapshot) (Snapshot, error) {
	if s.Model == nil || s.Stats == nil || s.Stats.Cluster == nil {
		return s, errors.NewStageOrderError(StageVisualize, StageTrain)
	}

	scores, err := cluster.SilhouetteSamples(s.Features, s.Stats.Cluster)
	var undefined *errors.UndefinedMetricWarning
	switch {
	case errors.As(err, &undefined):
		errors.Warn(undefined)
		g.logger.Warn("silhouette score undefined", log.ClusterKKey, s.Model.NClusters(), log.GroupsKey, s.Stats.Len())
		s.Silhouette = math.NaN()
		return s, nil
	case err != nil:
		return s, err
	}

	mean := stat.Mean(scores, nil)
	s.Silhouette = mean
	g.logger.Info("silhouette computed", log.SilhouetteKey, mean, log.ClusterKKey, s.Model.NClusters())

	if g.plotDir != "" {
		path := g.plotPath("silhouette")
		if err := visualize.SilhouettePlot(scores, s.Stats.Cluster, mean, "Silhouette plot for "+g.column.Label, path); err != nil {
			g.logger.Warn("silhouette plot not rendered", log.ErrAttrKey, err)
		}
		points := make([][]float64, s.Stats.Len())
		for i := range points {
			points[i] = mat.Row(nil, i, s.Features)
		}
		path = g.plotPath("clusters")
		if err := visualize.ClusterScatter(points, s.Stats.Cluster, s.Model.Centers, "Groups by cluster for "+g.column.Label, path); err != nil {
			g.logger.Warn("cluster plot not rendered", log.ErrAttrKey, err)
		}
	}
	return s, nil
}

// MergeClusters adds the cluster id of each row's group to the dataset. Every
// row must match exactly one group and the row count must not change.
func (g *GroupClusterer) MergeClusters(s Snapshot) (Snapshot, error) {
	if s.Stats == nil || s.Stats.Cluster == nil {
		return s, errors.NewStageOrderError(StageMerge, StageTrain)
	}
	if frame.HasColumn(s.Data, g.column.Label) {
		return s, errors.NewValidationError("cluster_column", "column already exists in the dataset", g.column.Label)
	}

	assignment := make(map[string]int, s.Stats.Len())
	for i, key := range s.Stats.Keys {
		assignment[key.String()] = s.Stats.Cluster[i]
	}

	keys, valid, err := frame.RowKeys(s.Data, g.groupColumns)
	if err != nil {
		return s, err
	}
	expected := s.Data.Nrow()
	labels := make([]int, expected)
	unmatched, firstRow := 0, -1
	for i, key := range keys {
		id, ok := assignment[key.String()]
		if !valid[i] || !ok {
			if firstRow < 0 {
				firstRow = i
			}
			unmatched++
			continue
		}
		labels[i] = id
	}
	if unmatched > 0 {
		return s, errors.NewMergeInvariantError(g.column.Label, expected, expected-unmatched, unmatched, firstRow)
	}

	augmented := s.Data.Mutate(series.New(labels, series.Int, g.column.Label))
	if augmented.Err != nil {
		return s, errors.Wrapf(augmented.Err, "add column %s", g.column.Label)
	}
	if augmented.Nrow() != expected {
		return s, errors.NewMergeInvariantError(g.column.Label, expected, augmented.Nrow(), 0, -1)
	}

	s.Augmented = &augmented
	return s, nil
}

// Result is the outcome of AnalyzeAndCluster.
type Result struct {
	// Data is the dataset with the cluster column as a categorical label.
	Data dataframe.DataFrame
	// Column identifies the added column.
	Column ClusterColumn
	// Report summarises each cluster.
	Report []ClusterSummary
	// ElbowK is the chosen number of clusters.
	ElbowK int
	// Silhouette is the mean silhouette coefficient, NaN when undefined.
	Silhouette float64
	// Stats are the per-group statistics with their cluster.
	Stats *SummaryStats
}

// AnalyzeAndCluster runs preprocess, train, visualize and merge in order and
// returns the augmented dataset. No dataset is returned on error.
func (g *GroupClusterer) AnalyzeAndCluster() (*Result, error) {
	final, err := pipeline.Run(pipelineName, g.logger, g.Initial(), g.Stages()...)
	if err != nil {
		return nil, err
	}

	report, err := buildReport(*final.Augmented, final.Stats, g.column.Label)
	if err != nil {
		return nil, err
	}
	for _, c := range report {
		g.logger.Info("cluster summary",
			log.ClusterIDKey, c.Cluster,
			log.GroupsKey, c.Groups,
			log.ClusterSizeKey, c.Rows,
			"price.group_mean", c.GroupMeanPrice,
			log.PriceMeanKey, c.MeanPrice,
			log.PriceMinKey, c.MinPrice,
			log.PriceMaxKey, c.MaxPrice,
		)
	}

	labels := final.Augmented.Col(g.column.Label).Records()
	data := final.Augmented.Mutate(series.New(labels, series.String, g.column.Label))
	if data.Err != nil {
		return nil, errors.Wrapf(data.Err, "cast %s to label", g.column.Label)
	}

	return &Result{
		Data:       data,
		Column:     g.column,
		Report:     report,
		ElbowK:     final.Elbow.K,
		Silhouette: final.Silhouette,
		Stats:      final.Stats,
	}, nil
}

func (g *GroupClusterer) plotPath(kind string) string {
	return filepath.Join(g.plotDir, kind+"_"+g.column.Label+".png")
}
