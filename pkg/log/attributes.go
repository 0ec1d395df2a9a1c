// Package log defines standard attribute keys for pipeline logging.
//
// Keys follow a dotted naming convention ("data.samples", "cluster.k") so log
// records from both pipelines can be filtered the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or transformer type.
	// Examples: "KMeans", "MaxAbsScaler", "OneHotEncoder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase.
	PhaseKey = "ml.phase"
)

// Pipeline Context
const (
	// PipelineKey names the pipeline ("groupcluster", "tabular").
	PipelineKey = "pipeline.name"

	// StageKey names the stage currently running.
	StageKey = "pipeline.stage"

	// RunIDKey identifies one execution of a pipeline.
	RunIDKey = "pipeline.run_id"

	// StageIndexKey is the zero-based position of the stage.
	StageIndexKey = "pipeline.stage_index"

	// ArtifactPathKey is the path of a written artifact or plot.
	ArtifactPathKey = "pipeline.artifact"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// GroupsKey indicates the number of distinct group keys.
	GroupsKey = "data.groups"

	// ColumnsKey lists column names involved in an operation.
	ColumnsKey = "data.columns"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// PartitionKey names a split partition: "train", "val" or "test".
	PartitionKey = "split.partition"

	// MissingKey counts missing values.
	MissingKey = "data.missing"
)

// Clustering
const (
	// ClusterIDKey identifies a cluster.
	ClusterIDKey = "cluster.id"

	// ClusterKKey is the number of clusters.
	ClusterKKey = "cluster.k"

	// ClusterSizeKey is the number of members in a cluster.
	ClusterSizeKey = "cluster.size"

	// InertiaKey is the within-cluster sum of squares.
	InertiaKey = "cluster.inertia"

	// SilhouetteKey is the mean silhouette coefficient.
	SilhouetteKey = "cluster.silhouette"

	// PriceMeanKey, PriceMinKey and PriceMaxKey summarise prices.
	PriceMeanKey = "price.mean"
	PriceMinKey  = "price.min"
	PriceMaxKey  = "price.max"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² for regression.
	R2ScoreKey = "metrics.r2_score"

	// AdjustedR2Key records adjusted R².
	AdjustedR2Key = "metrics.adjusted_r2"

	// RMSEKey and MAEKey record error magnitudes.
	RMSEKey = "metrics.rmse"
	MAEKey  = "metrics.mae"

	// PurchaseProbabilityKey records the mean purchase probability.
	PurchaseProbabilityKey = "metrics.purchase_probability"

	// IterationKey records the current iteration number.
	IterationKey = "training.iteration"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// TestSizeKey records the held-out fraction.
	TestSizeKey = "config.test_size"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorMergeInvariant    = "MERGE_INVARIANT"
	ErrorMissingColumn     = "MISSING_COLUMN"
)
