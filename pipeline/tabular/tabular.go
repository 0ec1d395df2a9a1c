// Package tabular prepares a vehicle dataset for supervised models: it splits
// the rows into train, validation and test partitions, imputes the vehicle
// age, one-hot encodes categorical columns, scales the result and stores the
// fitted transformers as artifacts.
package tabular

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pipeline"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
	"github.com/YuminosukeSato/carprice/preprocessing"
)

const pipelineName = "tabular"

// Stage names.
const (
	StageSplit  = "split_data"
	StageImpute = "impute_missing_values"
	StageEncode = "encode_categorical_features"
	StageScale  = "scale_features"
	StageSave   = "save_artifacts"
)

// Default option values.
const (
	DefaultTestSize     = 0.3
	DefaultOutputDir    = "artifacts"
	DefaultImputeColumn = "vehicle_age"
)

// TabularPreprocessor turns a raw dataset into scaled, encoded partitions.
type TabularPreprocessor struct {
	data            dataframe.DataFrame
	selectedColumns []string

	testSize     float64
	randomState  int64
	seeded       bool
	outputDir    string
	imputeColumn string
	unknown      preprocessing.UnknownPolicy
	passthrough  bool
	logger       log.Logger
}

// Option configures a TabularPreprocessor.
type Option func(*TabularPreprocessor)

// WithTestSize sets the share of rows held out for validation and test.
func WithTestSize(size float64) Option {
	return func(t *TabularPreprocessor) {
		t.testSize = size
	}
}

// WithRandomState fixes the seed of the row permutation.
func WithRandomState(seed int64) Option {
	return func(t *TabularPreprocessor) {
		t.randomState = seed
		t.seeded = true
	}
}

// WithOutputDir sets where SaveArtifacts writes the fitted transformers.
func WithOutputDir(dir string) Option {
	return func(t *TabularPreprocessor) {
		t.outputDir = dir
	}
}

// WithImputeColumn sets the numeric column whose missing values are replaced
// by the training mean.
func WithImputeColumn(name string) Option {
	return func(t *TabularPreprocessor) {
		t.imputeColumn = name
	}
}

// WithUnknownCategories sets how categories unseen in training are encoded.
func WithUnknownCategories(policy preprocessing.UnknownPolicy) Option {
	return func(t *TabularPreprocessor) {
		t.unknown = policy
	}
}

// WithPassthroughNumeric controls whether numeric columns are appended after
// the one-hot block. It defaults to true. With false the matrices hold only
// the one-hot block, which is what a categorical-only scaler expects; numeric
// columns such as the imputed vehicle age are then dropped.
func WithPassthroughNumeric(on bool) Option {
	return func(t *TabularPreprocessor) {
		t.passthrough = on
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(t *TabularPreprocessor) {
		t.logger = logger
	}
}

// New validates the column selection and returns a TabularPreprocessor.
// selectedColumns must contain price.
func New(data dataframe.DataFrame, selectedColumns []string, opts ...Option) (*TabularPreprocessor, error) {
	if err := frame.CheckUnique("selected_columns", selectedColumns); err != nil {
		return nil, err
	}
	hasPrice := false
	for _, c := range selectedColumns {
		if c == frame.PriceColumn {
			hasPrice = true
		}
	}
	if !hasPrice {
		return nil, errors.NewValidationError("selected_columns", "must include "+frame.PriceColumn, selectedColumns)
	}
	if len(selectedColumns) < 2 {
		return nil, errors.NewValidationError("selected_columns", "at least one feature column is required", selectedColumns)
	}
	if err := frame.RequireColumns(data, "tabular.New", selectedColumns...); err != nil {
		return nil, err
	}

	t := &TabularPreprocessor{
		data:            data,
		selectedColumns: append([]string(nil), selectedColumns...),
		testSize:        DefaultTestSize,
		outputDir:       DefaultOutputDir,
		imputeColumn:    DefaultImputeColumn,
		unknown:         preprocessing.UnknownZero,
		passthrough:     true,
	}
	for _, opt := range opts {
		opt(t)
	}

	if !(t.testSize > 0 && t.testSize < 1) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", t.testSize)
	}
	if t.outputDir == "" {
		return nil, errors.NewValidationError("output_dir", "must not be empty", t.outputDir)
	}
	if !t.seeded {
		t.randomState = time.Now().UnixNano()
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("TabularPreprocessor")
	}
	return t, nil
}

// Seed returns the seed used for the split.
func (t *TabularPreprocessor) Seed() int64 {
	return t.randomState
}

// Initial returns the snapshot the first stage starts from.
func (t *TabularPreprocessor) Initial() Snapshot {
	return Snapshot{}
}

// Stages returns the stages in the order GetProcessedDataset runs them.
func (t *TabularPreprocessor) Stages() []pipeline.Stage[Snapshot] {
	return []pipeline.Stage[Snapshot]{
		{Name: StageSplit, Run: t.SplitData},
		{Name: StageImpute, Run: t.ImputeMissingValues},
		{Name: StageEncode, Run: t.EncodeCategoricalFeatures},
		{Name: StageScale, Run: t.ScaleFeatures},
		{Name: StageSave, Run: t.SaveArtifacts},
	}
}

// SplitData selects the configured columns, pops price as the target and
// partitions the rows. testSize of the rows are held out and split in half
// between validation and test; validation gets the extra row when the
// held-out count is odd.
func (t *TabularPreprocessor) SplitData(s Snapshot) (Snapshot, error) {
	selected, err := frame.Select(t.data, t.selectedColumns)
	if err != nil {
		return s, err
	}
	y, err := frame.Floats(selected, frame.PriceColumn)
	if err != nil {
		return s, err
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, errors.NewValidationError(frame.PriceColumn, "target must not contain missing values", i)
		}
	}
	X, err := frame.Drop(selected, frame.PriceColumn)
	if err != nil {
		return s, err
	}

	n := selected.Nrow()
	nTemp := int(math.Ceil(t.testSize * float64(n)))
	nVal := (nTemp + 1) / 2
	nTrain := n - nTemp
	if nTrain == 0 || nVal == 0 || nTemp-nVal == 0 {
		return s, errors.NewValidationError("test_size",
			"every partition needs at least one row", map[string]int{"rows": n, "held_out": nTemp})
	}

	perm := rand.New(rand.NewSource(t.randomState)).Perm(n)
	split := &Split{}
	parts := []struct {
		name string
		dst  *Partition
		idx  []int
	}{
		{PartitionTrain, &split.Train, perm[:nTrain]},
		{PartitionVal, &split.Val, perm[nTrain : nTrain+nVal]},
		{PartitionTest, &split.Test, perm[nTrain+nVal:]},
	}
	for _, p := range parts {
		part, err := newPartition(X, y, p.idx)
		if err != nil {
			return s, err
		}
		*p.dst = part
		t.logger.Debug("partition created", log.PartitionKey, p.name, log.SamplesKey, part.Len())
	}
	t.logger.Info("data split",
		log.SamplesKey, n,
		log.TestSizeKey, t.testSize,
		log.RandomSeedKey, t.randomState,
		log.FeaturesKey, X.Ncol(),
	)

	s.Split = split
	return s, nil
}

// ImputeMissingValues fits a mean imputer on the training values of the
// impute column and applies it to every partition.
func (t *TabularPreprocessor) ImputeMissingValues(s Snapshot) (Snapshot, error) {
	if s.Split == nil {
		return s, errors.NewStageOrderError(StageImpute, StageSplit)
	}
	train := s.Split.Train
	if err := frame.RequireColumns(train.X, "tabular.ImputeMissingValues", t.imputeColumn); err != nil {
		return s, err
	}

	column := []string{t.imputeColumn}
	Xtrain, err := frame.Matrix(train.X, column)
	if err != nil {
		return s, err
	}
	imputer, err := preprocessing.NewSimpleImputer().Fit(Xtrain)
	if err != nil {
		return s, errors.Wrapf(err, "impute %s", t.imputeColumn)
	}

	split := *s.Split
	missing := 0
	for _, p := range split.partitions() {
		X, err := frame.Matrix(p.X, column)
		if err != nil {
			return s, err
		}
		missing += countNaN(X)
		filled, err := imputer.Transform(X)
		if err != nil {
			return s, err
		}
		p.X, err = frame.ReplaceFloats(p.X, t.imputeColumn, mat.Col(nil, 0, filled))
		if err != nil {
			return s, err
		}
	}
	t.logger.Info("missing values imputed",
		log.ColumnKey, t.imputeColumn,
		log.MissingKey, missing,
		"impute.mean", imputer.Statistics[0],
	)

	s.Split = &split
	s.Imputer = imputer
	return s, nil
}

// EncodeCategoricalFeatures one-hot encodes the String columns of the
// training partition and applies the same encoding to validation and test.
// Numeric columns follow the one-hot block when passthrough is on.
func (t *TabularPreprocessor) EncodeCategoricalFeatures(s Snapshot) (Snapshot, error) {
	if s.Split == nil || s.Imputer == nil {
		return s, errors.NewStageOrderError(StageEncode, StageImpute)
	}
	train := s.Split.Train
	categorical := frame.CategoricalColumns(train.X)
	var numeric []string
	if t.passthrough {
		numeric = frame.NumericColumns(train.X)
	}

	var encoder *preprocessing.FittedOneHotEncoder
	if len(categorical) > 0 {
		columns, err := stringColumns(train.X, categorical)
		if err != nil {
			return s, err
		}
		encoder, err = preprocessing.NewOneHotEncoder(t.unknown).Fit(categorical, columns)
		if err != nil {
			return s, err
		}
	}

	var names []string
	if encoder != nil {
		names = append(names, encoder.FeatureNamesOut...)
	}
	names = append(names, numeric...)
	if len(names) == 0 {
		return s, errors.NewValueError("tabular.EncodeCategoricalFeatures", "no feature columns to encode")
	}

	encoded := &Matrices{}
	targets := []**mat.Dense{&encoded.Train, &encoded.Val, &encoded.Test}
	for i, p := range s.Split.partitions() {
		var blocks []*mat.Dense
		if encoder != nil {
			columns, err := stringColumns(p.X, categorical)
			if err != nil {
				return s, err
			}
			if err := encoder.CheckUnknown(columns); err != nil {
				return s, errors.Wrapf(err, "encode %s partition", partitionNames[i])
			}
			if unknown := encoder.CountUnknown(columns); unknown > 0 {
				t.logger.Warn("categories not seen in training",
					log.PartitionKey, partitionNames[i],
					log.MissingKey, unknown,
					"encoder.unknown_policy", t.unknown.String(),
				)
			}
			// 単一カテゴリの列しかない場合は one-hot ブロックが空になる
			if encoder.NOutputs() > 0 {
				block, err := encoder.Transform(columns)
				if err != nil {
					return s, errors.Wrapf(err, "encode %s partition", partitionNames[i])
				}
				blocks = append(blocks, block)
			}
		}
		if len(numeric) > 0 {
			block, err := frame.Matrix(p.X, numeric)
			if err != nil {
				return s, err
			}
			blocks = append(blocks, block)
		}
		*targets[i] = hstack(blocks)
	}
	t.logger.Info("categorical features encoded",
		log.ColumnsKey, categorical,
		log.FeaturesKey, len(names),
	)

	s.Encoder = encoder
	s.Encoded = encoded
	s.FeatureNames = names
	return s, nil
}

// ScaleFeatures fits a max-abs scaler on the encoded training matrix and
// scales all three partitions with it.
func (t *TabularPreprocessor) ScaleFeatures(s Snapshot) (Snapshot, error) {
	if s.Encoded == nil {
		return s, errors.NewStageOrderError(StageScale, StageEncode)
	}
	scaler, err := preprocessing.NewMaxAbsScaler().Fit(s.Encoded.Train)
	if err != nil {
		return s, err
	}

	scaled := &Matrices{}
	pairs := []struct {
		dst **mat.Dense
		src *mat.Dense
	}{
		{&scaled.Train, s.Encoded.Train},
		{&scaled.Val, s.Encoded.Val},
		{&scaled.Test, s.Encoded.Test},
	}
	for _, p := range pairs {
		out, err := scaler.Transform(p.src)
		if err != nil {
			return s, err
		}
		*p.dst = out
	}
	t.logger.Info("features scaled", log.FeaturesKey, scaler.NFeatures)

	s.Scaler = scaler
	s.Scaled = scaled
	return s, nil
}

// SaveArtifacts writes the fitted transformers to the configured output
// directory.
func (t *TabularPreprocessor) SaveArtifacts(s Snapshot) (Snapshot, error) {
	return t.SaveArtifactsTo(s, t.outputDir)
}

// SaveArtifactsTo writes the fitted imputer, encoder and scaler to dir,
// creating it when missing and overwriting earlier files.
func (t *TabularPreprocessor) SaveArtifactsTo(s Snapshot, dir string) (Snapshot, error) {
	if s.Imputer == nil || s.Scaler == nil {
		return s, errors.NewStageOrderError(StageSave, StageScale)
	}
	paths, err := saveArtifacts(dir, t.imputeColumn, s.Imputer, s.Encoder, s.Scaler)
	if err != nil {
		return s, err
	}
	for _, p := range []string{paths.Imputer, paths.Encoder, paths.Scaler} {
		if p != "" {
			t.logger.Info("artifact saved", log.ArtifactPathKey, p)
		}
	}

	s.Artifacts = paths
	return s, nil
}

// GetProcessedDataset runs split, impute, encode, scale and save in order.
func (t *TabularPreprocessor) GetProcessedDataset() (*Processed, error) {
	final, err := pipeline.Run(pipelineName, t.logger, t.Initial(), t.Stages()...)
	if err != nil {
		return nil, err
	}
	return &Processed{
		XTrain:       final.Scaled.Train,
		XVal:         final.Scaled.Val,
		XTest:        final.Scaled.Test,
		YTrain:       final.Split.Train.Target(),
		YVal:         final.Split.Val.Target(),
		YTest:        final.Split.Test.Target(),
		FeatureNames: final.FeatureNames,
		Artifacts:    *final.Artifacts,
	}, nil
}

func stringColumns(df dataframe.DataFrame, names []string) ([][]string, error) {
	columns := make([][]string, len(names))
	for j, name := range names {
		col, err := frame.Strings(df, name)
		if err != nil {
			return nil, err
		}
		columns[j] = col
	}
	return columns, nil
}

// hstack joins blocks column-wise. All blocks share the row count.
func hstack(blocks []*mat.Dense) *mat.Dense {
	var out *mat.Dense
	for _, b := range blocks {
		if out == nil {
			out = mat.DenseCopyOf(b)
			continue
		}
		var next mat.Dense
		next.Augment(out, b)
		out = &next
	}
	return out
}

func countNaN(m mat.Matrix) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				n++
			}
		}
	}
	return n
}
