package tabular

import (
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/preprocessing"
)

// Partition names used in logs.
const (
	PartitionTrain = "train"
	PartitionVal   = "val"
	PartitionTest  = "test"
)

var partitionNames = []string{PartitionTrain, PartitionVal, PartitionTest}

// Artifact file names. The imputer file carries the imputed column name.
const (
	EncoderArtifact = "encoder.gob"
	ScalerArtifact  = "model_scaler.gob"
)

// ImputerArtifact returns the artifact file name of the imputer for column.
func ImputerArtifact(column string) string {
	return "imputer_" + column + ".gob"
}

// Partition is one slice of the selected rows.
type Partition struct {
	// X holds the feature columns.
	X dataframe.DataFrame
	// Y is the price of each row.
	Y []float64
	// Index holds the row positions in the source dataset.
	Index []int
}

// Len returns the number of rows.
func (p Partition) Len() int {
	return len(p.Index)
}

// Target returns Y as a vector.
func (p Partition) Target() *mat.VecDense {
	return mat.NewVecDense(len(p.Y), append([]float64(nil), p.Y...))
}

func newPartition(X dataframe.DataFrame, y []float64, rows []int) (Partition, error) {
	index := append([]int(nil), rows...)
	sub, err := frame.Subset(X, index)
	if err != nil {
		return Partition{}, err
	}
	target := make([]float64, len(index))
	for i, r := range index {
		target[i] = y[r]
	}
	return Partition{X: sub, Y: target, Index: index}, nil
}

// Split is the disjoint and exhaustive train/val/test partitioning of the
// selected rows.
type Split struct {
	Train, Val, Test Partition
}

func (s *Split) partitions() []*Partition {
	return []*Partition{&s.Train, &s.Val, &s.Test}
}

// Matrices holds one matrix per partition.
type Matrices struct {
	Train, Val, Test *mat.Dense
}

// ArtifactPaths are the files written by SaveArtifacts. Encoder is empty when
// the dataset has no categorical columns.
type ArtifactPaths struct {
	Imputer string
	Encoder string
	Scaler  string
}

// Snapshot is the state passed between stages. Each stage fills in its own
// fields on a copy and leaves the input untouched.
type Snapshot struct {
	Split        *Split
	Imputer      *preprocessing.FittedSimpleImputer
	Encoder      *preprocessing.FittedOneHotEncoder
	Encoded      *Matrices
	FeatureNames []string
	Scaler       *preprocessing.FittedMaxAbsScaler
	Scaled       *Matrices
	Artifacts    *ArtifactPaths
}

// Processed is the result of GetProcessedDataset.
type Processed struct {
	XTrain, XVal, XTest *mat.Dense
	YTrain, YVal, YTest *mat.VecDense
	// FeatureNames names the columns of the X matrices.
	FeatureNames []string
	Artifacts    ArtifactPaths
}

func saveArtifacts(dir, imputeColumn string, imputer *preprocessing.FittedSimpleImputer,
	encoder *preprocessing.FittedOneHotEncoder, scaler *preprocessing.FittedMaxAbsScaler) (*ArtifactPaths, error) {
	paths := &ArtifactPaths{}
	var err error
	if paths.Imputer, err = model.SaveArtifact(dir, ImputerArtifact(imputeColumn), imputer); err != nil {
		return nil, err
	}
	if encoder != nil {
		if paths.Encoder, err = model.SaveArtifact(dir, EncoderArtifact, encoder); err != nil {
			return nil, err
		}
	}
	if paths.Scaler, err = model.SaveArtifact(dir, ScalerArtifact, scaler); err != nil {
		return nil, err
	}
	return paths, nil
}
