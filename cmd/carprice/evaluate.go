package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/carprice/linear"
	"github.com/YuminosukeSato/carprice/metrics"
	"github.com/YuminosukeSato/carprice/pipeline/tabular"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

func (a *app) evaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Prepare the dataset and report a linear regression baseline",
		Long: `evaluate runs the same preprocessing as prepare, fits ordinary least
squares on the training partition and reports R², adjusted R², RMSE, MAE and
the mean purchase probability on the validation partition. Rows that still
contain missing values are left out of the fit and the scores.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			processed, err := a.prepare()
			if err != nil {
				return err
			}
			eval, err := evaluateBaseline(processed, a.logger)
			if err != nil {
				return err
			}
			return eval.print(cmd.OutOrStdout())
		},
	}
	a.addPrepareFlags(cmd)
	return cmd
}

// Evaluation holds the validation scores of the baseline.
type Evaluation struct {
	TrainRows, ValRows int
	Features           int
	R2                 float64
	// AdjustedR2 is NaN when the validation partition has too few rows for
	// the number of features.
	AdjustedR2          float64
	RMSE, MAE           float64
	PurchaseProbability float64
}

// evaluateBaseline fits LinearRegression on the training partition and
// scores it on the validation partition.
func evaluateBaseline(p *tabular.Processed, logger log.Logger) (*Evaluation, error) {
	Xtrain, ytrain := completeRows(p.XTrain, p.YTrain)
	Xval, yval := completeRows(p.XVal, p.YVal)
	if Xtrain == nil || Xval == nil {
		return nil, errors.NewValueError("evaluate", "no complete rows left after dropping missing values")
	}

	lr := linear.NewLinearRegression()
	if err := lr.Fit(Xtrain, ytrain); err != nil {
		return nil, err
	}
	logger.Debug("baseline fitted", log.ModelNameKey, "LinearRegression", "model.rank", lr.Rank)

	raw, err := lr.Predict(Xval)
	if err != nil {
		return nil, err
	}
	pred, err := metrics.AsVector("evaluate", raw)
	if err != nil {
		return nil, err
	}

	_, features := Xval.Dims()
	eval := &Evaluation{TrainRows: ytrain.Len(), ValRows: yval.Len(), Features: features}
	if eval.R2, err = metrics.R2Score(yval, pred); err != nil {
		return nil, err
	}
	eval.AdjustedR2, err = metrics.AdjustedR2(lr, Xval, yval)
	var valueErr *errors.ValueError
	switch {
	case errors.As(err, &valueErr):
		logger.Warn("adjusted r2 undefined", log.ErrAttrKey, err, log.SamplesKey, eval.ValRows, log.FeaturesKey, features)
		eval.AdjustedR2 = math.NaN()
	case err != nil:
		return nil, err
	}
	if eval.RMSE, err = metrics.RMSE(yval, pred); err != nil {
		return nil, err
	}
	if eval.MAE, err = metrics.MAE(yval, pred); err != nil {
		return nil, err
	}
	probability, err := metrics.PurchaseProbability(yval, pred)
	if err != nil {
		return nil, err
	}
	eval.PurchaseProbability = stat.Mean(mat.Col(nil, 0, probability), nil)

	logger.Info("baseline evaluated",
		log.R2ScoreKey, eval.R2,
		log.AdjustedR2Key, eval.AdjustedR2,
		log.RMSEKey, eval.RMSE,
		log.MAEKey, eval.MAE,
		log.PurchaseProbabilityKey, eval.PurchaseProbability,
	)
	return eval, nil
}

// completeRows drops the rows of X that contain NaN. It returns nil when no
// row is left.
func completeRows(X *mat.Dense, y *mat.VecDense) (*mat.Dense, *mat.VecDense) {
	r, c := X.Dims()
	var keep []int
	for i := 0; i < r; i++ {
		if !floats.HasNaN(X.RawRowView(i)) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, nil
	}
	if len(keep) == r {
		return X, y
	}
	outX := mat.NewDense(len(keep), c, nil)
	outY := mat.NewVecDense(len(keep), nil)
	for i, row := range keep {
		outX.SetRow(i, X.RawRowView(row))
		outY.SetVec(i, y.AtVec(row))
	}
	return outX, outY
}

func (e *Evaluation) print(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"train rows: %d\nval rows: %d\nfeatures: %d\nr2: %.4f\nadjusted r2: %.4f\nrmse: %.2f\nmae: %.2f\npurchase probability: %.4f\n",
		e.TrainRows, e.ValRows, e.Features, e.R2, e.AdjustedR2, e.RMSE, e.MAE, e.PurchaseProbability)
	return err
}
