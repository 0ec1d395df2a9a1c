package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pipeline/tabular"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// addPrepareFlags registers the preprocessing flags shared by prepare and
// evaluate.
func (a *app) addPrepareFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("columns", nil, "columns to use, including price")
	f.Float64("test-size", 0.3, "share of rows held out for validation and test")
	f.String("output-dir", "artifacts", "directory for the fitted transformer artifacts")
	f.String("impute-column", "vehicle_age", "numeric column imputed with the training mean")
	f.String("unknown", "zero", "unseen categories: zero, error or bucket")
	f.Bool("passthrough", true, "append numeric columns after the one-hot block")
	a.bind(cmd, keyColumns, "columns")
	a.bind(cmd, keyTestSize, "test-size")
	a.bind(cmd, keyOutputDir, "output-dir")
	a.bind(cmd, keyImpute, "impute-column")
	a.bind(cmd, keyUnknown, "unknown")
	a.bind(cmd, keyPassthrough, "passthrough")
}

func (a *app) prepareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Split, impute, encode and scale the dataset and save the artifacts",
		Example: `  carprice prepare -i vehicles.csv --columns manufacturer,fuel,vehicle_age,odometer,price --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			processed, err := a.prepare()
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), processed)
		},
	}
	a.addPrepareFlags(cmd)
	return cmd
}

// prepare loads the input and runs the tabular pipeline with the configured
// options.
func (a *app) prepare() (*tabular.Processed, error) {
	cfg := a.cfg
	if err := cfg.RequireInput(); err != nil {
		return nil, err
	}
	if len(cfg.Columns) == 0 {
		return nil, errors.NewValidationError(keyColumns, "select the columns to use, including price", cfg.Columns)
	}

	data, err := frame.ReadCSVFile(cfg.Input)
	if err != nil {
		return nil, err
	}
	a.logger.Info("dataset loaded", log.SamplesKey, data.Nrow(), log.ColumnsKey, data.Names())

	opts := []tabular.Option{
		tabular.WithTestSize(cfg.TestSize),
		tabular.WithOutputDir(cfg.OutputDir),
		tabular.WithImputeColumn(cfg.ImputeColumn),
		tabular.WithUnknownCategories(cfg.Unknown),
		tabular.WithPassthroughNumeric(cfg.Passthrough),
		tabular.WithLogger(a.logger),
	}
	if cfg.Seed != nil {
		opts = append(opts, tabular.WithRandomState(*cfg.Seed))
	}
	tp, err := tabular.New(data, cfg.Columns, opts...)
	if err != nil {
		return nil, err
	}
	return tp.GetProcessedDataset()
}

func printProcessed(w io.Writer, p *tabular.Processed) error {
	rows := func(n int) string { return fmt.Sprintf("%d rows", n) }
	_, err := fmt.Fprintf(w, "features: %d\ntrain: %s\nval: %s\ntest: %s\nimputer: %s\nencoder: %s\nscaler: %s\n",
		len(p.FeatureNames),
		rows(p.YTrain.Len()), rows(p.YVal.Len()), rows(p.YTest.Len()),
		p.Artifacts.Imputer, orNone(p.Artifacts.Encoder), p.Artifacts.Scaler,
	)
	return err
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
