package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/carprice/frame"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/preprocessing"
)

func writeVehiclesCSV(t *testing.T) string {
	t.Helper()
	makes := []string{"audi", "bmw", "fiat", "ford"}
	base := []int{60000, 64000, 8000, 20000}

	var b strings.Builder
	b.WriteString("manufacturer,fuel,vehicle_age,odometer,price\n")
	for i := 0; i < 40; i++ {
		age := fmt.Sprint(i%7 + 1)
		if i%6 == 0 {
			age = "NA"
		}
		fuel := "petrol"
		if i%3 == 0 {
			fuel = "diesel"
		}
		fmt.Fprintf(&b, "%s,%s,%s,%d,%d\n", makes[i%4], fuel, age, 5000*i, base[i%4]+150*i)
	}

	path := filepath.Join(t.TempDir(), "vehicles.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error", "--log-format", "json"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClusterCommand(t *testing.T) {
	input := writeVehiclesCSV(t)
	output := filepath.Join(t.TempDir(), "clustered.csv")
	plots := t.TempDir()
	report := filepath.Join(t.TempDir(), "report.yaml")

	_, err := run(t, "cluster", "-i", input, "--groups", "manufacturer",
		"--k-min", "2", "--k-max", "3", "--seed", "1", "--plot-dir", plots, "-o", output, "--report", report)
	require.NoError(t, err)

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	var doc clusterReport
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "cluster_manufacturer", doc.Column)
	assert.Equal(t, 2, doc.K)
	assert.Equal(t, int64(1), doc.Seed)
	assert.Len(t, doc.Assignments, 4)
	assert.Equal(t, doc.Assignments["audi"], doc.Assignments["bmw"])
	assert.NotEqual(t, doc.Assignments["audi"], doc.Assignments["fiat"])
	rows := 0
	for _, c := range doc.Clusters {
		rows += c.Rows
	}
	assert.Equal(t, 40, rows)

	df, err := frame.ReadCSVFile(output)
	require.NoError(t, err)
	assert.Equal(t, 40, df.Nrow())
	assert.True(t, frame.HasColumn(df, "cluster_manufacturer"))

	_, err = os.Stat(filepath.Join(plots, "elbow_cluster_manufacturer.png"))
	assert.NoError(t, err)
}

func TestClusterCommandWritesToStdout(t *testing.T) {
	input := writeVehiclesCSV(t)

	out, err := run(t, "cluster", "-i", input, "--groups", "manufacturer,fuel", "--k-min", "2", "--k-max", "4", "--seed", "3")
	require.NoError(t, err)

	df, err := frame.ReadCSV(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, df.Nrow())
	assert.True(t, frame.HasColumn(df, "cluster_manufacturer_fuel"))
}

func TestPrepareAndEvaluateCommands(t *testing.T) {
	input := writeVehiclesCSV(t)
	artifacts := filepath.Join(t.TempDir(), "artifacts")
	columns := "manufacturer,fuel,vehicle_age,odometer,price"

	out, err := run(t, "prepare", "-i", input, "--columns", columns, "--seed", "42", "--output-dir", artifacts)
	require.NoError(t, err)
	assert.Contains(t, out, "train: 28 rows")
	assert.Contains(t, out, "val: 6 rows")
	for _, name := range []string{"imputer_vehicle_age.gob", "encoder.gob", "model_scaler.gob"} {
		_, err := os.Stat(filepath.Join(artifacts, name))
		assert.NoError(t, err, name)
	}

	out, err = run(t, "evaluate", "-i", input, "--columns", columns, "--seed", "42", "--output-dir", artifacts)
	require.NoError(t, err)
	assert.Contains(t, out, "r2:")
	assert.Contains(t, out, "purchase probability:")
}

func TestCommandValidation(t *testing.T) {
	var validation *errors.ValidationError

	_, err := run(t, "cluster", "--groups", "manufacturer")
	assert.True(t, errors.As(err, &validation))

	_, err = run(t, "cluster", "-i", writeVehiclesCSV(t))
	assert.True(t, errors.As(err, &validation))

	_, err = run(t, "prepare", "-i", writeVehiclesCSV(t))
	assert.True(t, errors.As(err, &validation))

	_, err = run(t, "prepare", "-i", filepath.Join(t.TempDir(), "missing.csv"), "--columns", "price,odometer")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig(newViper())
		require.NoError(t, err)

		want := &Config{
			LogLevel:     "info",
			LogFormat:    "console",
			KMin:         2,
			KMax:         10,
			NInit:        10,
			TestSize:     0.3,
			OutputDir:    "artifacts",
			ImputeColumn: "vehicle_age",
			Unknown:      preprocessing.UnknownZero,
			Passthrough:  true,
		}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("CARPRICE_CLUSTER_GROUPS", "manufacturer,model")
		t.Setenv("CARPRICE_CLUSTER_K_MAX", "6")
		t.Setenv("CARPRICE_PREPARE_UNKNOWN", "bucket")
		t.Setenv("CARPRICE_SEED", "42")

		cfg, err := LoadConfig(newViper())
		require.NoError(t, err)
		assert.Equal(t, []string{"manufacturer", "model"}, cfg.GroupColumns)
		assert.Equal(t, 6, cfg.KMax)
		assert.Equal(t, preprocessing.UnknownBucket, cfg.Unknown)
		require.NotNil(t, cfg.Seed)
		assert.Equal(t, int64(42), *cfg.Seed)
	})

	t.Run("negative seed", func(t *testing.T) {
		t.Setenv("CARPRICE_SEED", "-7")

		cfg, err := LoadConfig(newViper())
		require.NoError(t, err)
		require.NotNil(t, cfg.Seed)
		assert.Equal(t, int64(-7), *cfg.Seed)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "carprice.yaml")
		yaml := "input: data.csv\nprepare:\n  test_size: 0.2\n  columns: [model, price]\n"
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

		v := newViper()
		v.Set(keyConfig, path)
		require.NoError(t, readConfigFile(v))
		cfg, err := LoadConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "data.csv", cfg.Input)
		assert.Equal(t, 0.2, cfg.TestSize)
		assert.Equal(t, []string{"model", "price"}, cfg.Columns)
	})

	t.Run("invalid values", func(t *testing.T) {
		var validation *errors.ValidationError
		for key, value := range map[string]any{
			keyLogLevel:  "loud",
			keyLogFormat: "xml",
			keyKMin:      0,
			keyKMax:      1,
			keyTestSize:  1.0,
			keyOutputDir: "",
		} {
			v := newViper()
			v.Set(key, value)
			_, err := LoadConfig(v)
			require.True(t, errors.As(err, &validation), key)
			assert.Equal(t, key, validation.ParamName, key)
		}

		v := newViper()
		v.Set(keyUnknown, "drop")
		_, err := LoadConfig(v)
		assert.Error(t, err)
	})
}
