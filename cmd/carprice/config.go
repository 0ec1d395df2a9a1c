package main

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
	"github.com/YuminosukeSato/carprice/preprocessing"
)

// envPrefix is prepended to every environment variable, e.g.
// CARPRICE_CLUSTER_K_MAX for cluster.k_max.
const envPrefix = "CARPRICE"

// Config keys shared by flags, environment and carprice.yaml.
const (
	keyConfig    = "config"
	keyLogLevel  = "log.level"
	keyLogFormat = "log.format"
	keyInput     = "input"
	keySeed      = "seed"

	keyGroups  = "cluster.groups"
	keyKMin    = "cluster.k_min"
	keyKMax    = "cluster.k_max"
	keyNInit   = "cluster.n_init"
	keyPlotDir = "cluster.plot_dir"
	keyOutput  = "cluster.output"
	keyReport  = "cluster.report"

	keyColumns     = "prepare.columns"
	keyTestSize    = "prepare.test_size"
	keyOutputDir   = "prepare.output_dir"
	keyImpute      = "prepare.impute_column"
	keyUnknown     = "prepare.unknown"
	keyPassthrough = "prepare.passthrough"
)

// Config is the resolved configuration of one command run. The key tag
// names the setting in error messages.
type Config struct {
	LogLevel  string `key:"log.level"`
	LogFormat string `key:"log.format" validate:"oneof=console json"`
	Input     string `key:"input"`
	Seed      *int64 `key:"seed"` // nil when unset

	GroupColumns []string `key:"cluster.groups"`
	KMin         int      `key:"cluster.k_min" validate:"min=1"`
	KMax         int      `key:"cluster.k_max" validate:"gtefield=KMin"`
	NInit        int      `key:"cluster.n_init" validate:"min=1"`
	PlotDir      string   `key:"cluster.plot_dir"`
	Output       string   `key:"cluster.output"`
	Report       string   `key:"cluster.report"`

	Columns      []string                    `key:"prepare.columns"`
	TestSize     float64                     `key:"prepare.test_size" validate:"gt=0,lt=1"`
	OutputDir    string                      `key:"prepare.output_dir" validate:"required"`
	ImputeColumn string                      `key:"prepare.impute_column" validate:"required"`
	Unknown      preprocessing.UnknownPolicy `key:"prepare.unknown"`
	Passthrough  bool                        `key:"prepare.passthrough"`
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("key")
	})
	return v
}

// validate checks the struct tags and reports the first violation as a
// ValidationError.
func (c *Config) validate() error {
	err := configValidator.Struct(c)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		fe := fields[0]
		reason := "must satisfy " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return errors.NewValidationError(fe.Field(), reason, fe.Value())
	}
	return errors.Wrap(err, "validate config")
}

// newViper returns a viper instance with defaults and environment binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "console")
	v.SetDefault(keyKMin, 2)
	v.SetDefault(keyKMax, 10)
	v.SetDefault(keyNInit, 10)
	v.SetDefault(keyTestSize, 0.3)
	v.SetDefault(keyOutputDir, "artifacts")
	v.SetDefault(keyImpute, "vehicle_age")
	v.SetDefault(keyUnknown, "zero")
	v.SetDefault(keyPassthrough, true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// loadEnvFiles loads .env and then .env.local. Variables already set in the
// environment are kept.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// readConfigFile reads the file named by --config, or carprice.yaml from the
// working directory when present.
func readConfigFile(v *viper.Viper) error {
	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
		return nil
	}

	v.SetConfigName("carprice")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "read carprice.yaml")
	}
	return nil
}

// LoadConfig resolves flags, environment and config file into a Config.
func LoadConfig(v *viper.Viper) (*Config, error) {
	unknown, err := preprocessing.ParseUnknownPolicy(v.GetString(keyUnknown))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		LogLevel:     v.GetString(keyLogLevel),
		LogFormat:    v.GetString(keyLogFormat),
		Input:        v.GetString(keyInput),
		GroupColumns: splitList(v.GetStringSlice(keyGroups)),
		KMin:         v.GetInt(keyKMin),
		KMax:         v.GetInt(keyKMax),
		NInit:        v.GetInt(keyNInit),
		PlotDir:      v.GetString(keyPlotDir),
		Output:       v.GetString(keyOutput),
		Report:       v.GetString(keyReport),
		Columns:      splitList(v.GetStringSlice(keyColumns)),
		TestSize:     v.GetFloat64(keyTestSize),
		OutputDir:    v.GetString(keyOutputDir),
		ImputeColumn: v.GetString(keyImpute),
		Unknown:      unknown,
		Passthrough:  v.GetBool(keyPassthrough),
	}

	if v.IsSet(keySeed) {
		seed := v.GetInt64(keySeed)
		cfg.Seed = &seed
	}

	if _, ok := log.ParseLevel(cfg.LogLevel); !ok {
		return nil, errors.NewValidationError(keyLogLevel, "unknown log level", cfg.LogLevel)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireInput reports a ValidationError when no input CSV is configured.
func (c *Config) RequireInput() error {
	if c.Input == "" {
		return errors.NewValidationError(keyInput, "an input CSV is required (--input or CARPRICE_INPUT)", c.Input)
	}
	return nil
}

// splitList accepts both repeated values and comma separated strings, which
// is how list values arrive from the environment.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
