package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v        *viper.Viper
	cfg      *Config
	logger   log.Logger
	stderr   io.Writer // log output, swapped in tests
	bindings map[*cobra.Command][]binding
}

// newRootCommand builds the command tree on a fresh viper instance.
func newRootCommand() *cobra.Command {
	a := &app{v: newViper(), stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "carprice",
		Short: "Vehicle price data preparation toolkit",
		Long: `carprice clusters vehicle groups by price behaviour, prepares
train/validation/test matrices with reusable transformer artifacts and
reports a linear baseline on the prepared data.

Settings come from flags, CARPRICE_* environment variables, .env files and
an optional carprice.yaml, in that order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./carprice.yaml)")
	flags.StringP("input", "i", "", "input CSV file")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.Int64("seed", 0, "random seed; one is picked per run when unset")
	a.bind(root, keyConfig, "config")
	a.bind(root, keyInput, "input")
	a.bind(root, keyLogLevel, "log-level")
	a.bind(root, keyLogFormat, "log-format")
	a.bind(root, keySeed, "seed")

	root.AddCommand(a.clusterCommand(), a.prepareCommand(), a.evaluateCommand())
	return root
}

type binding struct {
	key, flag string
}

// bind records that flag of cmd feeds the viper key. The binding is applied
// in setup for the command that actually runs, so prepare and evaluate can
// share keys.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if cmd.PersistentFlags().Lookup(flag) == nil && cmd.Flags().Lookup(flag) == nil {
		panic("carprice: unknown flag " + flag)
	}
	if a.bindings == nil {
		a.bindings = make(map[*cobra.Command][]binding)
	}
	a.bindings[cmd] = append(a.bindings[cmd], binding{key: key, flag: flag})
}

func (a *app) applyBindings(cmd *cobra.Command) error {
	for c := cmd; c != nil; c = c.Parent() {
		for _, b := range a.bindings[c] {
			if err := a.v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
				return errors.Wrapf(err, "bind flag %s", b.flag)
			}
		}
	}
	return nil
}

// setup loads configuration and installs the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.applyBindings(cmd); err != nil {
		return err
	}
	loadEnvFiles()
	if err := readConfigFile(a.v); err != nil {
		return err
	}
	cfg, err := LoadConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := log.ParseLevel(cfg.LogLevel)
	var provider *log.ZerologProvider
	if cfg.LogFormat == "json" {
		provider = log.NewZerologProviderWithWriter(a.stderr, level)
	} else {
		provider = log.NewZerologProviderWithWriter(consoleWriter(a.stderr), level)
	}
	log.SetProvider(provider)
	a.logger = provider.GetLoggerWithName("carprice").With(log.OperationKey, cmd.Name())
	return nil
}

// Execute runs the CLI with the given arguments.
func Execute(ctx context.Context, args []string) error {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: w != os.Stderr}
}
