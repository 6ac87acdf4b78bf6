package main

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ochairo/threatfeed/internal/config"
	"github.com/ochairo/threatfeed/internal/domain/interfaces"
	"github.com/ochairo/threatfeed/internal/external-adapters/logging"
	"github.com/ochairo/threatfeed/internal/ui"
)

// app carries the state shared by every subcommand
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	logger     interfaces.Logger
	configFile string
	verbose    bool
	plain      bool
	logOutput  io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), logOutput: os.Stderr}

	cmd := &cobra.Command{
		Use:   "threatfeed",
		Short: "Publish the latest CVEs and data breaches into a README",
		Long: `threatfeed fetches the most recent CVEs from the NVD and the most recently
added breaches from HaveIBeenPwned, renders them as a Markdown table and
replaces the section between <!-- SECURITY-START --> and <!-- SECURITY-END -->.

Configuration is read from threatfeed.yml (or --config), THREATFEED_*
environment variables and flags, in increasing order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default ./threatfeed.yml)")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.String("log-format", "console", "Log format: console or json")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	flags.BoolVar(&a.plain, "plain", false, "Disable colors and spinners")
	flags.String("readme", "README.md", "Markdown file to update")
	flags.Int("count", 5, "Number of CVEs and breaches to show")

	bindFlags(a.v, flags.Lookup, map[string]string{
		"log_level":  "log-level",
		"log_format": "log-format",
		"readme":     "readme",
		"count":      "count",
	})

	cmd.AddCommand(
		newUpdateCmd(a),
		newFetchCmd(a),
		newRenderCmd(a),
		newVerifyCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// init loads configuration and the logger once flags are parsed
func (a *app) init(cmd *cobra.Command) error {
	ui.Configure(a.plain)

	if err := config.ReadFile(a.v, a.configFile); err != nil {
		return err
	}
	if a.verbose && !cmd.Flags().Changed("log-level") {
		a.v.Set("log_level", "debug")
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(a.logOutput, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	a.logger = logger
	a.logger.Debug("configuration loaded",
		interfaces.F("config_file", a.v.ConfigFileUsed()),
		interfaces.F("readme", cfg.Readme),
		interfaces.F("count", cfg.Count))
	return nil
}

// bindFlags binds viper keys to the named flags
func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag, keys map[string]string) {
	for key, name := range keys {
		if f := lookup(name); f != nil {
			//nolint:errcheck // BindPFlag only fails on a nil flag
			v.BindPFlag(key, f)
		}
	}
}
