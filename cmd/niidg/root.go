package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/i18n"
	"github.com/reoring/niidg/probe"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

// app is the state shared by the commands of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	jsonOut    bool

	cfg    *viper.Viper
	logger *slog.Logger
}

// flagKeys binds persistent flags to config keys.
var flagKeys = map[string]string{
	"offline":   cfgProbeOffline,
	"lang":      cfgLanguage,
	"log-level": cfgLogLevel,
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "niidg",
		Short: "Check and validate research-data crates",
		Long: `niidg reads RO-Crate documents describing research data, checks every
entity against the schema of its sponsor profile and runs the governance
rules of the whole graph.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./.niidg.yaml or ~/.config/niidg/.niidg.yaml)")
	pf.BoolVar(&a.jsonOut, "json", false, "write reports as JSON")
	pf.Bool("offline", false, "skip governance checks that need the network")
	pf.String("lang", "", "message language: en or ja")
	pf.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(a.validateCmd(), a.checkCmd(), a.schemaCmd(), a.versionCmd())
	return root
}

// setup loads the configuration and applies it to the library defaults.
func (a *app) setup(cmd *cobra.Command) error {
	v, err := loadConfig(a.configFile)
	if err != nil {
		return systemError(err)
	}
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(flag)); err != nil {
			return systemError(err)
		}
	}
	logger, err := newLogger(a.stderr, v.GetString(cfgLogLevel), v.GetString(cfgLogFormat))
	if err != nil {
		return systemError(err)
	}
	niidg.SetContextSource(v.GetString(cfgContextRepo), v.GetString(cfgContextRef))
	i18n.SetLanguage(v.GetString(cfgLanguage))
	a.cfg, a.logger = v, logger
	return nil
}

// prober returns the network capability governance rules use.
func (a *app) prober() probe.Prober {
	if a.cfg.GetBool(cfgProbeOffline) {
		return probe.Offline{}
	}
	return probe.NewHTTP(a.cfg.GetDuration(cfgProbeTimeout), probe.WithLogger(a.logger))
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the supported schema version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("niidg %s (schema %s)\n", version, niidg.ContextVersion)
		},
	}
}
