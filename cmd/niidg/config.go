package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	niidg "github.com/reoring/niidg"
	"github.com/reoring/niidg/probe"
)

const (
	configName = ".niidg"
	configType = "yaml"
	envPrefix  = "NIIDG"

	cfgContextRepo  = "context.repo"
	cfgContextRef   = "context.ref"
	cfgProbeTimeout = "probe.timeout"
	cfgProbeOffline = "probe.offline"
	cfgLanguage     = "language"
	cfgLogLevel     = "log.level"
	cfgLogFormat    = "log.format"
)

// loadConfig reads the config file, if any, over the defaults. Environment
// variables such as NIIDG_PROBE_OFFLINE override both. An explicit file must
// exist; a missing default file is not an error.
func loadConfig(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgContextRepo, niidg.DefaultContextRepo)
	v.SetDefault(cfgContextRef, niidg.DefaultContextRef)
	v.SetDefault(cfgProbeTimeout, probe.DefaultTimeout)
	v.SetDefault(cfgProbeOffline, false)
	v.SetDefault(cfgLanguage, "en")
	v.SetDefault(cfgLogLevel, "warn")
	v.SetDefault(cfgLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "niidg"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// newLogger builds the slog logger of the CLI. format is "text" or "json".
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
