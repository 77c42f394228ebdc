package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/divoomctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval = 2000
	defaultDataDir  = "/var/lib/divoomctl"
	configName      = "divoomctl"
	configType      = "toml"
	envConfigPath   = "DIVOOMCTL_CONFIG"
)

type Config struct {
	// Interval is the push interval in milliseconds.
	Interval  int    `mapstructure:"interval"`
	LogLevel  string `mapstructure:"log_level"`
	Debug     bool   `mapstructure:"debug"`
	Verbose   bool   `mapstructure:"verbose"`
	DataDir   string `mapstructure:"data_dir"`
	History   bool   `mapstructure:"history"`
	HistoryDB string `mapstructure:"history_db"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("interval", defaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("history", false)
	v.SetDefault("history_db", "")

	flags := pflag.NewFlagSet("divoomctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configFile := flags.String("config", "", "Path to configuration file")
	flags.Int("interval", defaultInterval, "Interval between metric pushes in milliseconds")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	if path := os.Getenv(envConfigPath); path != "" {
		v.SetConfigFile(path)
	} else if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").WithData(err.Error())
		}
	}

	// Flags set on the command line override file values
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}

	if c.History && c.HistoryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history enabled without history_db path")
	}

	return nil
}

// EffectiveLogLevel resolves the log level after applying the debug and
// verbose shortcuts, which take precedence over log_level.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	if c.Verbose {
		return "info"
	}

	return c.LogLevel
}
