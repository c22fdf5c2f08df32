package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "DATABIND"

// Config is the configuration of the databind command.
type Config struct {
	LogLevel  string
	LogFormat string
	Metrics   bool
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Flags defines one flag per option on fs, each writing into c.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: console or json.")
	fs.BoolVar(&c.Metrics, "metrics", c.Metrics, "Print the collected metrics when done.")
}

// Load applies, by priority, the command line flags, the DATABIND_*
// environment variables and the configuration file named by the "config"
// flag to every flag of flags.
func Load(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "binding flags")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validKeys := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validKeys[f.Name] = true
	})

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", file)
		}

		for _, key := range v.AllKeys() {
			if !validKeys[key] {
				return errors.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		// flags set on the command line win
		if flagErr != nil || f.Changed {
			return
		}

		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = errors.Wrapf(err, "setting %s", f.Name)
		}
	})

	return flagErr
}

// NewLogger builds the zap logger described by c.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", c.LogLevel)
	}

	var zc zap.Config
	switch c.LogFormat {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", c.LogFormat)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}

	return logger, nil
}
