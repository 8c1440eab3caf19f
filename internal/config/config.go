// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides,
// e.g. TYPST_BATCH_COMPILER_BINARY for compiler.binary.
const EnvPrefix = "TYPST_BATCH"

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Compiler CompilerConfig `mapstructure:"compiler" yaml:"compiler"`
	Prepare  PrepareConfig  `mapstructure:"prepare" yaml:"prepare"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// CompilerConfig describes how the external typst binary is invoked.
type CompilerConfig struct {
	// Binary is resolved through PATH unless it contains a separator.
	Binary      string `mapstructure:"binary" yaml:"binary"`
	Subcommand  string `mapstructure:"subcommand" yaml:"subcommand"`
	VersionFlag string `mapstructure:"version_flag" yaml:"version_flag"`
	WorkDir     string `mapstructure:"workdir" yaml:"workdir"`
	// Timeout bounds each invocation. Zero means wait forever.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// Env holds KEY=VALUE entries added to the environment of typst and the
	// prepare shell.
	Env []string `mapstructure:"env" yaml:"env"`
}

// PrepareConfig selects the shell used for the preparation command.
type PrepareConfig struct {
	Shell     string `mapstructure:"shell" yaml:"shell"`
	ShellFlag string `mapstructure:"shell_flag" yaml:"shell_flag"`
}

// ReportConfig controls the optional JSON summary written after a run.
type ReportConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

var validLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// NewDefaultConfig returns a configuration populated only from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "typst-batch")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Compiler --
	v.SetDefault("compiler.binary", "typst")
	v.SetDefault("compiler.subcommand", "compile")
	v.SetDefault("compiler.version_flag", "--version")
	v.SetDefault("compiler.workdir", "")
	v.SetDefault("compiler.timeout", "0s")
	v.SetDefault("compiler.env", []string{})

	// -- Prepare --
	v.SetDefault("prepare.shell", "/bin/bash")
	v.SetDefault("prepare.shell_flag", "-c")

	// -- Report --
	v.SetDefault("report.path", "")
}

// BindEnv enables TYPST_BATCH_* environment overrides for every key that
// has a default.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals, normalizes and validates the configuration
// held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path-valued setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Compiler.WorkDir, &c.Report.Path} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := validLevels[strings.ToLower(c.Logger.Level)]; !ok {
		errs = append(errs, fmt.Errorf("logger.level %q is not one of debug, info, warn, error", c.Logger.Level))
	}
	if strings.TrimSpace(c.Compiler.Binary) == "" {
		errs = append(errs, errors.New("compiler.binary must not be empty"))
	}
	if strings.TrimSpace(c.Compiler.Subcommand) == "" {
		errs = append(errs, errors.New("compiler.subcommand must not be empty"))
	}
	if c.Compiler.Timeout < 0 {
		errs = append(errs, errors.New("compiler.timeout must not be negative"))
	}
	for _, kv := range c.Compiler.Env {
		if key, _, ok := strings.Cut(kv, "="); !ok || strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Errorf("compiler.env entry %q is not KEY=VALUE", kv))
		}
	}
	if strings.TrimSpace(c.Prepare.Shell) == "" {
		errs = append(errs, errors.New("prepare.shell must not be empty"))
	}
	return errors.Join(errs...)
}
