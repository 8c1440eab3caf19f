// File: internal/config/config_test.go
package config

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "typst-batch", cfg.Logger.ServiceName)
	assert.Empty(t, cfg.Logger.LogFile)
	assert.Equal(t, "green", cfg.Logger.Colors.Info)
	assert.Equal(t, "typst", cfg.Compiler.Binary)
	assert.Equal(t, "compile", cfg.Compiler.Subcommand)
	assert.Equal(t, "--version", cfg.Compiler.VersionFlag)
	assert.Zero(t, cfg.Compiler.Timeout)
	assert.Empty(t, cfg.Compiler.Env)
	assert.Equal(t, "/bin/bash", cfg.Prepare.Shell)
	assert.Equal(t, "-c", cfg.Prepare.ShellFlag)
	assert.Empty(t, cfg.Report.Path)

	require.NoError(t, cfg.Validate(), "defaults must validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown log level", func(c *Config) { c.Logger.Level = "verbose" }, `logger.level "verbose"`},
		{"empty binary", func(c *Config) { c.Compiler.Binary = "  " }, "compiler.binary must not be empty"},
		{"empty subcommand", func(c *Config) { c.Compiler.Subcommand = "" }, "compiler.subcommand must not be empty"},
		{"negative timeout", func(c *Config) { c.Compiler.Timeout = -time.Second }, "compiler.timeout must not be negative"},
		{"empty shell", func(c *Config) { c.Prepare.Shell = "" }, "prepare.shell must not be empty"},
		{"env entry without value", func(c *Config) { c.Compiler.Env = []string{"NOVALUE"} }, `compiler.env entry "NOVALUE" is not KEY=VALUE`},
		{"env entry without key", func(c *Config) { c.Compiler.Env = []string{"=1"} }, `compiler.env entry "=1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("level is case insensitive", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Logger.Level = "DEBUG"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reports every problem at once", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Compiler.Binary = ""
		cfg.Prepare.Shell = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compiler.binary")
		assert.Contains(t, err.Error(), "prepare.shell")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
compiler:
  binary: /opt/typst/bin/typst
  timeout: 90s
  env:
    - TYPST_FONT_PATHS=/usr/share/fonts
    - SOURCE_DATE_EPOCH=0
prepare:
  shell: /bin/sh
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "/opt/typst/bin/typst", cfg.Compiler.Binary)
		assert.Equal(t, 90*time.Second, cfg.Compiler.Timeout)
		assert.Equal(t, []string{"TYPST_FONT_PATHS=/usr/share/fonts", "SOURCE_DATE_EPOCH=0"}, cfg.Compiler.Env)
		assert.Equal(t, "/bin/sh", cfg.Prepare.Shell)
		// Untouched keys keep their defaults.
		assert.Equal(t, "compile", cfg.Compiler.Subcommand)
		assert.Equal(t, "info", cfg.Logger.Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("compiler.binary", "")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "compiler.binary must not be empty")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		BindEnv(v)

		yamlConfig := []byte(`
compiler:
  binary: from-config-file
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("TYPST_BATCH_COMPILER_BINARY", "from-env")
		t.Setenv("TYPST_BATCH_LOGGER_LEVEL", "debug")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.Compiler.Binary, "env must override the config file")
		assert.Equal(t, "debug", cfg.Logger.Level)
	})

	t.Run("Home Directory Expansion", func(t *testing.T) {
		home, err := homedir.Dir()
		require.NoError(t, err)

		v := viper.New()
		SetDefaults(v)
		v.Set("report.path", "~/reports/typst.json")
		v.Set("logger.log_file", "/var/log/typst-batch.log")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "reports", "typst.json"), cfg.Report.Path)
		assert.Equal(t, "/var/log/typst-batch.log", cfg.Logger.LogFile, "absolute paths are left alone")
	})
}
