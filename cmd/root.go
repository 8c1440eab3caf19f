// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/typst-batch/internal/config"
	"github.com/xkilldash9x/typst-batch/internal/observability"
	"github.com/xkilldash9x/typst-batch/internal/orchestrator"
	"github.com/xkilldash9x/typst-batch/internal/process"
	"github.com/xkilldash9x/typst-batch/internal/reporting"
)

// ExitUsage is returned for bad arguments or configuration.
const ExitUsage = 2

// Define function variables for dependency injection/mocking in tests.
var (
	newInvoker = func(cfg config.CompilerConfig) process.Invoker {
		inv := process.NewExecInvoker(cfg.WorkDir, cfg.Timeout)
		inv.Env = cfg.Env
		return inv
	}
	writeReport = reporting.WriteFile
)

// ExitError carries a run's exit code out of cobra's RunE.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exit status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// rootOptions holds flag values and the state prepared in PersistentPreRunE.
type rootOptions struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"log-level": "logger.level",
	"log-file":  "logger.log_file",
	"binary":    "compiler.binary",
	"workdir":   "compiler.workdir",
	"timeout":   "compiler.timeout",
	"env":       "compiler.env",
	"shell":     "prepare.shell",
	"report":    "report.path",
}

// NewRootCommand builds a fresh root command. Each call returns an
// independent instance, so flags never leak between executions.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "typst-batch <files> <options> [prepare-command]",
		Short: "Compile a batch of Typst files with shared options.",
		Long: `typst-batch compiles every file in <files> with the typst CLI.

  <files>            newline-separated source files; blank lines are ignored
  <options>          newline-separated global typst options, one token per line
  [prepare-command]  optional shell command run once before compiling

Each file is compiled as "typst <options...> compile <file>". The exit status
is 0 only if every file compiled.

Flags must come before <files>; everything from <files> on is positional, so
<options> may start with "--".`,
		Version:       Version,
		Args:          cobra.RangeArgs(2, 3),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments and config are valid; failures from here on are run failures.
			cmd.SilenceUsage = true
			defer observability.Sync(opts.logger)
			return opts.run(cmd.Context(), args)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./typst-batch.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "minimum log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-file", "", "also write JSON logs to this rotated file")
	cmd.PersistentFlags().String("binary", "typst", "typst executable, looked up in PATH")
	cmd.PersistentFlags().String("workdir", "", "working directory for typst and the prepare command")
	cmd.PersistentFlags().Duration("timeout", 0, "limit for each typst invocation (0 waits forever)")
	cmd.PersistentFlags().StringArray("env", nil, "KEY=VALUE added to the environment of typst and the prepare command (repeatable)")
	cmd.PersistentFlags().String("shell", "/bin/bash", "shell used to run the prepare command")
	cmd.PersistentFlags().String("report", "", "write a JSON summary of the run to this path")
	// <options> usually starts with "--"; stop flag parsing at <files>.
	cmd.Flags().SetInterspersed(false)
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	return cmd
}

// initialize loads configuration and builds the logger.
func (o *rootOptions) initialize(cmd *cobra.Command) error {
	v := viper.New()
	config.SetDefaults(v)

	if err := initializeConfig(cmd, v, o.cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return fmt.Errorf("failed to load or validate config: %w", err)
	}
	o.cfg = cfg
	o.logger = observability.NewLogger(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	o.logger.Debug("Starting typst-batch", zap.String("version", Version), zap.String("config", v.ConfigFileUsed()))
	return nil
}

// run wires the orchestrator and maps its report to an exit status.
func (o *rootOptions) run(ctx context.Context, args []string) error {
	invoker := newInvoker(o.cfg.Compiler)
	shell := process.NewShell(o.cfg.Prepare.Shell, o.cfg.Prepare.ShellFlag, invoker)

	orch, err := orchestrator.New(o.cfg, o.logger, invoker, shell)
	if err != nil {
		return err
	}

	in := orchestrator.Inputs{Files: args[0], Options: args[1]}
	if len(args) > 2 {
		in.PrepareCommand = args[2]
	}

	report := orch.Run(ctx, in)

	if path := o.cfg.Report.Path; path != "" {
		if err := writeReport(path, report, Version); err != nil {
			o.logger.Error("Failed to write report", zap.String("path", path), zap.Error(err))
		}
	}

	if report.ExitCode != orchestrator.ExitSuccess {
		return &ExitError{Code: report.ExitCode, Err: report.Err}
	}
	return nil
}

// initializeConfig reads the config file, if any, and binds the environment
// and flags. Precedence: flags, TYPST_BATCH_* env vars, config file, defaults.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return err
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("typst-batch")
		v.SetConfigType("yaml")
	}

	config.BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the root command with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	return exitCode(root.ExecuteContext(ctx), root.ErrOrStderr())
}

// exitCode maps an execution error to an exit status. Run failures have
// already been logged; anything else is a usage or configuration problem.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return orchestrator.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return ExitUsage
}
