// File: internal/orchestrator/orchestrator.go
// Description: Drives one batch run: optional prepare command, compiler version
// probe, one compile per job, summary and exit code. All process spawning goes
// through injected interfaces so the whole flow is testable without typst.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/typst-batch/internal/config"
	"github.com/xkilldash9x/typst-batch/internal/jobs"
	"github.com/xkilldash9x/typst-batch/internal/process"
)

// Phase names a stage of a run. Phases execute in declaration order and none
// is re-entered.
type Phase string

const (
	PhaseParseArgs    Phase = "parse_args"
	PhasePrepare      Phase = "prepare"
	PhaseProbeVersion Phase = "probe_version"
	PhaseCompileAll   Phase = "compile_all"
	PhaseSummarize    Phase = "summarize"
)

// Exit codes of a run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

const (
	markSuccess = "✔"
	markFailure = "❌"
)

var (
	// ErrPrepareFailed is reported when the prepare command exits non-zero or cannot start.
	ErrPrepareFailed = errors.New("prepare command failed")
	// ErrVersionProbe is reported when the compiler binary cannot be started.
	ErrVersionProbe = errors.New("compiler version probe failed")
)

// Inputs are the three positional arguments of a run, unparsed.
type Inputs struct {
	Files          string
	Options        string
	PrepareCommand string
}

// Report describes a finished run.
type Report struct {
	RunID    string
	Version  string
	Phase    Phase
	ExitCode int
	Results  *jobs.Results
	// Err is set when the run aborted before compiling.
	Err error
}

// Orchestrator runs batch compilations.
type Orchestrator struct {
	compiler config.CompilerConfig
	logger   *zap.Logger
	invoker  process.Invoker
	shell    process.ShellRunner
}

// New creates an Orchestrator. invoker runs the compiler, shell runs the
// prepare command.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	invoker process.Invoker,
	shell process.ShellRunner,
) (*Orchestrator, error) {
	if cfg == nil ||
		logger == nil ||
		invoker == nil ||
		shell == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		compiler: cfg.Compiler,
		logger:   logger,
		invoker:  invoker,
		shell:    shell,
	}, nil
}

// Run executes every phase for in and returns the report. It never returns
// early with a nil report.
func (o *Orchestrator) Run(ctx context.Context, in Inputs) *Report {
	report := &Report{
		RunID:   uuid.New().String(),
		Phase:   PhaseParseArgs,
		Results: jobs.NewResults(),
	}
	run := o.withLogger(o.logger.With(zap.String("run_id", report.RunID)))

	files := jobs.ParseFiles(in.Files)
	options := jobs.ParseOptions(in.Options)
	run.logger.Debug("Parsed inputs", zap.Strings("files", files), zap.Strings("options", options))

	report.Phase = PhasePrepare
	if !run.Prepare(ctx, in.PrepareCommand) {
		run.logger.Info("Prepare commands failed")
		report.ExitCode = ExitFailure
		report.Err = ErrPrepareFailed
		return report
	}

	report.Phase = PhaseProbeVersion
	version, err := run.ProbeVersion(ctx)
	if err != nil {
		report.ExitCode = ExitFailure
		report.Err = err
		return report
	}
	report.Version = version

	report.Phase = PhaseCompileAll
	report.Results = run.CompileAll(ctx, files, options)

	report.Phase = PhaseSummarize
	report.ExitCode = run.Summarize(report.Results)
	return report
}

// Prepare runs command through the shell. An empty command is skipped and
// counts as success.
func (o *Orchestrator) Prepare(ctx context.Context, command string) bool {
	if command == "" {
		return true
	}
	o.logger.Debug("Running prepare commands", zap.String("command", command))

	res, err := o.shell.Run(ctx, command)
	if err != nil {
		o.logger.Error("Prepare commands could not be run", zap.Error(err))
		return false
	}
	if !res.Success() {
		o.logger.Error("Prepare commands failed with error",
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr),
		)
		return false
	}
	return true
}

// ProbeVersion asks the compiler for its version and logs it. Failing to
// start the compiler is an error; a non-zero exit status is only a warning.
func (o *Orchestrator) ProbeVersion(ctx context.Context) (string, error) {
	res, err := o.invoker.Invoke(ctx, o.compiler.Binary, o.compiler.VersionFlag)
	if err != nil {
		o.logger.Error("Could not run the compiler", zap.String("binary", o.compiler.Binary), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrVersionProbe, err)
	}

	version := strings.TrimSpace(res.Stdout)
	if !res.Success() {
		o.logger.Warn("Compiler version probe exited with an error",
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr),
		)
	}
	o.logger.Info(fmt.Sprintf("Using version %s", version))
	return version, nil
}

// CompileArgs returns the compiler arguments for one job:
// the global options, the compile subcommand, then the file.
func (o *Orchestrator) CompileArgs(filename string, options []string) []string {
	args := make([]string, 0, len(options)+2)
	args = append(args, options...)
	return append(args, o.compiler.Subcommand, filename)
}

// Compile compiles a single file and reports whether the compiler exited
// with status 0. Failures are logged, never returned.
func (o *Orchestrator) Compile(ctx context.Context, filename string, options []string) bool {
	args := o.CompileArgs(filename, options)
	o.logger.Debug("Running: " + process.CommandLine(o.compiler.Binary, args...))

	res, err := o.invoker.Invoke(ctx, o.compiler.Binary, args...)
	if err != nil {
		o.logger.Error("Compiling failed", zap.String("file", filename), zap.Error(err))
		return false
	}
	if !res.Success() {
		o.logger.Error(fmt.Sprintf("Compiling %s failed with stderr", filename),
			zap.String("file", filename),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr),
		)
		return false
	}
	o.logger.Debug("Compiled", zap.String("file", filename), zap.Duration("duration", res.Duration))
	return true
}

// CompileAll compiles files in order and records each outcome.
func (o *Orchestrator) CompileAll(ctx context.Context, files, options []string) *jobs.Results {
	results := jobs.NewResults()
	for _, filename := range files {
		o.logger.Info(fmt.Sprintf("Compiling %s…", filename))
		results.Set(filename, o.Compile(ctx, filename, options))
	}
	return results
}

// Summarize logs one line per result and returns the exit code for the run.
func (o *Orchestrator) Summarize(results *jobs.Results) int {
	results.Each(func(file string, ok bool) {
		mark := markSuccess
		if !ok {
			mark = markFailure
		}
		o.logger.Info(fmt.Sprintf("%s: %s", file, mark))
	})

	if !results.AllSucceeded() {
		return ExitFailure
	}
	return ExitSuccess
}

func (o *Orchestrator) withLogger(logger *zap.Logger) *Orchestrator {
	scoped := *o
	scoped.logger = logger
	return &scoped
}
