package process

import "context"

// ShellRunner executes a command string through a system shell.
type ShellRunner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// Shell runs commands as `Path Flag command`, e.g. `/bin/bash -c "make assets"`.
type Shell struct {
	Path    string
	Flag    string
	Invoker Invoker
}

// NewShell returns a Shell backed by inv.
func NewShell(path, flag string, inv Invoker) *Shell {
	return &Shell{Path: path, Flag: flag, Invoker: inv}
}

// Run hands command to the shell as a single argument.
func (s *Shell) Run(ctx context.Context, command string) (Result, error) {
	args := make([]string, 0, 2)
	if s.Flag != "" {
		args = append(args, s.Flag)
	}
	args = append(args, command)
	return s.Invoker.Invoke(ctx, s.Path, args...)
}
