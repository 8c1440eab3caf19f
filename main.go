// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/typst-batch/cmd"
)

// main is the entry point for the typst-batch CLI.
func main() {
	// Ctrl+C kills the running typst child; the remaining files then fail fast.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
