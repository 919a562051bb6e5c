// Command streamseg splits text from a file or stdin into sentences as it
// arrives and writes one sentence per record.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd(),
		fang.WithVersion(version+" ("+date+")"),
		fang.WithCommit(commit),
	); err != nil {
		stop()
		os.Exit(1)
	}
}
