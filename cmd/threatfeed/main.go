package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/threatfeed/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ui.Error(err)
		stop()
		os.Exit(1)
	}
}
