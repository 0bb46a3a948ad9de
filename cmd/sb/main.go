package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fusapp/swarmbender/internal/cli"
)

// execCLI and notifySignal are indirected for testability.
var execCLI = cli.Execute
var notifySignal = signal.Notify

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignal(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return execCLI(ctx)
}
