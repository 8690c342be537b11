package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/graphkit/graph-cli/internal/cmd"
)

var (
	executeCmd  = cmd.Execute
	mapExitCode = cmd.ExitCode
	terminate   = os.Exit
)

func run(args []string) int {
	// Ctrl-C cancels in-flight requests, pagination and bulk fetches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := executeCmd(ctx, args); err != nil {
		return mapExitCode(err)
	}
	return 0
}

func main() {
	terminate(run(os.Args[1:]))
}
