package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prlens/prlens/cmd"
)

func main() {
	// An external abort cancels the run but keeps completed work usable.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			os.Exit(130) // Standard exit code for SIGINT
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
