package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Styled help needs every command registered first.
	initHelp(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		outputError(os.Stderr, err)
		os.Exit(1)
	}
}
