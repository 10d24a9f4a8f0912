// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LabsAtivai/boaventura/cmd"
)

// main is the entry point for the boaventura CLI application.
func main() {
	// A signal-aware context lets an interrupted sweep still flush its
	// partial output before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
