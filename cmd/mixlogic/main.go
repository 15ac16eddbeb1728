// MixLogic Core - adaptive DJ mixing assistant
//
// This is the main entry point for the MixLogic Core application. It
// watches a live DJ session, proposes mix decisions, learns from the DJ's
// feedback, and can drive a control surface over MQTT when trusted to.
//
// Commands:
//   - serve: run the engine with its HTTP/WebSocket API
//   - compat: score two library tracks against each other
//   - export / import: move training state in and out of the database
//   - migrate: apply, roll back or inspect schema migrations
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/mixlogic-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on Ctrl+C or SIGTERM so serve can shut down gracefully
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
