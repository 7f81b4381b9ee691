// Package main provides the scribe binary entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// Register LLM providers via init()
	_ "github.com/teamscribe/scribe/llm/providers"

	"github.com/teamscribe/scribe/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := commands.NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
