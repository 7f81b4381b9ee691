// Package commands implements the scribe CLI surface.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/teamscribe/scribe/config"
	"github.com/teamscribe/scribe/governance"
	"github.com/teamscribe/scribe/graph"
	"github.com/teamscribe/scribe/llm"
	"github.com/teamscribe/scribe/pipeline"
	"github.com/teamscribe/scribe/storage"
)

// Version is set at build time.
var Version = "0.1.0"

var verbose bool

// NewRootCommand builds the scribe command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "scribe",
		Short: "Extract project decisions, risks and tasks from messages",
		Long: `Scribe observes natural-language messages and extracts project-relevant
decisions, risks, tasks and action items into a shared knowledge graph,
raising proposals for human review when policy requires it.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newProcessCommand())
	root.AddCommand(newWatchCommand())
	root.AddCommand(newApproveCommand())
	root.AddCommand(newRejectCommand())
	root.AddCommand(newProposalsCommand())
	root.AddCommand(newProvidersCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the scribe version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scribe", Version)
		},
	}
}

// newLogger builds the process logger honoring the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// runtime bundles the wired pipeline components for one command run.
type runtime struct {
	cfg      *config.Config
	store    *storage.Store
	writer   *graph.Writer
	engine   *governance.Engine
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	closers  []func(context.Context) error
}

// combinedStore satisfies governance.Store by pairing the KV-backed
// proposal/policy store with the graph writer.
type combinedStore struct {
	*storage.Store
	*graph.Writer
}

// buildRuntime loads config and connects the external collaborators.
func buildRuntime(ctx context.Context) (*runtime, error) {
	// Credentials may live in a local .env; absence is fine.
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open JetStream: %w", err)
	}

	store, err := storage.NewStore(ctx, js)
	if err != nil {
		nc.Close()
		return nil, err
	}

	writer, err := graph.NewWriter(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}

	engine := governance.NewEngine(
		combinedStore{Store: store, Writer: writer},
		governance.WithLogger(logger),
		governance.WithHighAuthorityLevel(cfg.Governance.HighAuthorityLevel),
	)

	client := llm.NewClient(llm.WithLogger(logger))

	rt := &runtime{
		cfg:      cfg,
		store:    store,
		writer:   writer,
		engine:   engine,
		pipeline: pipeline.New(cfg, client, engine, logger),
		logger:   logger,
	}
	rt.closers = append(rt.closers, writer.Close, func(context.Context) error {
		nc.Close()
		return nil
	})
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	for _, c := range rt.closers {
		if err := c(ctx); err != nil {
			rt.logger.Warn("close failed", "error", err)
		}
	}
}
