package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/teamscribe/scribe/config"
	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/pipeline"
)

func newWatchCommand() *cobra.Command {
	var (
		projectID  string
		userID     string
		sourceType string
		platform   string
	)

	cmd := &cobra.Command{
		Use:   "watch <inbox-dir>",
		Short: "Process message files as they appear in a directory",
		Long: `Watch monitors a directory and runs every new message file through the
extraction pipeline. Processed files are renamed with a .done suffix.
Configuration changes (thresholds, provider settings) are picked up
without a restart.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inbox := args[0]
			if info, err := os.Stat(inbox); err != nil || !info.IsDir() {
				return fmt.Errorf("inbox %s is not a directory", inbox)
			}

			ctx := cmd.Context()
			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			startConfigReload(ctx, rt)

			return watchInbox(ctx, rt, inbox, func(text, name string) pipeline.Message {
				return pipeline.Message{
					Text:      text,
					UserID:    userID,
					ProjectID: projectID,
					Source: extraction.Source{
						Type:       sourceType,
						Platform:   platform,
						ExternalID: name,
					},
				}
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project identifier (required)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "submitting user identifier (required)")
	cmd.Flags().StringVar(&sourceType, "source", "chat", "source type: chat, email, commit, transcript")
	cmd.Flags().StringVar(&platform, "platform", "", "originating platform (slack, github, ...)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// startConfigReload hot-reloads the project config file into the running
// pipeline. No project config file means nothing to watch.
func startConfigReload(ctx context.Context, rt *runtime) {
	path := config.NewLoader(rt.logger).ProjectConfigPath()
	if path == "" {
		return
	}

	w, err := config.NewWatcher(path, rt.logger, func(cfg *config.Config) {
		rt.pipeline.SetConfig(cfg)
	})
	if err != nil {
		rt.logger.Warn("config watch unavailable", "path", path, "error", err)
		return
	}

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			rt.logger.Warn("config watch stopped", "error", err)
		}
	}()
}

// watchInbox processes existing message files, then blocks on directory
// events until ctx is cancelled.
func watchInbox(ctx context.Context, rt *runtime, inbox string, toMessage func(text, name string) pipeline.Message) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(inbox); err != nil {
		return fmt.Errorf("watch inbox %s: %w", inbox, err)
	}

	// Drain anything already sitting in the inbox.
	entries, err := os.ReadDir(inbox)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			processInboxFile(ctx, rt, filepath.Join(inbox, entry.Name()), toMessage)
		}
	}

	rt.logger.Info("watching inbox", "dir", inbox)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			processInboxFile(ctx, rt, event.Name, toMessage)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			rt.logger.Warn("inbox watch error", "error", err)
		}
	}
}

// processInboxFile runs one message file through the pipeline and marks it
// done. Failures leave the file in place for retry.
func processInboxFile(ctx context.Context, rt *runtime, path string, toMessage func(text, name string) pipeline.Message) {
	name := filepath.Base(path)
	if strings.HasSuffix(name, ".done") || strings.HasPrefix(name, ".") {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		rt.logger.Warn("read message file failed", "path", path, "error", err)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return
	}

	result, err := rt.pipeline.Run(ctx, toMessage(text, name))
	if err != nil {
		rt.logger.Error("message processing failed", "file", name, "error", err)
		return
	}

	rt.logger.Info("message processed",
		"file", name,
		"candidates", result.Candidates,
		"dropped", result.Dropped,
		"auto_created", result.Decisions.Summary.AutoCreated,
		"proposals", result.Decisions.Summary.Proposals,
		"skipped", result.Decisions.Summary.Skipped)

	if err := os.Rename(path, path+".done"); err != nil {
		rt.logger.Warn("mark file done failed", "path", path, "error", err)
	}
}
