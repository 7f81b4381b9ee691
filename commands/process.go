package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teamscribe/scribe/extraction"
	"github.com/teamscribe/scribe/pipeline"
)

func newProcessCommand() *cobra.Command {
	var (
		projectID  string
		userID     string
		sourceType string
		platform   string
		externalID string
		file       string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "process [message]",
		Short: "Run a message through the extraction pipeline",
		Long: `Process reads a message (from the argument, --file, or stdin), extracts
project-relevant entities and applies the governance rules to each one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readMessage(args, file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			result, err := rt.pipeline.Run(ctx, pipeline.Message{
				Text:      text,
				UserID:    userID,
				ProjectID: projectID,
				Source: extraction.Source{
					Type:       sourceType,
					Platform:   platform,
					ExternalID: externalID,
				},
			})
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project identifier (required)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "submitting user identifier (required)")
	cmd.Flags().StringVar(&sourceType, "source", "chat", "source type: chat, email, commit, transcript")
	cmd.Flags().StringVar(&platform, "platform", "", "originating platform (slack, github, ...)")
	cmd.Flags().StringVar(&externalID, "external-id", "", "message identifier within the platform")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the message from a file instead of the argument")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the full result as JSON")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func readMessage(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read message file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read message from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
}

func printSummary(w io.Writer, result *pipeline.Result) {
	fmt.Fprintf(w, "provider: %s  tokens: %d  est. cost: $%.4f  context quality: %.1f\n",
		result.Provider, result.Tokens, result.Cost.TotalCost, result.Context.Quality)
	fmt.Fprintf(w, "candidates: %d  dropped: %d\n", result.Candidates, result.Dropped)

	if result.Decisions == nil {
		return
	}
	for _, r := range result.Decisions.Results {
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "  [%s] %s -> FAILED: %s\n", r.EntityType, r.Title, r.Error)
		case r.EntityID != "":
			fmt.Fprintf(w, "  [%s] %s -> created %s (%s)\n", r.EntityType, r.Title, r.EntityID, r.Reason)
		case r.ProposalID != "":
			fmt.Fprintf(w, "  [%s] %s -> proposal %s (%s)\n", r.EntityType, r.Title, r.ProposalID, r.Reason)
		default:
			fmt.Fprintf(w, "  [%s] %s -> skipped (%s)\n", r.EntityType, r.Title, r.Reason)
		}
	}
	s := result.Decisions.Summary
	fmt.Fprintf(w, "auto-created: %d  proposals: %d  skipped: %d  failed: %d\n",
		s.AutoCreated, s.Proposals, s.Skipped, s.Failed)
}
