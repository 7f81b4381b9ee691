package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newApproveCommand() *cobra.Command {
	var (
		reviewerID string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "approve <proposal-id>",
		Short: "Approve a pending proposal and materialize its entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			entityID, evidenceID, err := rt.engine.ApproveProposal(ctx, args[0], reviewerID, notes)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "approved: entity %s, evidence %s\n", entityID, evidenceID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reviewerID, "reviewer", "r", "", "reviewing user identifier (required)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "review notes")
	_ = cmd.MarkFlagRequired("reviewer")

	return cmd
}

func newRejectCommand() *cobra.Command {
	var (
		reviewerID string
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "reject <proposal-id>",
		Short: "Reject a pending proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			if err := rt.engine.RejectProposal(ctx, args[0], reviewerID, notes); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "rejected:", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&reviewerID, "reviewer", "r", "", "reviewing user identifier (required)")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "review notes")
	_ = cmd.MarkFlagRequired("reviewer")

	return cmd
}

func newProposalsCommand() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List pending proposals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := buildRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close(ctx)

			pending, err := rt.store.ListPendingProposals(ctx, projectID)
			if err != nil {
				return err
			}

			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending proposals")
				return nil
			}

			for _, p := range pending {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s  (by %s, confidence %.2f)\n",
					p.ID, p.EntityType, p.Entity.Title, p.ProposerID, p.Entity.Confidence)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "filter by project")
	return cmd
}
