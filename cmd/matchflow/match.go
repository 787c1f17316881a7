package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/learn"
	"github.com/matchflow/matchflow/internal/match"
	"github.com/matchflow/matchflow/internal/model"
	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Propose and resolve receipt-to-transaction matches",
		Long: `Score unmatched receipts against candidate transactions, review the
resulting proposals, and confirm or reject them. Confirmed and rejected
decisions feed the pattern learner.`,
	}

	cmd.AddCommand(matchProposeCmd())
	cmd.AddCommand(matchListCmd())
	cmd.AddCommand(matchConfirmCmd())
	cmd.AddCommand(matchRejectCmd())
	cmd.AddCommand(matchUnmatchCmd())
	cmd.AddCommand(matchApproveCmd())
	cmd.AddCommand(matchManualCmd())

	return cmd
}

func matchProposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Generate match proposals for unmatched receipts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			userID, err := requireUser()
			if err != nil {
				return err
			}
			cfg, err := engineConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			proposer := match.NewProposer(store, cfg)

			receiptID, _ := cmd.Flags().GetString("receipt")
			if receiptID != "" {
				m, proposeErr := proposer.ProposeForReceipt(ctx, userID, receiptID)
				if proposeErr != nil {
					return proposeErr
				}
				if m == nil {
					fmt.Println(cli.FormatInfo("no candidate cleared the confidence threshold"))
					return nil
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("proposed match %s (confidence %d)", m.ID, m.ConfidenceScore)))
				return nil
			}

			created, err := proposer.ProposeMatches(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("created %d match proposals", created)))
			return nil
		},
	}

	cmd.Flags().StringP("receipt", "r", "", "Propose for a single receipt")
	return cmd
}

func matchListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List match proposals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			userID, err := requireUser()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			status, _ := cmd.Flags().GetString("status")
			matches, err := store.GetMatchesByStatus(ctx, userID, model.MatchProposalStatus(status))
			if err != nil {
				return fmt.Errorf("failed to list matches: %w", err)
			}

			if len(matches) == 0 {
				fmt.Println(cli.FormatInfo("no matches with status " + status))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tRECEIPT\tTRANSACTION\tAMOUNT\tDATE\tVENDOR\tTOTAL\tAMBIGUOUS")
			for _, m := range matches {
				ambiguous := ""
				if m.IsAmbiguous {
					ambiguous = cli.WarningIcon
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					m.ID, m.ReceiptID, m.TransactionID,
					m.AmountScore, m.DateScore, m.VendorScore, m.ConfidenceScore,
					ambiguous)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringP("status", "s", string(model.ProposalProposed), "Filter by proposal status")
	return cmd
}

func matchConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <match-id>",
		Short: "Confirm a proposed match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveMatch(cmd, args[0], "confirmed", (*match.Lifecycle).Confirm)
		},
	}
}

func matchRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <match-id>",
		Short: "Reject a proposed match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveMatch(cmd, args[0], "rejected", (*match.Lifecycle).Reject)
		},
	}
}

func matchUnmatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <match-id>",
		Short: "Undo a confirmed match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveMatch(cmd, args[0], "unmatched", (*match.Lifecycle).Unmatch)
		},
	}
}

func matchApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <match-id>...",
		Short: "Confirm a batch of proposed matches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := requireUser()
			if err != nil {
				return err
			}
			cfg, err := engineConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lifecycle := match.NewLifecycle(store, learn.NewLearner(store, cfg))
			result := lifecycle.BatchApprove(ctx, userID, args)

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("confirmed %d of %d matches", result.Succeeded, len(args))))
			for id, itemErr := range result.Errors {
				fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", id, itemErr)))
			}
			return nil
		},
	}
}

func matchManualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manual <receipt-id> <transaction-id>",
		Short: "Match a receipt and transaction directly, bypassing scoring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			userID, err := requireUser()
			if err != nil {
				return err
			}
			cfg, err := engineConfig()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lifecycle := match.NewLifecycle(store, learn.NewLearner(store, cfg))
			m, err := lifecycle.ManualMatch(ctx, userID, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("matched receipt %s to transaction %s (match %s)", args[0], args[1], m.ID)))
			return nil
		},
	}
}

// resolveMatch runs one lifecycle transition with the shared setup.
func resolveMatch(cmd *cobra.Command, matchID, verb string, transition func(*match.Lifecycle, context.Context, string, string) error) error {
	ctx := cmd.Context()

	userID, err := requireUser()
	if err != nil {
		return err
	}
	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	lifecycle := match.NewLifecycle(store, learn.NewLearner(store, cfg))
	if err := transition(lifecycle, ctx, userID, matchID); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s match %s", verb, matchID)))
	return nil
}
