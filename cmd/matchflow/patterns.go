package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/learn"
	"github.com/spf13/cobra"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Inspect learned expense patterns",
	}

	cmd.AddCommand(patternsListCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learned patterns with their statistics",
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

			patterns, err := store.ListPatterns(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list patterns: %w", err)
			}

			activeOnly, _ := cmd.Flags().GetBool("active")

			if len(patterns) == 0 {
				fmt.Println(cli.FormatInfo("no patterns learned yet"))
				return nil
			}

			fmt.Println(cli.FormatTitle("Learned expense patterns"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "VENDOR\tSEEN\tAVG\tDECAYED AVG\tRANGE\tCONFIRM\tREJECT\tCLASS\tSUPPRESSED")
			for _, p := range patterns {
				if activeOnly && p.IsSuppressed {
					continue
				}

				suppressed := ""
				if p.IsSuppressed {
					suppressed = cli.ErrorIcon
				}

				_, _ = fmt.Fprintf(w, "%s\t%d\t$%.2f\t$%.2f\t$%.2f-$%.2f\t%d\t%d\t%s\t%s\n",
					p.VendorKey,
					p.OccurrenceCount,
					p.AverageAmount,
					p.DecayedAverageAmount,
					p.MinAmount, p.MaxAmount,
					p.ConfirmCount, p.RejectCount,
					formatClassification(p.ConfirmCount, p.RejectCount, cfg),
					suppressed)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolP("active", "a", false, "Hide suppressed patterns")
	return cmd
}

func formatClassification(confirms, rejects int, cfg config.Engine) string {
	cls := learn.Classify(confirms, rejects, cfg)
	switch {
	case cls == nil:
		return "unknown"
	case *cls:
		return "business"
	default:
		return "personal"
	}
}
