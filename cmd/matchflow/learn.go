package main

import (
	"fmt"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/learn"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func learnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn expense patterns from historical reports",
		Long: `Fold expense report lines into per-vendor spending patterns. Patterns
drive transaction predictions and improve with every confirm or reject
decision.`,
	}

	cmd.AddCommand(learnReportsCmd())
	cmd.AddCommand(learnRebuildCmd())

	return cmd
}

func learnReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reports <report-id>...",
		Short: "Learn from one or more expense reports",
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

			learner := learn.NewLearner(store, cfg)

			bar := progressbar.Default(int64(len(args)), "learning")
			total := 0
			for _, id := range args {
				n, learnErr := learner.LearnFromReport(ctx, userID, id)
				if learnErr != nil {
					fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", id, learnErr)))
				} else {
					total += n
				}
				_ = bar.Add(1)
			}
			_ = bar.Finish()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("processed %d report lines", total)))
			return nil
		},
	}
}

func learnRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Discard all patterns and relearn from every eligible report",
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

			learner := learn.NewLearner(store, cfg)
			created, err := learner.RebuildPatterns(ctx, userID)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("rebuilt %d patterns", created)))
			return nil
		},
	}
}
