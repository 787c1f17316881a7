package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/matchflow/matchflow/internal/cli"
	"github.com/matchflow/matchflow/internal/learn"
	"github.com/spf13/cobra"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Generate predictions for transactions from learned patterns",
	}

	cmd.AddCommand(predictGenerateCmd())
	cmd.AddCommand(predictListCmd())

	return cmd
}

func predictGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <transaction-id>...",
		Short: "Evaluate transactions against active patterns",
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

			predictor := learn.NewPredictor(store, cfg)
			created, err := predictor.GeneratePredictions(ctx, userID, args)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("created %d predictions for %d transactions", created, len(args))))
			return nil
		},
	}
}

func predictListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List predictions",
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

			predictions, err := store.ListPredictions(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to list predictions: %w", err)
			}

			if len(predictions) == 0 {
				fmt.Println(cli.FormatInfo("no predictions"))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTRANSACTION\tCONFIDENCE\tSTATUS\tPERSONAL")
			for _, p := range predictions {
				personal := ""
				if p.IsPersonalPrediction {
					personal = cli.WarningIcon
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\n",
					p.ID, p.TransactionID, p.Confidence*100, p.Status, personal)
			}
			return w.Flush()
		},
	}
}
