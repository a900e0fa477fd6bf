package payment

import (
	"fmt"
	"strings"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/payments/application/queries"
	"github.com/spf13/cobra"
)

// Cmd is the payment command group
var Cmd = &cobra.Command{
	Use:   "payment",
	Short: "Inspect payment intents for forfeited stakes",
}

var (
	status string
	limit  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List payment intents",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		intents, err := app.ListPaymentIntentsHandler.Handle(cmd.Context(), queries.ListPaymentIntentsQuery{
			Status: status,
			Limit:  limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list payment intents: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(intents) == 0 {
			fmt.Fprintln(out, "No payment intents found.")
			return nil
		}
		fmt.Fprintf(out, "Payment intents (%d):\n", len(intents))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, p := range intents {
			fmt.Fprintf(out, "%s %d.%02d %s  commitment %s\n",
				p.Status, p.AmountMinor/100, p.AmountMinor%100, p.Currency, p.CommitmentID.String()[:8])
			fmt.Fprintf(out, "   Created: %s  Attempts: %d\n", p.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), p.AttemptCount)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&status, "status", "s", "pending", "intent status")
	listCmd.Flags().IntVarP(&limit, "limit", "n", queries.DefaultListLimit, "max number of intents")

	Cmd.AddCommand(listCmd)
}
