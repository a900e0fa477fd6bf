package commitment

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listAll    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List commitments",
	Long: `List your commitments with progress and risk.

Examples:
  backy commitment list                    # Open commitments
  backy commitment list --status failed    # Failed commitments
  backy commitment list --all              # Everything, including deleted`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		list, err := app.ListCommitmentsHandler.Handle(cmd.Context(), queries.ListCommitmentsQuery{
			UserID:         app.CurrentUserID,
			Status:         listStatus,
			IncludeDeleted: listAll,
		})
		if err != nil {
			return fmt.Errorf("failed to list commitments: %w", err)
		}

		renderList(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (active, decision_needed, completed, failed, cancelled, deleted)")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include deleted commitments")
}
