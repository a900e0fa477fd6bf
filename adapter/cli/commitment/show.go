package commitment

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show [commitment-id]",
	Short:   "Show commitment details",
	Aliases: []string{"get", "view"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		dto, err := app.GetCommitmentHandler.Handle(cmd.Context(), queries.GetCommitmentQuery{
			CommitmentID: id,
			UserID:       app.CurrentUserID,
		})
		if err != nil {
			return fmt.Errorf("failed to get commitment: %w", err)
		}

		renderCommitment(cmd.OutOrStdout(), dto)
		return nil
	},
}
