package commitment

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/spf13/cobra"
)

var previewCount int

var previewCmd = &cobra.Command{
	Use:   "preview [commitment-id]",
	Short: "Preview upcoming check-ins",
	Long: `List the next check-in occurrences of a commitment, in UTC and in its own timezone.

Examples:
  backy commitment preview abc123
  backy commitment preview abc123 --count 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		preview, err := app.PreviewScheduleHandler.Handle(cmd.Context(), queries.PreviewScheduleQuery{
			CommitmentID: id,
			UserID:       app.CurrentUserID,
			Count:        previewCount,
		})
		if err != nil {
			return fmt.Errorf("failed to preview schedule: %w", err)
		}

		renderPreview(cmd.OutOrStdout(), preview)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVarP(&previewCount, "count", "n", queries.DefaultPreviewCount, "number of occurrences to show")
}
