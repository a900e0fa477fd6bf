package commitment

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/commands"
	"github.com/spf13/cobra"
)

var (
	checkInNote  string
	checkInPhoto string
)

var checkInCmd = &cobra.Command{
	Use:   "checkin [commitment-id]",
	Short: "Record a check-in",
	Long: `Record progress on a commitment.

Examples:
  backy commitment checkin abc123 --note "5k in 27 minutes"
  backy commitment checkin abc123 --photo https://example.com/run.jpg`,
	Aliases: []string{"check-in", "ci"},
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

		result, err := app.CheckInHandler.Handle(cmd.Context(), commands.CheckInCommand{
			CommitmentID: id,
			UserID:       app.CurrentUserID,
			Note:         checkInNote,
			PhotoURL:     checkInPhoto,
		})
		if err != nil {
			return fmt.Errorf("failed to check in: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "[x] Checked in at %s\n", result.OccurredAt.UTC().Format("2006-01-02 15:04 MST"))
		fmt.Fprintf(out, "    Check-ins so far: %d\n", result.CheckInCount)
		return nil
	},
}

func init() {
	checkInCmd.Flags().StringVarP(&checkInNote, "note", "n", "", "note about the check-in")
	checkInCmd.Flags().StringVar(&checkInPhoto, "photo", "", "URL of a photo as proof")
}
