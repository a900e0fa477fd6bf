package commitment

import (
	"fmt"
	"io"
	"os"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/queries"
	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [commitment-id]",
	Short: "Export a commitment as iCalendar",
	Long: `Write the check-in schedule and deadline of a commitment as an .ics calendar.

Examples:
  backy commitment export abc123 > run.ics
  backy commitment export abc123 --out run.ics`,
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

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOut, err)
			}
			defer f.Close()
			w = f
		}

		query := queries.ExportCalendarQuery{CommitmentID: id, UserID: app.CurrentUserID}
		if err := app.ExportCalendarHandler.Handle(cmd.Context(), query, w); err != nil {
			return fmt.Errorf("failed to export commitment: %w", err)
		}
		if exportOut != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to a file instead of stdout")
}
