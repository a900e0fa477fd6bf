package quiethours

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/reminders/application/commands"
	"github.com/jurzon/backy/internal/reminders/application/queries"
	"github.com/spf13/cobra"
)

// Cmd is the quiet hours command group
var Cmd = &cobra.Command{
	Use:     "quiet-hours",
	Short:   "Manage reminder quiet hours",
	Long:    `Reminders due inside the quiet window are held until it ends.`,
	Aliases: []string{"quiet"},
}

var (
	startHour int
	endHour   int
	timezone  string
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set your quiet window",
	Long: `Set the hours during which no reminders are sent.

A window that wraps midnight (start > end) is allowed. Equal start and end
disable quiet hours.

Examples:
  backy quiet-hours set --start 22 --end 7 --tz Europe/Zurich
  backy quiet-hours set --start 0 --end 0     # never quiet`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		q, err := app.SetQuietHoursHandler.Handle(cmd.Context(), commands.SetQuietHoursCommand{
			UserID:    app.CurrentUserID,
			StartHour: startHour,
			EndHour:   endHour,
			Timezone:  timezone,
		})
		if err != nil {
			return fmt.Errorf("failed to set quiet hours: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Quiet hours set: %s\n", formatWindow(q.StartHour(), q.EndHour(), q.Timezone()))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Return to the default quiet window",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if err := app.ClearQuietHoursHandler.Handle(cmd.Context(), commands.ClearQuietHoursCommand{UserID: app.CurrentUserID}); err != nil {
			return fmt.Errorf("failed to clear quiet hours: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Quiet hours cleared, using the default window.")
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the quiet window in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		dto, err := app.GetQuietHoursHandler.Handle(cmd.Context(), queries.GetQuietHoursQuery{UserID: app.CurrentUserID})
		if err != nil {
			return fmt.Errorf("failed to get quiet hours: %w", err)
		}

		line := "Quiet hours: " + formatWindow(dto.StartHour, dto.EndHour, dto.Timezone)
		if dto.IsDefault {
			line += " (default)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	},
}

func formatWindow(start, end int, tz string) string {
	if start == end {
		return "off"
	}
	return fmt.Sprintf("%02d:00-%02d:00 %s", start, end, tz)
}

func init() {
	setCmd.Flags().IntVar(&startHour, "start", 22, "hour the quiet window starts (0-23)")
	setCmd.Flags().IntVar(&endHour, "end", 7, "hour the quiet window ends (0-23)")
	setCmd.Flags().StringVar(&timezone, "tz", "UTC", "IANA timezone of the window")

	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(showCmd)
}
