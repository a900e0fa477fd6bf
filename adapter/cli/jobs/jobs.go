package jobs

import (
	"fmt"

	"github.com/jurzon/backy/adapter/cli"
	commitmentServices "github.com/jurzon/backy/internal/commitments/application/services"
	reminderServices "github.com/jurzon/backy/internal/reminders/application/services"
	"github.com/spf13/cobra"
)

// Cmd is the jobs command group
var Cmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run background jobs once",
	Long: `Run one of the worker's periodic jobs immediately.

The run takes the same lock as the worker, so it is skipped while the
worker is running the same job.`,
}

func newRunCmd(use, short, jobName string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.RequireApp()
			if err != nil {
				return err
			}

			report, err := app.RunJob(cmd.Context(), jobName)
			if err != nil {
				return fmt.Errorf("%s: %w", jobName, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.String())
			for _, res := range report.Errors() {
				fmt.Fprintf(out, "  [!] %s %s: %v\n", res.Action, res.RecordID, res.Err)
			}
			return nil
		},
	}
}

var (
	scanCmd     = newRunCmd("scan", "Move past-deadline commitments to decision and fail expired ones", commitmentServices.GraceScanJobName)
	horizonCmd  = newRunCmd("horizon", "Schedule reminders for upcoming check-ins", commitmentServices.HorizonJobName)
	dispatchCmd = newRunCmd("dispatch", "Send reminders that are due", reminderServices.DispatchJobName)
)

func init() {
	Cmd.AddCommand(scanCmd)
	Cmd.AddCommand(horizonCmd)
	Cmd.AddCommand(dispatchCmd)
}
