package commitment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jurzon/backy/adapter/cli"
	"github.com/jurzon/backy/internal/commitments/application/commands"
	"github.com/spf13/cobra"
)

type transitionFunc func(ctx context.Context, app *cli.App, id uuid.UUID) (*commands.TransitionResult, error)

// newTransitionCmd builds a command that moves one commitment to another
// status and reports the result.
func newTransitionCmd(use, short, verb string, aliases []string, run transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [commitment-id]",
		Short:   short,
		Aliases: aliases,
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

			result, err := run(cmd.Context(), app, id)
			if err != nil {
				return fmt.Errorf("failed to %s commitment: %w", verb, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Commitment %s is now %s\n",
				statusIcon(string(result.Status)), result.CommitmentID, result.Status)
			return nil
		},
	}
}

var completeCmd = newTransitionCmd("complete", "Mark a commitment as achieved", "complete", []string{"done"},
	func(ctx context.Context, app *cli.App, id uuid.UUID) (*commands.TransitionResult, error) {
		return app.CompleteCommitmentHandler.Handle(ctx, commands.CompleteCommitmentCommand{CommitmentID: id, UserID: app.CurrentUserID})
	})

var failCmd = newTransitionCmd("fail", "Admit a commitment was missed", "fail", nil,
	func(ctx context.Context, app *cli.App, id uuid.UUID) (*commands.TransitionResult, error) {
		return app.FailCommitmentHandler.Handle(ctx, commands.FailCommitmentCommand{CommitmentID: id, UserID: app.CurrentUserID})
	})

var cancelCmd = newTransitionCmd("cancel", "Cancel a commitment before its final day", "cancel", nil,
	func(ctx context.Context, app *cli.App, id uuid.UUID) (*commands.TransitionResult, error) {
		return app.CancelCommitmentHandler.Handle(ctx, commands.CancelCommitmentCommand{CommitmentID: id, UserID: app.CurrentUserID})
	})

var deleteCmd = newTransitionCmd("delete", "Delete a commitment", "delete", []string{"rm"},
	func(ctx context.Context, app *cli.App, id uuid.UUID) (*commands.TransitionResult, error) {
		return app.DeleteCommitmentHandler.Handle(ctx, commands.DeleteCommitmentCommand{CommitmentID: id, UserID: app.CurrentUserID})
	})
