package commitment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the commitment command group
var Cmd = &cobra.Command{
	Use:     "commitment",
	Short:   "Manage commitments",
	Long:    `Create commitments with a stake and schedule, check in, and close them out.`,
	Aliases: []string{"c"},
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(checkInCmd)
	Cmd.AddCommand(completeCmd)
	Cmd.AddCommand(failCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(previewCmd)
	Cmd.AddCommand(exportCmd)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid commitment ID: %w", err)
	}
	return id, nil
}
