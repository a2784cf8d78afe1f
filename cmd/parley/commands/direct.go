package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// direct <peer>: start or reuse the direct conversation with <peer>.
func directCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "direct <peer>",
		Short: "Start (or reuse) a direct conversation with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			if err := loadIdentity(); err != nil {
				return err
			}
			convID, err := wire.Roster.CreateDirect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(convID)
			return nil
		},
	}
}
