package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// pin: manage a conversation's pinned messages.
func pinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Pin, unpin and list pinned messages",
	}
	cmd.AddCommand(pinAddCmd(), pinRemoveCmd(), pinListCmd())
	return cmd
}

func pinAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <conversation> <message>",
		Short: "Pin a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Roster.PinMessage(cmd.Context(), args[0], args[1])
		},
	}
}

func pinRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <conversation> <message>",
		Short: "Unpin a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Roster.UnpinMessage(cmd.Context(), args[0], args[1])
		},
	}
}

func pinListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <conversation>",
		Short: "List pinned messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			pins, err := wire.Roster.Pins(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range pins {
				fmt.Printf("%s\tpinned by %s\n", p.MessageID, p.PinnedBy)
			}
			return nil
		},
	}
}
