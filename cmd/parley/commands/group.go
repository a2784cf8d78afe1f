package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/domain"
)

// group: create and manage group conversations.
func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and manage group conversations",
	}
	cmd.AddCommand(
		groupCreateCmd(), groupAddCmd(),
		groupPromoteCmd(), groupDemoteCmd(),
		groupReshareCmd(), groupMembersCmd(),
	)
	return cmd
}

func groupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <member>...",
		Short: "Create a group; you become its owner",
		Args:  cobra.MinimumNArgs(2),
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
			convID, err := wire.Roster.CreateGroup(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Println(convID)
			return nil
		},
	}
}

func groupAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <conversation> <member>...",
		Short: "Add members and share the room key with them",
		Args:  cobra.MinimumNArgs(2),
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
			return wire.Roster.AddMembers(cmd.Context(), args[0], args[1:])
		},
	}
}

func groupPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <conversation> <member>",
		Short: "Promote a member to admin (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Roster.SetRole(cmd.Context(), args[0], args[1], domain.RoleAdmin)
		},
	}
}

func groupDemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demote <conversation> <admin>",
		Short: "Demote an admin to member (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if err := requireRelay(); err != nil {
				return err
			}
			return wire.Roster.SetRole(cmd.Context(), args[0], args[1], domain.RoleMember)
		},
	}
}

func groupReshareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reshare <conversation>",
		Short: "Re-wrap the room key for every member device",
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
			return wire.Shares.Reshare(cmd.Context(), args[0])
		},
	}
}

func groupMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <conversation>",
		Short: "List a conversation's members and roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRelay(); err != nil {
				return err
			}
			members, err := wire.Roster.Participants(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Printf("%s\t%s\n", m.UserID, m.Role)
			}
			return nil
		},
	}
}
