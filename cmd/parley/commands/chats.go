package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// chats: list cached conversations, most recent first.
func chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			convs, err := wire.Roster.Conversations()
			if err != nil {
				return err
			}
			for _, c := range convs {
				name := c.Name
				if name == "" {
					name = c.ID
				}
				when := ""
				if c.LastMessageAt > 0 {
					when = time.UnixMilli(c.LastMessageAt).Format("2006-01-02 15:04")
				}
				unread := ""
				if c.Unread > 0 {
					unread = fmt.Sprintf(" (%d unread)", c.Unread)
				}
				fmt.Printf("%s\t%s\t%s%s\t%s\n", c.ID, name, c.LastPreview, unread, when)
			}
			return nil
		},
	}
}
