package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"parley/internal/content"
	"parley/internal/domain"
)

// recv: fetch and decrypt queued messages for this device.
func recvCmd() *cobra.Command {
	var limit int
	var open string

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
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

			// Install pending key grants first so their conversations
			// decode in the same pass.
			id, err := wire.IDs.Identity()
			if err != nil {
				return err
			}
			grants, err := wire.Relay.FetchGrants(cmd.Context(), id.DeviceID)
			if err != nil {
				return err
			}
			for _, g := range grants {
				if err := wire.Vault.Install(g, nil); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping grant for %s: %v\n", g.ConversationID, err)
				}
			}

			msgs, err := wire.Messages.Receive(cmd.Context(), limit)
			if err != nil {
				return friendly(err)
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s: %s\n", m.ConversationID, m.SenderID, renderBody(m))
			}

			if open != "" {
				if err := wire.Roster.Open(open); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max messages to fetch (0 = server default)")
	cmd.Flags().StringVar(&open, "open", "", "mark a conversation read after fetching")
	return cmd
}

// renderBody flattens a decrypted message to one printable line.
func renderBody(m domain.ChatMessage) string {
	if m.Type == domain.MessageImage {
		return "[photo]"
	}
	c := content.Unwrap(m.Plaintext)
	switch c.T {
	case content.KindFile:
		return fmt.Sprintf("[file %s, %d bytes]", c.Name, c.Size)
	case content.KindAlbum:
		if c.Caption != "" {
			return fmt.Sprintf("[album of %d: %s]", len(c.Items), c.Caption)
		}
		return fmt.Sprintf("[album of %d]", len(c.Items))
	default:
		return c.Text
	}
}
