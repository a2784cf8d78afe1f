package commands

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/content"
	"parley/internal/domain"
)

// send <conversation> [message]: encrypt and send a message.
func sendCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "send <conversation> [message]",
		Short: "Encrypt and send a message",
		Args:  cobra.RangeArgs(1, 2),
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

			convID := args[0]
			plaintext := ""
			typ := domain.MessageText
			if len(args) == 2 {
				plaintext = args[1]
			}

			if filePath != "" {
				c, isImage, err := fileContent(filePath)
				if err != nil {
					return err
				}
				if isImage {
					typ = domain.MessageImage
					plaintext = c.DataURL
				} else {
					plaintext = content.Wrap(c)
				}
			} else if plaintext == "" {
				return fmt.Errorf("message text or --file required")
			}

			msg, err := wire.Messages.Send(cmd.Context(), convID, plaintext, typ)
			if err != nil {
				return friendly(err)
			}
			fmt.Println(msg.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "attach a file instead of text")
	return cmd
}

// fileContent reads path into a content value. Images travel as IMAGE
// messages with a bare data URL; everything else as a file envelope.
func fileContent(path string) (content.Content, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return content.Content{}, false, err
	}
	mt := mime.TypeByExtension(filepath.Ext(path))
	if mt == "" {
		mt = "application/octet-stream"
	}
	dataURL := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)

	if strings.HasPrefix(mt, "image/") {
		return content.Content{DataURL: dataURL}, true, nil
	}
	return content.File(filepath.Base(path), mt, dataURL, int64(len(data))), false, nil
}
