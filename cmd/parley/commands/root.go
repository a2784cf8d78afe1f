package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	home       string
	passphrase string
	relayURL   string
	userID     string

	wire *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "parley",
		Short: "End-to-end encrypted chat CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".parley")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			wire, err = app.NewWire(app.Config{
				Home:       home,
				RelayURL:   relayURL,
				UserID:     userID,
				Passphrase: passphrase,
			})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.parley)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVarP(&userID, "user", "u", "", "your user id, as registered with the relay")

	root.AddCommand(
		initCmd(), fingerprintCmd(),
		directCmd(), groupCmd(), chatsCmd(),
		sendCmd(), recvCmd(), pinCmd(),
		typingCmd(), callCmd(),
		backupCmd(), listenCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

func requireUser() error {
	if userID == "" {
		return fmt.Errorf("user id required (-u)")
	}
	return nil
}

// loadIdentity unlocks the device identity for commands that need key
// material.
func loadIdentity() error {
	if err := requirePassphrase(); err != nil {
		return err
	}
	_, err := wire.IDs.EnsureIdentity(passphrase)
	return err
}

func requireRelay() error {
	if relayURL == "" {
		return fmt.Errorf("no relay configured, use --relay")
	}
	return nil
}
