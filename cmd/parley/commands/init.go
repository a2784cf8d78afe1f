package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate device identity keys and register with the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := requireUser(); err != nil {
				return err
			}
			if _, err := wire.IDs.EnsureIdentity(passphrase); err != nil {
				return err
			}
			fp, err := wire.IDs.Fingerprint()
			if err != nil {
				return err
			}

			if relayURL != "" {
				key, err := wire.IDs.DeviceKey(userID)
				if err != nil {
					return err
				}
				if err := wire.Relay.RegisterDevice(cmd.Context(), key); err != nil {
					return err
				}
			}
			fmt.Printf("Identity ready.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}
