package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if _, err := wire.IDs.EnsureIdentity(passphrase); err != nil {
				return err
			}
			fp, err := wire.IDs.Fingerprint()
			if err != nil {
				return err
			}
			fmt.Println(fp)
			return nil
		},
	}
}
