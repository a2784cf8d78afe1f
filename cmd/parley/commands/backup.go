package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// backup: export and import the passphrase-protected identity backup.
func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and import the passphrase-protected backup",
	}
	cmd.AddCommand(backupExportCmd(), backupImportCmd())
	return cmd
}

func backupExportCmd() *cobra.Command {
	var backupPass string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the encrypted identity backup to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadIdentity(); err != nil {
				return err
			}
			if backupPass == "" {
				return fmt.Errorf("backup passphrase required (--backup-passphrase)")
			}
			blob, err := wire.Backup.Export(cmd.Context(), backupPass)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], blob, 0o600); err != nil {
				return err
			}
			fmt.Printf("Backup written to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&backupPass, "backup-passphrase", "", "passphrase protecting the backup file")
	return cmd
}

func backupImportCmd() *cobra.Command {
	var backupPass string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore the identity from an encrypted backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if backupPass == "" {
				return fmt.Errorf("backup passphrase required (--backup-passphrase)")
			}
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := wire.Backup.Import(cmd.Context(), backupPass, blob); err != nil {
				return err
			}
			fmt.Println("Backup restored. Room keys must be re-shared to this device.")
			return nil
		},
	}
	cmd.Flags().StringVar(&backupPass, "backup-passphrase", "", "passphrase protecting the backup file")
	return cmd
}
