package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/walker84837/ryokan"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import encrypted backups",
	Long: `Create a passphrase-encrypted backup of all notes, or restore notes
from one. Notes inside the backup stay encrypted under your PIN; the
passphrase only protects the backup file itself in transit.`,
}

var exportBackupCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export all notes into an encrypted backup file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupExport,
}

var importBackupCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore missing notes from a backup file",
	Long: `Restore notes from a backup file. Notes already present in the store
are never overwritten; only missing ones are restored.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupImport,
}

func runBackupExport(cmd *cobra.Command, args []string) error {
	passphrase, err := readPassphrase("Backup passphrase: ")
	if err != nil {
		return err
	}
	confirmPass, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirmPass {
		return fmt.Errorf("passphrases do not match")
	}

	if err := ryokan.ExportBackup(session.Store(), args[0], passphrase); err != nil {
		return err
	}
	fmt.Printf("Backup written to %s\n", args[0])
	return nil
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	passphrase, err := readPassphrase("Backup passphrase: ")
	if err != nil {
		return err
	}

	restored, err := ryokan.ImportBackup(session.Store(), args[0], passphrase)
	if err != nil {
		return err
	}
	if len(restored) == 0 {
		fmt.Println("Nothing to restore, all notes already present.")
		return nil
	}
	fmt.Printf("Restored %d note(s):\n", len(restored))
	for _, id := range restored {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func init() {
	backupCmd.AddCommand(exportBackupCmd)
	backupCmd.AddCommand(importBackupCmd)
	rootCmd.AddCommand(backupCmd)
}
