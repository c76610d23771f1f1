package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var encryptPlainCmd = &cobra.Command{
	Use:   "encrypt-plain",
	Short: "Encrypt stray plaintext files in the notes directory",
	Long: `Scan the notes directory for plaintext files that are not yet
encrypted, import each one as a note titled after the filename, and remove
the plaintext original.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		imported, err := session.EncryptPlainFiles()
		if err != nil {
			return err
		}
		if len(imported) == 0 {
			fmt.Println("No plaintext files found.")
			return nil
		}
		fmt.Printf("Encrypted %d file(s):\n", len(imported))
		for _, id := range imported {
			fmt.Printf("  %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(encryptPlainCmd)
}
