package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Long:  "List all notes, most recently updated first.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printNoteList()
	},
}

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a note and open it in the editor",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ""
		if len(args) > 0 {
			title = args[0]
		}

		id, err := session.Create(title)
		if err != nil {
			return err
		}
		fmt.Printf("Created note %s\n", id)

		return session.Edit(id, noteEditor)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note's decrypted content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := session.Read(args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Open a note in the editor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session.Edit(args[0], noteEditor)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(fmt.Sprintf("Delete note %s?", args[0])) {
			fmt.Println("Aborted.")
			return nil
		}
		if err := session.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Change a note's title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return session.Rename(args[0], args[1])
	},
}

func printNoteList() error {
	listings, err := session.Notes()
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Println("No notes yet. Create one with 'ryokan new'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, listing := range listings {
		title, updated := "(no metadata)", ""
		if listing.Meta != nil {
			title = listing.Meta.Title
			updated = listing.Meta.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", listing.ID, truncate(title, 40), updated)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(renameCmd)
}
