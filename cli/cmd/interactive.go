package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const previewLimit = 240

// runInteractive is the default command: a browse loop over the unlocked
// store. It is deliberately line-oriented so it works over ssh and in dumb
// terminals.
func runInteractive(cmd *cobra.Command, args []string) error {
	fmt.Println("ryokan — type 'help' for commands.")

	for {
		if err := printNoteList(); err != nil {
			return err
		}

		line, err := promptLine("> ")
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "q", "quit", "exit":
			return nil

		case "help", "?":
			printInteractiveHelp()

		case "n", "new":
			title := strings.Join(fields[1:], " ")
			id, err := session.Create(title)
			if err != nil {
				fmt.Println(formatError(err))
				continue
			}
			if err := session.Edit(id, noteEditor); err != nil {
				fmt.Println(formatError(err))
			}

		case "e", "edit":
			id, ok := resolveNoteArg(fields[1:])
			if !ok {
				continue
			}
			if err := session.Edit(id, noteEditor); err != nil {
				fmt.Println(formatError(err))
			}

		case "p", "preview", "show":
			id, ok := resolveNoteArg(fields[1:])
			if !ok {
				continue
			}
			printPreview(id)

		case "d", "delete":
			id, ok := resolveNoteArg(fields[1:])
			if !ok {
				continue
			}
			if !confirm(fmt.Sprintf("Delete note %s?", id)) {
				continue
			}
			if err := session.Delete(id); err != nil {
				fmt.Println(formatError(err))
			}

		case "r", "rename":
			if len(fields) < 3 {
				fmt.Println("usage: rename <id|index> <title>")
				continue
			}
			id, ok := resolveNoteArg(fields[1:2])
			if !ok {
				continue
			}
			if err := session.Rename(id, strings.Join(fields[2:], " ")); err != nil {
				fmt.Println(formatError(err))
			}

		default:
			fmt.Printf("unknown command %q, type 'help'\n", fields[0])
		}
	}
}

func printInteractiveHelp() {
	fmt.Println(`commands:
  new [title]          create a note and open the editor
  edit <id|index>      edit a note
  show <id|index>      preview a note's content
  rename <id|index> t  change a note's title
  delete <id|index>    delete a note
  quit                 lock and exit`)
}

// resolveNoteArg accepts either a full note ID or a 1-based index into the
// current listing.
func resolveNoteArg(args []string) (string, bool) {
	if len(args) == 0 {
		fmt.Println("a note id or index is required")
		return "", false
	}
	arg := args[0]

	listings, err := session.Notes()
	if err != nil {
		fmt.Println(formatError(err))
		return "", false
	}

	var index int
	if _, err := fmt.Sscanf(arg, "%d", &index); err == nil {
		if index < 1 || index > len(listings) {
			fmt.Printf("index %d out of range (1-%d)\n", index, len(listings))
			return "", false
		}
		return listings[index-1].ID, true
	}

	for _, listing := range listings {
		if listing.ID == arg {
			return arg, true
		}
	}
	fmt.Printf("no note %q\n", arg)
	return "", false
}

func printPreview(id string) {
	content, err := session.Read(id)
	if err != nil {
		fmt.Println(formatError(err))
		return
	}
	if len(content) == 0 {
		fmt.Println("(empty note)")
		return
	}

	preview := string(content)
	if len(preview) > previewLimit {
		preview = truncate(preview, previewLimit) + "\n[truncated]"
	}
	fmt.Println(preview)
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	return readLine()
}
