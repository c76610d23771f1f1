package ryokan

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultEditorCommand is used when neither the config nor $EDITOR names one.
const DefaultEditorCommand = "nano"

// Editor opens a file for interactive editing and returns once the user is
// done. It exists as an interface so sessions can be tested without spawning
// a real editor process.
type Editor interface {
	Edit(path string) error
}

// ExecEditor runs an external editor command with the terminal attached.
// The command may contain arguments separated by whitespace, e.g.
// "code --wait".
type ExecEditor struct {
	Command string
}

// Edit invokes the editor on path and blocks until it exits.
func (e *ExecEditor) Edit(path string) error {
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return &EditorInvocationError{Command: e.Command, Err: fmt.Errorf("empty editor command")}
	}

	args := append(fields[1:], path)
	cmd := exec.Command(fields[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return &EditorInvocationError{Command: fields[0], Err: err}
	}
	return nil
}

// ResolveEditorCommand picks the editor command: configured value first,
// then $EDITOR, then the default.
func ResolveEditorCommand(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv("EDITOR"); env != "" {
		return env
	}
	return DefaultEditorCommand
}

// scrubTempFile overwrites the file's current contents with zeros, syncs,
// and removes it. Overwriting is best effort; removal always happens.
func scrubTempFile(path string) error {
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		if f, openErr := os.OpenFile(path, os.O_WRONLY, 0); openErr == nil {
			zeros := make([]byte, info.Size())
			_, _ = f.WriteAt(zeros, 0)
			_ = f.Sync()
			_ = f.Close()
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
