package ryokan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEditorCommand(t *testing.T) {
	t.Setenv("EDITOR", "")
	assert.Equal(t, DefaultEditorCommand, ResolveEditorCommand(""))

	t.Setenv("EDITOR", "vim")
	assert.Equal(t, "vim", ResolveEditorCommand(""))
	assert.Equal(t, "code --wait", ResolveEditorCommand("code --wait"))
}

func TestExecEditorRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell utilities")
	}

	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	editor := &ExecEditor{Command: "true"}
	assert.NoError(t, editor.Edit(path))

	failing := &ExecEditor{Command: "false"}
	err := failing.Edit(path)
	var editorErr *EditorInvocationError
	assert.ErrorAs(t, err, &editorErr)

	missing := &ExecEditor{Command: "definitely-not-an-editor-7f3a"}
	err = missing.Edit(path)
	assert.ErrorAs(t, err, &editorErr)

	empty := &ExecEditor{Command: "   "}
	err = empty.Edit(path)
	assert.ErrorAs(t, err, &editorErr)
}

func TestScrubTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("sensitive"), 0600))

	require.NoError(t, scrubTempFile(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Scrubbing a missing file is not an error.
	assert.NoError(t, scrubTempFile(path))
}
