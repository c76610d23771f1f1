package ryokan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "ryokan.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Default file must exist now with owner-only permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	assert.False(t, cfg.HasPin())
	assert.Equal(t, filepath.Join(filepath.Dir(path), DefaultNotesDirName), cfg.NotesDir)
}

func TestLoadConfigResolvesRelativeNotesDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ryokan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notes_dir: my-notes\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my-notes"), cfg.NotesDir)
}

func TestLoadConfigKeepsAbsoluteNotesDir(t *testing.T) {
	dir := t.TempDir()
	notesDir := filepath.Join(dir, "elsewhere")
	path := filepath.Join(dir, "ryokan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notes_dir: "+notesDir+"\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, notesDir, cfg.NotesDir)
}

func TestConfigPinRecordRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ryokan.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	record, err := cfg.PinRecord()
	require.NoError(t, err)
	assert.Nil(t, record)

	guard := NewPinGuard(nil)
	created, err := guard.Bootstrap("123456")
	require.NoError(t, err)

	cfg.SetPinRecord(created)
	require.True(t, cfg.HasPin())
	require.NoError(t, cfg.Save())

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, reloaded.HasPin())

	record, err = reloaded.PinRecord()
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, created.Salt, record.Salt)
	assert.Equal(t, created.Hash, record.Hash)

	require.NoError(t, NewPinGuard(record).Verify("123456"))
}

func TestConfigSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ryokan.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Editor = "vim"
	require.NoError(t, cfg.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp-", "temp file left behind")
	}
}

func TestConfigRejectsCorruptPinRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ryokan.yaml")
	content := "notes_dir: notes\npin_hash_salt: '!!! not base64'\npin_hash: also-bad\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = cfg.PinRecord()
	assert.Error(t, err)
}
