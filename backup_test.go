package ryokan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walker84837/ryokan/store"
)

func newBackupFixture(t *testing.T) (*Session, *store.FileSystemStore, []string) {
	t.Helper()

	session, st := newTestSession(t)
	require.NoError(t, session.Unlock("123456"))

	var ids []string
	for _, content := range []string{"first note", "second note"} {
		id, err := session.Create(content)
		require.NoError(t, err)
		require.NoError(t, session.Edit(id, &scriptedEditor{Content: []byte(content)}))
		ids = append(ids, id)
	}
	return session, st, ids
}

func TestBackupExportImportRoundTrip(t *testing.T) {
	_, st, ids := newBackupFixture(t)

	backupPath := filepath.Join(t.TempDir(), "notes.backup")
	require.NoError(t, ExportBackup(st, backupPath, "travel passphrase"))

	// Restore into a fresh store.
	target, err := store.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	restored, err := ImportBackup(target, backupPath, "travel passphrase")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, restored)

	for _, id := range ids {
		original, err := st.Read(id)
		require.NoError(t, err)
		copied, err := target.Read(id)
		require.NoError(t, err)
		assert.Equal(t, original, copied, "envelope must survive backup byte for byte")

		meta, err := target.ReadMetadata(id)
		require.NoError(t, err)
		assert.NotEmpty(t, meta.Title)
	}
}

func TestBackupImportSkipsExistingNotes(t *testing.T) {
	_, st, ids := newBackupFixture(t)

	backupPath := filepath.Join(t.TempDir(), "notes.backup")
	require.NoError(t, ExportBackup(st, backupPath, "travel passphrase"))

	// Importing into the source store restores nothing.
	restored, err := ImportBackup(st, backupPath, "travel passphrase")
	require.NoError(t, err)
	assert.Empty(t, restored)

	// Delete one note; only that one comes back.
	require.NoError(t, st.Delete(ids[0]))
	restored, err = ImportBackup(st, backupPath, "travel passphrase")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, restored)
}

func TestBackupWrongPassphrase(t *testing.T) {
	_, st, _ := newBackupFixture(t)

	backupPath := filepath.Join(t.TempDir(), "notes.backup")
	require.NoError(t, ExportBackup(st, backupPath, "right"))

	target, err := store.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = ImportBackup(target, backupPath, "wrong")
	assert.Error(t, err)

	ids, err := target.List()
	require.NoError(t, err)
	assert.Empty(t, ids, "nothing may be restored on passphrase failure")
}

func TestBackupDetectsCorruption(t *testing.T) {
	_, st, _ := newBackupFixture(t)

	backupPath := filepath.Join(t.TempDir(), "notes.backup")
	require.NoError(t, ExportBackup(st, backupPath, "travel passphrase"))

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)

	var container BackupContainer
	require.NoError(t, json.Unmarshal(data, &container))
	require.NotEmpty(t, container.EncryptedData)
	container.EncryptedData[0] ^= 0x01

	tampered, err := json.Marshal(container)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(backupPath, tampered, 0600))

	target, err := store.NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	_, err = ImportBackup(target, backupPath, "travel passphrase")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestBackupRequiresPassphrase(t *testing.T) {
	_, st, _ := newBackupFixture(t)
	err := ExportBackup(st, filepath.Join(t.TempDir(), "notes.backup"), "")
	assert.Error(t, err)
}
