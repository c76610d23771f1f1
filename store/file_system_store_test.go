package store

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileSystemStore {
	t.Helper()
	fs, err := NewFileSystemStore(filepath.Join(t.TempDir(), "notes"))
	require.NoError(t, err)
	return fs
}

func TestFileSystemStoreCreateIsUnique(t *testing.T) {
	fs := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := fs.Create()
		require.NoError(t, err)
		require.False(t, seen[id], "Create returned a duplicate identity")
		seen[id] = true
	}
}

func TestFileSystemStoreWriteReadDelete(t *testing.T) {
	fs := newTestStore(t)

	id, err := fs.Create()
	require.NoError(t, err)

	envelope := []byte("not really an envelope, the store does not care")
	require.NoError(t, fs.Write(id, envelope))

	got, err := fs.Read(id)
	require.NoError(t, err)
	assert.Equal(t, envelope, got)

	require.NoError(t, fs.Delete(id))

	_, err = fs.Read(id)
	assert.True(t, errors.Is(err, ErrNoteNotFound))
}

func TestFileSystemStoreReadMissing(t *testing.T) {
	fs := newTestStore(t)

	_, err := fs.Read("00000000-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, ErrNoteNotFound))

	err = fs.Delete("00000000-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, ErrNoteNotFound))
}

func TestFileSystemStoreListIsSortedAndFiltered(t *testing.T) {
	fs := newTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := fs.Create()
		require.NoError(t, err)
		require.NoError(t, fs.Write(id, []byte("x")))
		ids = append(ids, id)
	}

	// Files the store should not report as notes.
	require.NoError(t, os.WriteFile(filepath.Join(fs.BasePath(), "stray.txt"), []byte("plain"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(fs.BasePath(), ".tmp-123.enc"), []byte("partial"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(fs.BasePath(), ids[0]+metadataExt), []byte("{}"), 0600))

	listed, err := fs.List()
	require.NoError(t, err)

	sort.Strings(ids)
	assert.Equal(t, ids, listed)
	assert.True(t, sort.StringsAreSorted(listed))
}

func TestFileSystemStoreRejectsBadIDs(t *testing.T) {
	fs := newTestStore(t)

	for _, id := range []string{"", "../escape", "a/b", "a\\b", "with space"} {
		assert.Error(t, fs.Write(id, []byte("x")), "ID %q accepted", id)
		_, err := fs.Read(id)
		assert.Error(t, err, "ID %q accepted", id)
	}
}

func TestFileSystemStoreFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not enforced on Windows")
	}

	fs := newTestStore(t)
	id, err := fs.Create()
	require.NoError(t, err)
	require.NoError(t, fs.Write(id, []byte("x")))

	info, err := os.Stat(fs.envelopePath(id))
	require.NoError(t, err)
	assert.Equal(t, FilePermissions, info.Mode().Perm())
}

func TestFileSystemStoreMetadataRoundTrip(t *testing.T) {
	fs := newTestStore(t)

	id, err := fs.Create()
	require.NoError(t, err)

	meta := NewNoteMetadata("groceries")
	meta.Tags = []string{"shopping"}
	require.NoError(t, fs.WriteMetadata(id, meta))

	got, err := fs.ReadMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, meta.Title, got.Title)
	assert.Equal(t, meta.Tags, got.Tags)
	assert.WithinDuration(t, meta.CreatedAt, got.CreatedAt, 0)

	_, err = fs.ReadMetadata("00000000-0000-4000-8000-000000000001")
	assert.True(t, errors.Is(err, ErrNoteNotFound))
}

func TestFileSystemStoreOverwriteIsAtomic(t *testing.T) {
	fs := newTestStore(t)

	id, err := fs.Create()
	require.NoError(t, err)
	require.NoError(t, fs.Write(id, []byte("old")))
	require.NoError(t, fs.Write(id, []byte("new")))

	got, err := fs.Read(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)

	// No temp files left behind after the rename.
	entries, err := os.ReadDir(fs.BasePath())
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp-")
	}
}
