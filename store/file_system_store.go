package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700

	envelopeExt = ".enc"
	metadataExt = ".meta"

	// createRetries bounds the collision retry loop in Create. UUIDv4
	// collisions are not expected; the loop exists so a collision is an
	// error, never an overwrite.
	createRetries = 5
)

// FileSystemStore implements Store on a local directory. Each note is a pair
// of files: <id>.enc holds the envelope, <id>.meta holds the JSON sidecar.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore initializes a store rooted at basePath, creating the
// directory if needed.
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(abs, DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create notes directory %s: %w", abs, err)
	}

	return &FileSystemStore{basePath: abs}, nil
}

func (fs *FileSystemStore) envelopePath(id string) string {
	return filepath.Join(fs.basePath, id+envelopeExt)
}

func (fs *FileSystemStore) metadataPath(id string) string {
	return filepath.Join(fs.basePath, id+metadataExt)
}

// Create allocates a fresh UUID identity and verifies no envelope already
// exists under it.
func (fs *FileSystemStore) Create() (string, error) {
	for i := 0; i < createRetries; i++ {
		id := uuid.New().String()

		exists, err := fileExists(fs.envelopePath(id))
		if err != nil {
			return "", fmt.Errorf("failed to check note existence: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to allocate a unique note ID after %d attempts", createRetries)
}

// List returns all note identities sorted lexicographically.
func (fs *FileSystemStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, envelopeExt) {
			continue
		}
		// Skip in-flight temp files from atomic writes.
		if strings.HasPrefix(name, ".tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, envelopeExt))
	}

	sort.Strings(ids)
	return ids, nil
}

func (fs *FileSystemStore) Read(id string) ([]byte, error) {
	if err := validateNoteID(id); err != nil {
		return nil, fmt.Errorf("invalid note ID: %w", err)
	}

	data, err := os.ReadFile(fs.envelopePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("note %s: %w", id, ErrNoteNotFound)
		}
		return nil, fmt.Errorf("failed to read note %s: %w", id, err)
	}
	return data, nil
}

func (fs *FileSystemStore) Write(id string, envelope []byte) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}
	if len(envelope) == 0 {
		return fmt.Errorf("envelope cannot be empty")
	}

	if err := os.MkdirAll(fs.basePath, DirPermissions); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}

	return writeSecureFile(fs.envelopePath(id), envelope, FilePermissions)
}

func (fs *FileSystemStore) Delete(id string) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}

	if err := os.Remove(fs.envelopePath(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("note %s: %w", id, ErrNoteNotFound)
		}
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}

	// The sidecar is best-effort: a note without metadata is still a note.
	if err := os.Remove(fs.metadataPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete metadata for note %s: %w", id, err)
	}
	return nil
}

func (fs *FileSystemStore) ReadMetadata(id string) (*NoteMetadata, error) {
	if err := validateNoteID(id); err != nil {
		return nil, fmt.Errorf("invalid note ID: %w", err)
	}

	data, err := os.ReadFile(fs.metadataPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata for note %s: %w", id, ErrNoteNotFound)
		}
		return nil, fmt.Errorf("failed to read metadata for note %s: %w", id, err)
	}

	var meta NoteMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for note %s: %w", id, err)
	}
	return &meta, nil
}

func (fs *FileSystemStore) WriteMetadata(id string, meta *NoteMetadata) error {
	if err := validateNoteID(id); err != nil {
		return fmt.Errorf("invalid note ID: %w", err)
	}
	if meta == nil {
		return fmt.Errorf("metadata cannot be nil")
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	return writeSecureFile(fs.metadataPath(id), data, FilePermissions)
}

func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}

// Ping checks the notes directory is still reachable.
func (fs *FileSystemStore) Ping() error {
	_, err := os.Stat(fs.basePath)
	return err
}

func (fs *FileSystemStore) Close() error {
	return nil
}

// BasePath returns the directory the store is rooted at.
func (fs *FileSystemStore) BasePath() string {
	return fs.basePath
}

// PlainFiles returns the paths of regular files in the notes directory that
// are neither envelopes nor sidecars, i.e. plaintext candidates for import.
func (fs *FileSystemStore) PlainFiles() ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read notes directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() ||
			strings.HasSuffix(name, envelopeExt) ||
			strings.HasSuffix(name, metadataExt) ||
			strings.HasPrefix(name, ".") {
			continue
		}
		paths = append(paths, filepath.Join(fs.basePath, name))
	}

	sort.Strings(paths)
	return paths, nil
}

// writeSecureFile writes data to path atomically: the content lands in a
// temp file in the same directory, is synced, then renamed over the target.
func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
