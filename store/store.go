package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoteNotFound is returned when the requested note identity has no
// envelope in the store.
var ErrNoteNotFound = errors.New("note not found")

// NoteMetadata is the unencrypted sidecar record kept next to each envelope.
// It never contains note content, only bookkeeping.
type NoteMetadata struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
}

// NewNoteMetadata returns metadata for a freshly created note.
func NewNoteMetadata(title string) *NoteMetadata {
	now := time.Now().UTC()
	return &NoteMetadata{
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch marks the note as updated now.
func (m *NoteMetadata) Touch() {
	m.UpdatedAt = time.Now().UTC()
}

// Store maps note identities to encrypted envelopes on a storage medium.
// All note data passed through this interface is already encrypted by the
// codec layer; the store never sees plaintext.
type Store interface {

	// Create allocates a new unique note identity. It guarantees the
	// identity does not collide with any existing note in the store. No
	// envelope exists until the first Write.
	Create() (string, error)

	// List enumerates all note identities currently in the store, sorted
	// lexicographically. The order is stable for a given storage state but
	// carries no semantic meaning.
	List() ([]string, error)

	// Read returns the envelope bytes for a note, or ErrNoteNotFound.
	Read(id string) ([]byte, error)

	// Write persists an envelope under the given identity. The write is
	// atomic from the reader's perspective: List and Read never observe a
	// partial envelope.
	Write(id string, envelope []byte) error

	// Delete removes the envelope and its metadata sidecar.
	Delete(id string) error

	// Metadata sidecars

	ReadMetadata(id string) (*NoteMetadata, error)

	WriteMetadata(id string, meta *NoteMetadata) error

	// Health and utilities

	// Ping tests connectivity for remote backends.
	Ping() error

	// Close releases any resources the store holds.
	Close() error

	// GetType returns the backend type (e.g. "filesystem", "s3").
	GetType() string
}

// StoreConfig provides configuration for different storage backends.
type StoreConfig struct {
	// Type specifies the storage backend to be used.
	Type StoreType `json:"type"`

	// Config contains backend-specific settings, e.g. "base_path" for the
	// filesystem store or bucket credentials for S3.
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the different types of storage backends that can be used.
type StoreType string

// Supported storage types.
const (
	StoreTypeFileSystem StoreType = "filesystem"
	StoreTypeS3         StoreType = "s3"
)

// NewStore factory function to create storage backends
func NewStore(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		basePath, ok := config.Config["base_path"].(string)
		if !ok {
			return nil, fmt.Errorf("filesystem storage requires 'base_path' in config")
		}
		return NewFileSystemStore(basePath)

	case StoreTypeS3:
		return NewS3StoreFromConfig(config)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// validateNoteID rejects identities that could escape the store namespace.
func validateNoteID(id string) error {
	if id == "" {
		return fmt.Errorf("note ID cannot be empty")
	}

	if strings.Contains(id, "..") ||
		strings.Contains(id, "/") ||
		strings.Contains(id, "\\") ||
		strings.Contains(id, " ") {
		return fmt.Errorf("note ID contains invalid characters")
	}

	if len(id) > 100 {
		return fmt.Errorf("note ID too long (max 100 characters)")
	}

	return nil
}
