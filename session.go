package ryokan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/google/uuid"

	"github.com/walker84837/ryokan/audit"
	"github.com/walker84837/ryokan/internal/mem"
	"github.com/walker84837/ryokan/internal/misc"
	"github.com/walker84837/ryokan/store"
)

// SessionState tracks the lifecycle of a session.
type SessionState int

const (
	StateLocked SessionState = iota
	StatePinPrompt
	StateBrowsing
	StateEditing
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StatePinPrompt:
		return "pin-prompt"
	case StateBrowsing:
		return "browsing"
	case StateEditing:
		return "editing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// NoteListing pairs a note identity with its sidecar metadata. Meta is nil
// when the sidecar is missing or unreadable.
type NoteListing struct {
	ID   string
	Meta *store.NoteMetadata
}

// Session is the lifecycle controller for one unlocked note store. It owns
// the PIN enclave, mediates all note operations, and emits audit events for
// every outcome. A session runs one operation at a time.
type Session struct {
	mu sync.Mutex

	id     string
	cfg    *Config
	store  store.Store
	audit  audit.Logger
	guard  *PinGuard
	state  SessionState
	pinEnc *memguard.Enclave

	memProtection mem.ProtectionLevel
}

// NewSession builds a session over an opened store and audit logger. The
// session starts at the PIN prompt; no note operation is possible until
// Unlock succeeds.
func NewSession(cfg *Config, st store.Store, logger audit.Logger) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = audit.NewNoOpLogger()
	}

	record, err := cfg.PinRecord()
	if err != nil {
		return nil, err
	}

	return &Session{
		id:    uuid.New().String(),
		cfg:   cfg,
		store: st,
		audit: logger,
		guard: NewPinGuard(record),
		state: StatePinPrompt,
	}, nil
}

// ID returns the session identifier carried on audit events.
func (s *Session) ID() string {
	return s.id
}

// Store exposes the underlying note store for backup and restore. Envelopes
// read through it are still encrypted.
func (s *Session) Store() store.Store {
	return s.store
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MemoryProtection reports the level achieved at unlock.
func (s *Session) MemoryProtection() mem.ProtectionLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memProtection
}

// HasPin reports whether a PIN record exists, i.e. whether Unlock will
// verify an existing PIN or bootstrap a new one.
func (s *Session) HasPin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.HasRecord()
}

// Unlock verifies the PIN against the stored record, or bootstraps the
// record on first use. On success the PIN is sealed into an enclave and the
// session moves to browsing. A mismatch leaves the session at the prompt so
// the caller may retry.
func (s *Session) Unlock(pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePinPrompt {
		return fmt.Errorf("cannot unlock from state %s", s.state)
	}

	if s.guard.HasRecord() {
		if err := s.guard.Verify(pin); err != nil {
			s.audit.Log("auth_failure", false, map[string]interface{}{
				"session_id": s.id,
				"error":      err.Error(),
			})
			return err
		}
	} else {
		record, err := s.guard.Bootstrap(pin)
		if err != nil {
			s.audit.Log("pin_bootstrap", false, map[string]interface{}{
				"session_id": s.id,
				"error":      err.Error(),
			})
			return err
		}
		s.cfg.SetPinRecord(record)
		if err := s.cfg.Save(); err != nil {
			// An unpersisted record must not survive in memory, or a
			// retry would unlock against state the next run never sees.
			s.cfg.ClearPinRecord()
			s.guard = NewPinGuard(nil)
			return fmt.Errorf("failed to persist PIN record: %w", err)
		}
		s.audit.Log("pin_bootstrap", true, map[string]interface{}{
			"session_id": s.id,
		})
	}

	s.pinEnc = memguard.NewEnclave([]byte(pin))

	// Best effort; editing still works without locked memory.
	level, err := mem.Lock()
	if err != nil {
		level = mem.ProtectionNone
	}
	s.memProtection = level

	s.state = StateBrowsing
	s.audit.Log("session_unlock", true, map[string]interface{}{
		"session_id":        s.id,
		"memory_protection": int(level),
	})
	return nil
}

// withPin opens the PIN enclave for the duration of fn.
func (s *Session) withPin(fn func(pin string) error) error {
	if s.pinEnc == nil {
		return ErrSessionNotUnlocked
	}
	buf, err := s.pinEnc.Open()
	if err != nil {
		return &DerivationError{Err: fmt.Errorf("failed to open PIN enclave: %w", err)}
	}
	defer buf.Destroy()
	return fn(buf.String())
}

// Notes lists notes with their metadata, most recently updated first. Notes
// with a missing sidecar sort last, by identity.
func (s *Session) Notes() ([]NoteListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return nil, ErrSessionNotUnlocked
	}

	ids, err := s.store.List()
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	listings := make([]NoteListing, 0, len(ids))
	for _, id := range ids {
		meta, err := s.store.ReadMetadata(id)
		if err != nil {
			meta = nil
		}
		listings = append(listings, NoteListing{ID: id, Meta: meta})
	}

	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		switch {
		case a.Meta == nil && b.Meta == nil:
			return a.ID < b.ID
		case a.Meta == nil:
			return false
		case b.Meta == nil:
			return true
		default:
			return a.Meta.UpdatedAt.After(b.Meta.UpdatedAt)
		}
	})
	return listings, nil
}

// Create makes a new empty note encrypted under the session PIN and returns
// its identity.
func (s *Session) Create(title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return "", ErrSessionNotUnlocked
	}

	var envelope []byte
	err := s.withPin(func(pin string) error {
		var encErr error
		envelope, encErr = EncryptNote(nil, pin)
		return encErr
	})
	if err != nil {
		return "", err
	}

	id, err := s.store.Create()
	if err != nil {
		return "", &StorageError{Op: "create", Err: err}
	}

	if err := s.store.Write(id, envelope); err != nil {
		return "", &StorageError{Op: "write", Err: err}
	}

	if title == "" {
		title = "Untitled"
	}
	meta := store.NewNoteMetadata(title)
	if err := s.store.WriteMetadata(id, meta); err != nil {
		return "", &StorageError{Op: "write metadata", Err: err}
	}

	s.audit.Log("note_create", true, map[string]interface{}{
		"session_id": s.id,
		"note_id":    id,
	})
	return id, nil
}

// Read decrypts a note for display without entering the editing state.
func (s *Session) Read(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return nil, ErrSessionNotUnlocked
	}

	plaintext, err := s.readNote(id)
	s.audit.Log("note_read", err == nil, map[string]interface{}{
		"session_id": s.id,
		"note_id":    id,
	})
	return plaintext, err
}

func (s *Session) readNote(id string) ([]byte, error) {
	envelope, err := s.store.Read(id)
	if err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}

	var plaintext []byte
	err = s.withPin(func(pin string) error {
		var decErr error
		plaintext, decErr = DecryptNote(envelope, pin)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Edit runs the full edit round trip: decrypt to a private temp file, hand
// it to the editor, read it back, re-encrypt under a fresh salt and nonce,
// and write atomically. The temp file is zeroed and removed on every exit
// path. An editor failure aborts without touching the stored envelope.
func (s *Session) Edit(id string, editor Editor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return ErrSessionNotUnlocked
	}
	if editor == nil {
		return fmt.Errorf("editor is required")
	}

	plaintext, err := s.readNote(id)
	if err != nil {
		s.audit.Log("note_edit", false, map[string]interface{}{
			"session_id": s.id,
			"note_id":    id,
			"error":      err.Error(),
		})
		return err
	}

	s.state = StateEditing
	err = s.editRoundTrip(id, plaintext, editor)
	s.state = StateBrowsing

	s.audit.Log("note_edit", err == nil, map[string]interface{}{
		"session_id": s.id,
		"note_id":    id,
	})
	return err
}

func (s *Session) editRoundTrip(id string, plaintext []byte, editor Editor) error {
	tmpFile, err := os.CreateTemp("", "ryokan-note-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = scrubTempFile(tmpPath)
	}()

	if err := tmpFile.Chmod(misc.FilePermissions); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to restrict temp file: %w", err)
	}
	if _, err := tmpFile.Write(plaintext); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := editor.Edit(tmpPath); err != nil {
		return err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to read edited note: %w", err)
	}

	var envelope []byte
	err = s.withPin(func(pin string) error {
		var encErr error
		envelope, encErr = EncryptNote(edited, pin)
		return encErr
	})
	if err != nil {
		return err
	}

	if err := s.store.Write(id, envelope); err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	if meta, metaErr := s.store.ReadMetadata(id); metaErr == nil && meta != nil {
		meta.Touch()
		if err := s.store.WriteMetadata(id, meta); err != nil {
			return &StorageError{Op: "write metadata", Err: err}
		}
	}
	return nil
}

// Delete removes a note and its metadata.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return ErrSessionNotUnlocked
	}

	err := s.store.Delete(id)
	if err != nil {
		err = &StorageError{Op: "delete", Err: err}
	}
	s.audit.Log("note_delete", err == nil, map[string]interface{}{
		"session_id": s.id,
		"note_id":    id,
	})
	return err
}

// Rename updates a note's title, leaving its content untouched.
func (s *Session) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return ErrSessionNotUnlocked
	}

	meta, err := s.store.ReadMetadata(id)
	if err != nil {
		return &StorageError{Op: "read metadata", Err: err}
	}
	if meta == nil {
		meta = store.NewNoteMetadata(title)
	} else {
		meta.Title = title
		meta.Touch()
	}
	if err := s.store.WriteMetadata(id, meta); err != nil {
		return &StorageError{Op: "write metadata", Err: err}
	}
	return nil
}

// EncryptPlainFiles sweeps the notes directory for plaintext files, imports
// each as an encrypted note titled after the original filename, and removes
// the plaintext original. Returns the identities of the imported notes.
func (s *Session) EncryptPlainFiles() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateBrowsing {
		return nil, ErrSessionNotUnlocked
	}

	fsStore, ok := s.store.(*store.FileSystemStore)
	if !ok {
		return nil, fmt.Errorf("plaintext sweep requires a filesystem store")
	}

	candidates, err := fsStore.PlainFiles()
	if err != nil {
		return nil, &StorageError{Op: "scan", Err: err}
	}

	var imported []string
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			return imported, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var envelope []byte
		err = s.withPin(func(pin string) error {
			var encErr error
			envelope, encErr = EncryptNote(data, pin)
			return encErr
		})
		if err != nil {
			return imported, err
		}

		id, err := s.store.Create()
		if err != nil {
			return imported, &StorageError{Op: "create", Err: err}
		}
		if err := s.store.Write(id, envelope); err != nil {
			return imported, &StorageError{Op: "write", Err: err}
		}
		if err := s.store.WriteMetadata(id, store.NewNoteMetadata(filepath.Base(path))); err != nil {
			return imported, &StorageError{Op: "write metadata", Err: err}
		}

		if err := os.Remove(path); err != nil {
			return imported, fmt.Errorf("failed to remove plaintext %s: %w", path, err)
		}
		imported = append(imported, id)

		s.audit.Log("note_import_plain", true, map[string]interface{}{
			"session_id": s.id,
			"note_id":    id,
		})
	}
	return imported, nil
}

// Close wipes the PIN enclave, releases memory locks, and terminates the
// session. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminated {
		return nil
	}

	s.pinEnc = nil
	memguard.Purge()
	_ = mem.Unlock()

	s.audit.Log("session_close", true, map[string]interface{}{
		"session_id": s.id,
	})

	s.state = StateTerminated
	return nil
}
