package ryokan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/walker84837/ryokan/internal/crypto"
	"github.com/walker84837/ryokan/internal/misc"
	"github.com/walker84837/ryokan/store"
)

const backupVersion = "1.0"

// BackupContainer is the on-disk backup format. The payload carries the
// notes with their envelopes still PIN-encrypted; the passphrase layer
// protects the backup in transit, it is not a key-recovery mechanism.
type BackupContainer struct {
	BackupID         string    `json:"backup_id"`
	Timestamp        time.Time `json:"timestamp"`
	Version          string    `json:"version"`
	Checksum         string    `json:"checksum"`
	EncryptionMethod string    `json:"encryption_method"`
	EncryptedData    []byte    `json:"encrypted_data"`
}

type backupPayload struct {
	Notes []backupNote `json:"notes"`
}

type backupNote struct {
	ID       string              `json:"id"`
	Envelope []byte              `json:"envelope"`
	Metadata *store.NoteMetadata `json:"metadata,omitempty"`
}

// ExportBackup writes a passphrase-encrypted backup of every note in the
// store to path.
func ExportBackup(st store.Store, path, passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("backup passphrase is required")
	}

	ids, err := st.List()
	if err != nil {
		return &StorageError{Op: "list", Err: err}
	}

	payload := backupPayload{Notes: make([]backupNote, 0, len(ids))}
	for _, id := range ids {
		envelope, err := st.Read(id)
		if err != nil {
			return &StorageError{Op: "read", Err: err}
		}
		meta, err := st.ReadMetadata(id)
		if err != nil {
			meta = nil
		}
		payload.Notes = append(payload.Notes, backupNote{
			ID:       id,
			Envelope: envelope,
			Metadata: meta,
		})
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal backup payload: %w", err)
	}

	encrypted, err := crypto.EncryptWithPassphrase(plaintext, passphrase)
	if err != nil {
		return fmt.Errorf("failed to encrypt backup: %w", err)
	}

	container := BackupContainer{
		BackupID:         uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		Version:          backupVersion,
		Checksum:         crypto.CalculateChecksum(encrypted),
		EncryptionMethod: "pbkdf2-sha256-chacha20poly1305",
		EncryptedData:    encrypted,
	}

	data, err := json.MarshalIndent(container, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup container: %w", err)
	}

	return atomicWriteFile(path, data, misc.FilePermissions)
}

// ImportBackup restores notes from a backup file. Notes whose identity is
// already present in the store are left untouched; only missing notes are
// restored. Returns the identities that were restored.
func ImportBackup(st store.Store, path, passphrase string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	var container BackupContainer
	if err := json.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("failed to parse backup container: %w", err)
	}

	if crypto.CalculateChecksum(container.EncryptedData) != container.Checksum {
		return nil, fmt.Errorf("backup checksum mismatch, file is corrupted")
	}

	plaintext, err := crypto.DecryptWithPassphrase(container.EncryptedData, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt backup (wrong passphrase?): %w", err)
	}

	var payload backupPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse backup payload: %w", err)
	}

	var restored []string
	for _, note := range payload.Notes {
		_, err := st.Read(note.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNoteNotFound) {
			return restored, &StorageError{Op: "read", Err: err}
		}

		if err := st.Write(note.ID, note.Envelope); err != nil {
			return restored, &StorageError{Op: "write", Err: err}
		}
		if note.Metadata != nil {
			if err := st.WriteMetadata(note.ID, note.Metadata); err != nil {
				return restored, &StorageError{Op: "write metadata", Err: err}
			}
		}
		restored = append(restored, note.ID)
	}

	return restored, nil
}
