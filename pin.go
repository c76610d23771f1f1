package ryokan

import (
	"crypto/subtle"
	"fmt"

	"github.com/walker84837/ryokan/internal/crypto"
	"github.com/walker84837/ryokan/internal/misc"
)

// PinRecord holds the verification material for the PIN: the salt used for
// the hash derivation and the resulting hash. Neither value is sufficient to
// recover the PIN or any note key.
type PinRecord struct {
	Salt []byte
	Hash []byte
}

// ValidatePin checks that pin is exactly six ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != misc.PinLength {
		return ErrInvalidPinFormat
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPinFormat
		}
	}
	return nil
}

// PinGuard owns the PIN verification record and mediates bootstrap and
// verification. It never retains the PIN itself.
type PinGuard struct {
	record *PinRecord
}

// NewPinGuard creates a guard around an existing record, or around no record
// when none has been bootstrapped yet.
func NewPinGuard(record *PinRecord) *PinGuard {
	return &PinGuard{record: record}
}

// HasRecord reports whether a PIN has been set.
func (g *PinGuard) HasRecord() bool {
	return g.record != nil
}

// Bootstrap establishes the PIN record from a first-time PIN entry. It fails
// if a record already exists or the PIN is malformed.
func (g *PinGuard) Bootstrap(pin string) (*PinRecord, error) {
	if g.record != nil {
		return nil, ErrPinAlreadySet
	}
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, &DerivationError{Err: fmt.Errorf("failed to generate salt: %w", err)}
	}

	hash, err := crypto.DeriveHash([]byte(pin), salt)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}

	g.record = &PinRecord{Salt: salt, Hash: hash}
	return g.record, nil
}

// Verify checks a PIN entry against the stored record in constant time.
func (g *PinGuard) Verify(pin string) error {
	if g.record == nil {
		return fmt.Errorf("no PIN record to verify against")
	}
	if err := ValidatePin(pin); err != nil {
		return err
	}

	hash, err := crypto.DeriveHash([]byte(pin), g.record.Salt)
	if err != nil {
		return &DerivationError{Err: err}
	}

	if subtle.ConstantTimeCompare(hash, g.record.Hash) != 1 {
		return ErrPinMismatch
	}
	return nil
}

// Record returns the current record, or nil when no PIN has been set.
func (g *PinGuard) Record() *PinRecord {
	return g.record
}
