package ryokan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPinFormat is returned when a PIN is not exactly six
	// decimal digits. The check runs before any derivation work.
	ErrInvalidPinFormat = errors.New("PIN must be exactly 6 digits")

	// ErrPinMismatch is returned when an entered PIN does not match the
	// stored record.
	ErrPinMismatch = errors.New("PIN does not match")

	// ErrPinAlreadySet is returned when Bootstrap is called but a PIN
	// record already exists.
	ErrPinAlreadySet = errors.New("a PIN has already been set")

	// ErrAuthenticationFailed covers both a wrong PIN and a tampered or
	// corrupted envelope. The two cases are deliberately not
	// distinguishable from the error alone.
	ErrAuthenticationFailed = errors.New("wrong PIN or corrupted note")

	// ErrMalformedEnvelope is returned for envelopes shorter than the
	// minimum salt+nonce+tag length, before any decryption is attempted.
	ErrMalformedEnvelope = errors.New("note envelope is malformed")

	// ErrSessionNotUnlocked is returned when a note operation is invoked
	// before a successful unlock or after the session was closed.
	ErrSessionNotUnlocked = errors.New("session is not unlocked")
)

// DerivationError signals that the key derivation primitive rejected its
// parameters. With the fixed parameters in this repo it should not occur;
// when it does, the cryptographic configuration is broken and the operation
// in progress cannot proceed.
type DerivationError struct {
	Err error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("key derivation failed: %v", e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// StorageError wraps a fault from the note store. Sessions abort the
// in-progress transition and surface it rather than continuing with partial
// state.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// EditorInvocationError signals that the external editor failed to start or
// exited abnormally. The controller surfaces it instead of re-encrypting
// possibly stale content.
type EditorInvocationError struct {
	Command string
	Err     error
}

func (e *EditorInvocationError) Error() string {
	return fmt.Sprintf("editor %q failed: %v", e.Command, e.Err)
}

func (e *EditorInvocationError) Unwrap() error { return e.Err }
