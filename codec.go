package ryokan

import (
	"github.com/walker84837/ryokan/internal/crypto"
)

// EncryptNote seals plaintext into a fresh envelope under a key derived from
// the PIN. A new random salt is generated for every call, so re-encrypting
// the same note always produces a new key and a new envelope.
func EncryptNote(plaintext []byte, pin string) ([]byte, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, &DerivationError{Err: err}
	}

	key, err := crypto.DeriveKey([]byte(pin), salt)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	defer key.Destroy()

	return crypto.SealEnvelope(plaintext, salt, key)
}

// DecryptNote opens an envelope using the key re-derived from the PIN and
// the salt carried in the envelope header. A wrong PIN and a tampered
// envelope are indistinguishable: both fail authentication.
func DecryptNote(envelope []byte, pin string) ([]byte, error) {
	if err := ValidatePin(pin); err != nil {
		return nil, err
	}
	if len(envelope) < crypto.MinEnvelopeSize {
		return nil, ErrMalformedEnvelope
	}

	salt, err := crypto.EnvelopeSalt(envelope)
	if err != nil {
		return nil, ErrMalformedEnvelope
	}

	key, err := crypto.DeriveKey([]byte(pin), salt)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	defer key.Destroy()

	plaintext, err := crypto.OpenEnvelope(envelope, key)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
