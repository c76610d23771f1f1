package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/walker84837/ryokan/internal/misc"
)

// Derivation contexts. Key material and PIN-verification hashes come from the
// same primitive but must never share an output space.
const (
	keyContext  = "ryokan/note-key/v1"
	hashContext = "ryokan/pin-hash/v1"
)

// MinEnvelopeSize is the smallest valid envelope: salt + nonce + tag of an
// empty plaintext.
const MinEnvelopeSize = misc.SaltSize + misc.NonceSize + misc.TagSize

// GenerateSalt returns a fresh random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, misc.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a PIN and salt into a 32-byte encryption key using
// Argon2id. The result is moved into a memguard locked buffer and the
// unprotected copy is wiped before returning.
func DeriveKey(pin []byte, salt []byte) (*memguard.LockedBuffer, error) {
	if len(salt) != misc.SaltSize {
		return nil, fmt.Errorf("invalid salt length: got %d, want %d", len(salt), misc.SaltSize)
	}

	derivedKey := argon2.IDKey(
		withContext(keyContext, pin),
		salt,
		misc.ArgonTime,
		misc.ArgonMemory,
		misc.ArgonThreads,
		misc.ArgonKeyLen,
	)

	// Protect the derived key immediately
	protectedKey := memguard.NewBufferFromBytes(derivedKey)

	// Wipe the unprotected derived key
	memguard.WipeBytes(derivedKey)

	return protectedKey, nil
}

// DeriveHash produces the salted verification hash for a PIN. It uses the
// same Argon2id primitive as DeriveKey but under a different derivation
// context, so hash bytes can never double as key material.
func DeriveHash(pin []byte, salt []byte) ([]byte, error) {
	if len(salt) != misc.SaltSize {
		return nil, fmt.Errorf("invalid salt length: got %d, want %d", len(salt), misc.SaltSize)
	}

	hash := argon2.IDKey(
		withContext(hashContext, pin),
		salt,
		misc.ArgonTime,
		misc.ArgonMemory,
		misc.ArgonThreads,
		misc.ArgonKeyLen,
	)
	return hash, nil
}

// withContext prefixes the secret with a derivation context so the two
// Argon2id uses are independent even for identical (pin, salt) pairs.
func withContext(context string, secret []byte) []byte {
	input := make([]byte, 0, len(context)+1+len(secret))
	input = append(input, context...)
	input = append(input, 0x00)
	input = append(input, secret...)
	return input
}

// SealEnvelope encrypts a plaintext under an already-derived key with a fresh
// random nonce and assembles the persisted envelope: salt ‖ nonce ‖
// ciphertext+tag. The salt is the one the key was derived from; it is stored
// so the same PIN can regenerate the key later.
func SealEnvelope(plaintext, salt []byte, key *memguard.LockedBuffer) ([]byte, error) {
	if len(salt) != misc.SaltSize {
		return nil, fmt.Errorf("invalid salt length: got %d, want %d", len(salt), misc.SaltSize)
	}

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Generate a random nonce
	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	// Combine: salt + nonce + ciphertext
	envelope := make([]byte, len(salt)+len(nonce)+len(ciphertext))
	copy(envelope[:len(salt)], salt)
	copy(envelope[len(salt):len(salt)+len(nonce)], nonce)
	copy(envelope[len(salt)+len(nonce):], ciphertext)

	return envelope, nil
}

// OpenEnvelope authenticates and decrypts an envelope with an
// already-derived key. The caller parses the salt and derives the key; this
// helper only consumes the nonce and ciphertext sections.
func OpenEnvelope(envelope []byte, key *memguard.LockedBuffer) ([]byte, error) {
	if len(envelope) < MinEnvelopeSize {
		return nil, errors.New("envelope too short")
	}

	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := envelope[misc.SaltSize : misc.SaltSize+misc.NonceSize]
	ciphertext := envelope[misc.SaltSize+misc.NonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	return plaintext, nil
}

// EnvelopeSalt returns the key-derivation salt section of an envelope.
func EnvelopeSalt(envelope []byte) ([]byte, error) {
	if len(envelope) < MinEnvelopeSize {
		return nil, errors.New("envelope too short")
	}
	return envelope[:misc.SaltSize], nil
}

// EncryptWithPassphrase encrypts data using a passphrase with PBKDF2 +
// ChaCha20-Poly1305. Used for backup containers, not for notes.
func EncryptWithPassphrase(data []byte, passphrase string) ([]byte, error) {
	// Generate random salt for PBKDF2
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, data, nil)

	// Combine: salt + nonce + ciphertext
	result := make([]byte, len(salt)+len(nonce)+len(ciphertext))
	copy(result[:len(salt)], salt)
	copy(result[len(salt):len(salt)+len(nonce)], nonce)
	copy(result[len(salt)+len(nonce):], ciphertext)

	return result, nil
}

// DecryptWithPassphrase decrypts data produced by EncryptWithPassphrase.
func DecryptWithPassphrase(encryptedData []byte, passphrase string) ([]byte, error) {
	if len(encryptedData) < 32+misc.NonceSize+misc.TagSize {
		return nil, errors.New("encrypted data too short")
	}

	salt := encryptedData[:32]
	nonce := encryptedData[32 : 32+misc.NonceSize]
	ciphertext := encryptedData[32+misc.NonceSize:]

	key := pbkdf2.Key([]byte(passphrase), salt, 100000, 32, sha256.New)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// CalculateChecksum calculates SHA-256 checksum of data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
