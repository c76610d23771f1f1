package crypto

import (
	"bytes"
	"testing"

	"github.com/walker84837/ryokan/internal/misc"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	pin := []byte("123456")
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}

	key1, err := DeriveKey(pin, salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key1.Destroy()

	key2, err := DeriveKey(pin, salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key2.Destroy()

	if !bytes.Equal(key1.Bytes(), key2.Bytes()) {
		t.Error("Same (pin, salt) pair produced different keys")
	}
	if len(key1.Bytes()) != int(misc.ArgonKeyLen) {
		t.Errorf("Derived key has length %d, want %d", len(key1.Bytes()), misc.ArgonKeyLen)
	}
}

func TestDeriveKeySaltSensitivity(t *testing.T) {
	pin := []byte("123456")

	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Fatal("Two generated salts are identical")
	}

	key1, err := DeriveKey(pin, salt1)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key1.Destroy()

	key2, err := DeriveKey(pin, salt2)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key2.Destroy()

	if bytes.Equal(key1.Bytes(), key2.Bytes()) {
		t.Error("Different salts produced the same key")
	}
}

func TestDeriveHashIndependentOfKey(t *testing.T) {
	pin := []byte("123456")
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}

	key, err := DeriveKey(pin, salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key.Destroy()

	hash, err := DeriveHash(pin, salt)
	if err != nil {
		t.Fatalf("Failed to derive hash: %v", err)
	}

	if bytes.Equal(key.Bytes(), hash) {
		t.Error("Verification hash equals encryption key for same (pin, salt)")
	}
}

func TestDeriveRejectsBadSalt(t *testing.T) {
	if _, err := DeriveKey([]byte("123456"), []byte("short")); err == nil {
		t.Error("DeriveKey accepted an undersized salt")
	}
	if _, err := DeriveHash([]byte("123456"), []byte("short")); err == nil {
		t.Error("DeriveHash accepted an undersized salt")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	pin := []byte("123456")

	testCases := [][]byte{
		nil,                           // empty note
		[]byte("hello"),               // simple string
		[]byte("Unicode: こんにちは"),      // non-ASCII
		bytes.Repeat([]byte{7}, 4096), // larger payload
	}

	for i, tc := range testCases {
		salt, err := GenerateSalt()
		if err != nil {
			t.Fatalf("Case %d: failed to generate salt: %v", i, err)
		}
		key, err := DeriveKey(pin, salt)
		if err != nil {
			t.Fatalf("Case %d: failed to derive key: %v", i, err)
		}

		envelope, err := SealEnvelope(tc, salt, key)
		if err != nil {
			t.Fatalf("Case %d: failed to seal: %v", i, err)
		}
		if len(envelope) < MinEnvelopeSize {
			t.Fatalf("Case %d: envelope length %d below minimum %d", i, len(envelope), MinEnvelopeSize)
		}

		parsedSalt, err := EnvelopeSalt(envelope)
		if err != nil {
			t.Fatalf("Case %d: failed to parse salt: %v", i, err)
		}
		if !bytes.Equal(parsedSalt, salt) {
			t.Fatalf("Case %d: envelope salt does not match", i)
		}

		key2, err := DeriveKey(pin, parsedSalt)
		if err != nil {
			t.Fatalf("Case %d: failed to re-derive key: %v", i, err)
		}
		plaintext, err := OpenEnvelope(envelope, key2)
		if err != nil {
			t.Fatalf("Case %d: failed to open: %v", i, err)
		}
		if !bytes.Equal(plaintext, tc) {
			t.Errorf("Case %d: round-trip mismatch", i)
		}

		key.Destroy()
		key2.Destroy()
	}
}

func TestOpenEnvelopeRejectsShortInput(t *testing.T) {
	pin := []byte("123456")
	salt, _ := GenerateSalt()
	key, err := DeriveKey(pin, salt)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	defer key.Destroy()

	if _, err := OpenEnvelope(make([]byte, MinEnvelopeSize-1), key); err == nil {
		t.Error("OpenEnvelope accepted an undersized envelope")
	}
	if _, err := EnvelopeSalt(make([]byte, MinEnvelopeSize-1)); err == nil {
		t.Error("EnvelopeSalt accepted an undersized envelope")
	}
}

func TestPassphraseEncryptionRoundTrip(t *testing.T) {
	data := []byte("backup payload")

	encrypted, err := EncryptWithPassphrase(data, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	decrypted, err := DecryptWithPassphrase(encrypted, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Failed to decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, data) {
		t.Error("Passphrase round-trip mismatch")
	}

	if _, err := DecryptWithPassphrase(encrypted, "wrong passphrase"); err == nil {
		t.Error("Decryption succeeded with the wrong passphrase")
	}
}
