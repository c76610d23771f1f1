package ryokan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintexts := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte("grocery list:\n- rice\n- miso"),
		[]byte("日本語のノート 🙂"),
		bytes.Repeat([]byte("x"), 4096),
	}

	for _, plaintext := range plaintexts {
		envelope, err := EncryptNote(plaintext, "123456")
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(envelope), 44)

		decrypted, err := DecryptNote(envelope, "123456")
		require.NoError(t, err)
		assert.Equal(t, len(plaintext), len(decrypted))
		assert.True(t, bytes.Equal(plaintext, decrypted))
	}
}

func TestDecryptWrongPin(t *testing.T) {
	envelope, err := EncryptNote([]byte("secret"), "123456")
	require.NoError(t, err)

	_, err = DecryptNote(envelope, "654321")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestDecryptTamperedEnvelope(t *testing.T) {
	envelope, err := EncryptNote([]byte("secret"), "123456")
	require.NoError(t, err)

	// Flip one bit in each section: salt, nonce, ciphertext, tag.
	for _, offset := range []int{0, 16, 28, len(envelope) - 1} {
		tampered := make([]byte, len(envelope))
		copy(tampered, envelope)
		tampered[offset] ^= 0x01

		_, err := DecryptNote(tampered, "123456")
		assert.ErrorIs(t, err, ErrAuthenticationFailed, "bit flip at %d must fail", offset)
	}
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	for _, size := range []int{0, 1, 16, 28, 43} {
		_, err := DecryptNote(make([]byte, size), "123456")
		assert.ErrorIs(t, err, ErrMalformedEnvelope, "size %d", size)
	}
}

func TestEncryptBadPinFormat(t *testing.T) {
	_, err := EncryptNote([]byte("x"), "12345")
	assert.ErrorIs(t, err, ErrInvalidPinFormat)

	_, err = DecryptNote(make([]byte, 44), "abcdef")
	assert.ErrorIs(t, err, ErrInvalidPinFormat)
}

func TestEncryptNeverReusesSaltOrNonce(t *testing.T) {
	plaintext := []byte("same content")

	first, err := EncryptNote(plaintext, "123456")
	require.NoError(t, err)
	second, err := EncryptNote(plaintext, "123456")
	require.NoError(t, err)

	assert.False(t, bytes.Equal(first[:16], second[:16]), "salt reused")
	assert.False(t, bytes.Equal(first[16:28], second[16:28]), "nonce reused")
	assert.False(t, bytes.Equal(first[28:], second[28:]), "ciphertext identical")
}
