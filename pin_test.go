package ryokan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePin(t *testing.T) {
	valid := []string{"000000", "123456", "999999"}
	for _, pin := range valid {
		assert.NoError(t, ValidatePin(pin), "pin %q should be valid", pin)
	}

	invalid := []string{
		"",
		"12345",
		"1234567",
		"12345a",
		"abcdef",
		"12 456",
		"12345\n",
		"１２３４５６", // full-width digits
	}
	for _, pin := range invalid {
		err := ValidatePin(pin)
		assert.ErrorIs(t, err, ErrInvalidPinFormat, "pin %q should be rejected", pin)
	}
}

func TestPinGuardBootstrapAndVerify(t *testing.T) {
	guard := NewPinGuard(nil)
	require.False(t, guard.HasRecord())

	record, err := guard.Bootstrap("123456")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.True(t, guard.HasRecord())
	assert.Len(t, record.Salt, 16)
	assert.Len(t, record.Hash, 32)

	require.NoError(t, guard.Verify("123456"))

	err = guard.Verify("654321")
	assert.ErrorIs(t, err, ErrPinMismatch)
}

func TestPinGuardBootstrapTwice(t *testing.T) {
	guard := NewPinGuard(nil)
	_, err := guard.Bootstrap("123456")
	require.NoError(t, err)

	_, err = guard.Bootstrap("654321")
	assert.ErrorIs(t, err, ErrPinAlreadySet)
}

func TestPinGuardBootstrapRejectsBadPin(t *testing.T) {
	guard := NewPinGuard(nil)
	_, err := guard.Bootstrap("12345")
	assert.ErrorIs(t, err, ErrInvalidPinFormat)
	assert.False(t, guard.HasRecord())
}

func TestPinGuardVerifySurvivesReload(t *testing.T) {
	guard := NewPinGuard(nil)
	record, err := guard.Bootstrap("314159")
	require.NoError(t, err)

	// Simulate a restart: a fresh guard built from the persisted record.
	reloaded := NewPinGuard(&PinRecord{Salt: record.Salt, Hash: record.Hash})
	require.NoError(t, reloaded.Verify("314159"))

	var mismatch error = reloaded.Verify("314158")
	assert.True(t, errors.Is(mismatch, ErrPinMismatch))
}
