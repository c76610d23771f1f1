package misc

const (
	// ArgonTime Key derivation parameters
	ArgonTime    uint32 = 4
	ArgonMemory  uint32 = 128 * 1024
	ArgonThreads uint8  = 4
	ArgonKeyLen  uint32 = 32

	// SaltSize is the number of random bytes mixed into every key derivation.
	SaltSize = 16

	// NonceSize is the ChaCha20-Poly1305 nonce length.
	NonceSize = 12

	// TagSize is the Poly1305 authentication tag length.
	TagSize = 16

	// PinLength is the exact number of decimal digits a PIN must have.
	PinLength = 6

	FilePermissions = 0600 // user read + write
	DirPermissions  = 0700 // user read + write + execute
)
