package domain

import (
	"github.com/flavortown/credvault/internal/errors"
)

// Crypto-specific error definitions.
var (
	// ErrInvalidKeySize indicates a key of the wrong length was supplied to a cipher.
	ErrInvalidKeySize = errors.New("key must be exactly 32 bytes")

	// ErrUnsupportedAlgorithm indicates an unknown AEAD algorithm identifier.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrDecryptionFailed indicates the authentication tag did not verify.
	// It deliberately does not distinguish a wrong key from tampered data.
	ErrDecryptionFailed = errors.New("decryption failed")
)
