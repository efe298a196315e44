// Package domain defines core cryptographic types shared by the cipher and
// key derivation services.
package domain

// Algorithm identifies an AEAD cipher used to encrypt stored secrets.
type Algorithm string

// Supported AEAD algorithms.
const (
	AESGCM           Algorithm = "aes-gcm"
	ChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

// KeySize is the symmetric key size in bytes required by both supported
// algorithms (AES-256 and ChaCha20-Poly1305).
const KeySize = 32

// SaltSize is the size in bytes of the random salt used for key derivation.
const SaltSize = 16

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20Poly1305:
		return ChaCha20Poly1305, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
