// Package service provides the cryptographic services behind the credential
// vault: AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and password-based key
// derivation (argon2id).
package service

import (
	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives fixed-length symmetric keys from passwords.
type KeyDeriver interface {
	// Derive produces key material from a password and salt. Equal inputs
	// always produce equal output.
	Derive(password string, salt []byte) []byte
}
