package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	apperrors "github.com/flavortown/credvault/internal/errors"
)

// AESGCMCipher implements the AEAD interface using AES-256-GCM.
//
// A fresh 12-byte nonce is generated from crypto/rand on every Encrypt call
// and is never reused under the same key. The 16-byte authentication tag is
// appended to the ciphertext, so a failed tag check surfaces as a single
// decryption error with no partial plaintext.
//
// The cipher instance is stateless and safe for concurrent use from multiple
// goroutines.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create AES cipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create GCM")
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with optional additional
// authenticated data. The AAD is authenticated but not encrypted; it binds
// the ciphertext to its context (user and service) so an envelope cannot be
// replayed under a different record.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to generate nonce")
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the provided nonce and AAD.
// The tag is verified before any plaintext is returned; on failure the error
// carries no hint of whether the key or the data was at fault.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
