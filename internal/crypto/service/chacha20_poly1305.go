package service

import (
	"crypto/cipher"
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	apperrors "github.com/flavortown/credvault/internal/errors"
)

// ChaCha20Poly1305Cipher implements the AEAD interface using ChaCha20-Poly1305.
// It is the preferred cipher on platforms without hardware AES acceleration.
type ChaCha20Poly1305Cipher struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 creates a new ChaCha20-Poly1305 cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create ChaCha20-Poly1305 cipher")
	}

	return &ChaCha20Poly1305Cipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using ChaCha20-Poly1305 with optional additional
// authenticated data. A unique 12-byte nonce is generated per call.
func (c *ChaCha20Poly1305Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to generate nonce")
	}

	ciphertext = c.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using ChaCha20-Poly1305 with the provided nonce
// and AAD, verifying the Poly1305 tag before returning plaintext.
func (c *ChaCha20Poly1305Cipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
