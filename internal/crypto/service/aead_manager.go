package service

import (
	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
)

// aeadManager implements AEADManager by dispatching on the algorithm identifier.
type aeadManager struct{}

// NewAEADManager creates a new AEADManager instance.
func NewAEADManager() AEADManager {
	return &aeadManager{}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
func (m *aeadManager) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	switch alg {
	case cryptoDomain.AESGCM:
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20Poly1305:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
