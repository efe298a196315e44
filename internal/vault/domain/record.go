// Package domain defines the core domain models for the credential vault:
// encrypted per-user, per-service secret records and the service identifiers
// the vault recognizes.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service identifies an upstream API a stored credential belongs to.
type Service string

// Services the chat bot integrates with.
const (
	ServiceFlavortown Service = "flavortown"
	ServiceHackatime  Service = "hackatime"
)

// ServiceSet is the configured set of recognized service identifiers.
type ServiceSet map[Service]struct{}

// NewServiceSet parses a comma-separated list of service identifiers.
func NewServiceSet(raw string) ServiceSet {
	set := make(ServiceSet)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			set[Service(trimmed)] = struct{}{}
		}
	}
	return set
}

// Parse validates a service identifier against the set.
func (s ServiceSet) Parse(raw string) (Service, error) {
	service := Service(strings.TrimSpace(raw))
	if _, ok := s[service]; !ok {
		return "", ErrUnknownService
	}
	return service, nil
}

// SecretRecord is one encrypted envelope for a given user and service.
// The envelope (salt, nonce, ciphertext+tag) is self-contained: given the
// right password it is sufficient on its own to attempt decryption. The
// plaintext secret is never part of the record and is never persisted.
type SecretRecord struct {
	// ID is the unique identifier of this record row.
	ID uuid.UUID
	// UserID is the opaque stable identifier of the owning user.
	UserID string
	// Service is the upstream API this credential belongs to.
	Service Service
	// Salt is the random salt the encryption key was derived with. Not secret.
	Salt []byte
	// Nonce is the random value used during AEAD encryption, unique per
	// encryption operation.
	Nonce []byte
	// Ciphertext contains the encrypted secret plus the authentication tag.
	Ciphertext []byte
	// UpdatedAt is the UTC timestamp of the last write.
	UpdatedAt time.Time
}

// AAD returns the additional authenticated data binding the envelope to its
// record key, so a ciphertext copied between records fails authentication.
func (r *SecretRecord) AAD() []byte {
	return []byte(r.UserID + "|" + string(r.Service))
}
