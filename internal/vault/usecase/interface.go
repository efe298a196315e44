// Package usecase implements the vault business logic: login, fetch, logout
// and status, orchestrating key derivation, authenticated encryption, the
// session cache and the record store.
package usecase

import (
	"context"

	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	vaultService "github.com/flavortown/credvault/internal/vault/service"
)

// RecordRepository defines the persistence contract for encrypted credential
// records.
type RecordRepository interface {
	// Get retrieves the record for a (user, service) pair.
	Get(ctx context.Context, userID string, service vaultDomain.Service) (*vaultDomain.SecretRecord, error)

	// Upsert inserts or atomically replaces the record for its (user, service) pair.
	Upsert(ctx context.Context, record *vaultDomain.SecretRecord) error

	// Delete removes the record for a (user, service) pair, reporting whether one existed.
	Delete(ctx context.Context, userID string, service vaultDomain.Service) (bool, error)

	// ListServices returns the services a user has stored credentials for.
	ListServices(ctx context.Context, userID string) ([]vaultDomain.Service, error)
}

// SessionCache defines the session store holding derived keys between
// operations.
type SessionCache interface {
	// Get returns a copy of the user's live session, if any.
	Get(userID string) (vaultService.Session, bool)

	// Put stores the user's session, resetting its time-to-live.
	Put(userID string, session vaultService.Session)

	// Invalidate removes the user's session and zeroes its key material.
	Invalidate(userID string)
}

// FetchResult carries a decrypted secret and whether the cached key served
// the request.
type FetchResult struct {
	Secret   string
	CacheHit bool
}

// VaultUseCase defines the four operations exposed to the command layer.
type VaultUseCase interface {
	// Login verifies the password, encrypts the secret and stores the
	// envelope for the (user, service) pair, then caches the derived key.
	Login(ctx context.Context, userID, service, password, secret string) error

	// Fetch decrypts and returns the stored secret, using the cached key
	// when possible and the password otherwise.
	Fetch(ctx context.Context, userID, service, password string) (*FetchResult, error)

	// Logout deletes the (user, service) record, reporting whether one
	// existed. The cached key is invalidated once no records remain.
	Logout(ctx context.Context, userID, service string) (bool, error)

	// Status returns the services the user has stored credentials for.
	// No password is required and nothing is decrypted.
	Status(ctx context.Context, userID string) ([]vaultDomain.Service, error)
}
