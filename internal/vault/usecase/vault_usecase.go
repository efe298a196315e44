package usecase

import (
	"bytes"
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	cryptoService "github.com/flavortown/credvault/internal/crypto/service"
	"github.com/flavortown/credvault/internal/database"
	apperrors "github.com/flavortown/credvault/internal/errors"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	vaultService "github.com/flavortown/credvault/internal/vault/service"
)

// vaultUseCase implements VaultUseCase.
type vaultUseCase struct {
	repo      RecordRepository
	cache     SessionCache
	deriver   cryptoService.KeyDeriver
	aead      cryptoService.AEADManager
	txManager database.TxManager
	services  vaultDomain.ServiceSet
	algorithm cryptoDomain.Algorithm
	logger    *slog.Logger

	// userLocks serializes operations per user so concurrent logins and
	// fetches for the same user cannot interleave derive/write/cache steps.
	// Operations for different users proceed in parallel. Entries are
	// reference counted and removed when the last holder releases them, so
	// the map does not grow with every user_id ever seen.
	locksMu   sync.Mutex
	userLocks map[string]*userLock
}

// userLock is one per-user mutex plus the number of operations holding or
// waiting on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewVaultUseCase creates a new vault use case instance.
func NewVaultUseCase(
	repo RecordRepository,
	cache SessionCache,
	deriver cryptoService.KeyDeriver,
	aead cryptoService.AEADManager,
	txManager database.TxManager,
	services vaultDomain.ServiceSet,
	algorithm cryptoDomain.Algorithm,
	logger *slog.Logger,
) VaultUseCase {
	return &vaultUseCase{
		repo:      repo,
		cache:     cache,
		deriver:   deriver,
		aead:      aead,
		txManager: txManager,
		services:  services,
		algorithm: algorithm,
		logger:    logger,
		userLocks: make(map[string]*userLock),
	}
}

// Login verifies the password, encrypts the secret into a fresh envelope for
// the (user, service) pair and caches the derived key. Re-login always
// re-derives and re-encrypts, even with an unchanged password.
func (u *vaultUseCase) Login(ctx context.Context, userID, rawService, password, secret string) error {
	service, err := u.services.Parse(rawService)
	if err != nil {
		return err
	}

	unlock := u.lockUser(userID)
	defer unlock()

	salt, key, err := u.authenticate(ctx, userID, password)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(key)

	record := &vaultDomain.SecretRecord{
		ID:        uuid.New(),
		UserID:    userID,
		Service:   service,
		Salt:      salt,
		UpdatedAt: time.Now().UTC(),
	}

	cipher, err := u.aead.CreateCipher(key, u.algorithm)
	if err != nil {
		return apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to create cipher")
	}
	ciphertext, nonce, err := cipher.Encrypt([]byte(secret), record.AAD())
	if err != nil {
		return err
	}
	record.Nonce = nonce
	record.Ciphertext = ciphertext

	if err := u.repo.Upsert(ctx, record); err != nil {
		return err
	}

	u.cache.Put(userID, vaultService.Session{Key: key, Salt: salt})

	u.logger.InfoContext(ctx, "vault login",
		slog.String("user_id", userID),
		slog.String("service", string(service)),
	)
	return nil
}

// Fetch decrypts the stored secret. The cached key is used when its salt
// matches the record's; otherwise the password is required. Each successful
// use refreshes the session window.
func (u *vaultUseCase) Fetch(ctx context.Context, userID, rawService, password string) (*FetchResult, error) {
	service, err := u.services.Parse(rawService)
	if err != nil {
		return nil, err
	}

	unlock := u.lockUser(userID)
	defer unlock()

	record, err := u.repo.Get(ctx, userID, service)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, vaultDomain.ErrNotLoggedIn
		}
		return nil, err
	}

	var key []byte
	cacheHit := false
	if session, ok := u.cache.Get(userID); ok {
		if bytes.Equal(session.Salt, record.Salt) {
			key = session.Key
			cacheHit = true
		} else {
			cryptoDomain.Zero(session.Key)
		}
	}
	if key == nil {
		if password == "" {
			return nil, vaultDomain.ErrAuthenticationFailed
		}
		key = u.deriver.Derive(password, record.Salt)
	}
	defer cryptoDomain.Zero(key)

	cipher, err := u.aead.CreateCipher(key, u.algorithm)
	if err != nil {
		return nil, apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to create cipher")
	}
	plaintext, err := cipher.Decrypt(record.Ciphertext, record.Nonce, record.AAD())
	if err != nil {
		if apperrors.Is(err, cryptoDomain.ErrDecryptionFailed) {
			return nil, vaultDomain.ErrAuthenticationFailed
		}
		return nil, err
	}

	u.cache.Put(userID, vaultService.Session{Key: key, Salt: record.Salt})

	secret := string(plaintext)
	cryptoDomain.Zero(plaintext)
	return &FetchResult{Secret: secret, CacheHit: cacheHit}, nil
}

// Logout deletes the (user, service) record. Once a user has no records left
// the cached key is invalidated as well. Logging out twice is not an error.
func (u *vaultUseCase) Logout(ctx context.Context, userID, rawService string) (bool, error) {
	service, err := u.services.Parse(rawService)
	if err != nil {
		return false, err
	}

	unlock := u.lockUser(userID)
	defer unlock()

	var deleted bool
	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = u.repo.Delete(ctx, userID, service)
		if err != nil {
			return err
		}
		remaining, err := u.repo.ListServices(ctx, userID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			u.cache.Invalidate(userID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	u.logger.InfoContext(ctx, "vault logout",
		slog.String("user_id", userID),
		slog.String("service", string(service)),
		slog.Bool("deleted", deleted),
	)
	return deleted, nil
}

// Status returns the services the user has stored credentials for.
func (u *vaultUseCase) Status(ctx context.Context, userID string) ([]vaultDomain.Service, error) {
	return u.repo.ListServices(ctx, userID)
}

// authenticate resolves the salt and derived key for a login. Exactly one
// derivation is performed on every path:
//   - live session: derive with the session salt, compare against the cached key
//   - existing records: derive with a stored salt, verify by decrypting one record
//   - empty vault: generate a fresh salt, accept the password as-is
//
// Per-user salt convergence follows from the first two branches: every record
// a user holds is encrypted under one salt, so one cached key opens all of them.
func (u *vaultUseCase) authenticate(ctx context.Context, userID, password string) ([]byte, []byte, error) {
	if session, ok := u.cache.Get(userID); ok {
		defer cryptoDomain.Zero(session.Key)

		candidate := u.deriver.Derive(password, session.Salt)
		if subtle.ConstantTimeCompare(candidate, session.Key) != 1 {
			cryptoDomain.Zero(candidate)
			return nil, nil, vaultDomain.ErrAuthenticationFailed
		}
		return session.Salt, candidate, nil
	}

	record, err := u.anyRecord(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		salt, err := cryptoService.GenerateSalt()
		if err != nil {
			return nil, nil, err
		}
		return salt, u.deriver.Derive(password, salt), nil
	}

	key := u.deriver.Derive(password, record.Salt)
	cipher, err := u.aead.CreateCipher(key, u.algorithm)
	if err != nil {
		cryptoDomain.Zero(key)
		return nil, nil, apperrors.WrapWith(apperrors.ErrCrypto, err, "failed to create cipher")
	}
	plaintext, err := cipher.Decrypt(record.Ciphertext, record.Nonce, record.AAD())
	if err != nil {
		cryptoDomain.Zero(key)
		if apperrors.Is(err, cryptoDomain.ErrDecryptionFailed) {
			return nil, nil, vaultDomain.ErrAuthenticationFailed
		}
		return nil, nil, err
	}
	cryptoDomain.Zero(plaintext)

	return record.Salt, key, nil
}

// anyRecord returns one of the user's stored records, or nil when the vault
// is empty for this user.
func (u *vaultUseCase) anyRecord(ctx context.Context, userID string) (*vaultDomain.SecretRecord, error) {
	services, err := u.repo.ListServices(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, nil
	}

	record, err := u.repo.Get(ctx, userID, services[0])
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// lockUser acquires the per-user mutex and returns its unlock function.
// The lock entry is dropped once no operation holds or waits on it.
func (u *vaultUseCase) lockUser(userID string) func() {
	u.locksMu.Lock()
	l, ok := u.userLocks[userID]
	if !ok {
		l = &userLock{}
		u.userLocks[userID] = l
	}
	l.refs++
	u.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		u.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.userLocks, userID)
		}
		u.locksMu.Unlock()
	}
}
