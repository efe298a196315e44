package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/flavortown/credvault/internal/crypto/domain"
	cryptoService "github.com/flavortown/credvault/internal/crypto/service"
	apperrors "github.com/flavortown/credvault/internal/errors"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	vaultService "github.com/flavortown/credvault/internal/vault/service"
)

// Tests run against the real key derivation, ciphers and session cache:
// the behavior under test (wrong password detection, envelope binding,
// salt reuse) is cryptographic and a mocked cipher would assert nothing.
// Only the record store is faked, with an in-memory map.

// fakeRecordRepo is an in-memory RecordRepository.
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]*vaultDomain.SecretRecord

	getErr    error
	upsertErr error
	deleteErr error
	listErr   error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]*vaultDomain.SecretRecord)}
}

func recordKey(userID string, service vaultDomain.Service) string {
	return userID + "|" + string(service)
}

func (f *fakeRecordRepo) Get(_ context.Context, userID string, service vaultDomain.Service) (*vaultDomain.SecretRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	record, ok := f.records[recordKey(userID, service)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRecordRepo) Upsert(_ context.Context, record *vaultDomain.SecretRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	clone := *record
	f.records[recordKey(record.UserID, record.Service)] = &clone
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, userID string, service vaultDomain.Service) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	key := recordKey(userID, service)
	_, ok := f.records[key]
	delete(f.records, key)
	return ok, nil
}

func (f *fakeRecordRepo) ListServices(_ context.Context, userID string) ([]vaultDomain.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var services []vaultDomain.Service
	for _, record := range f.records {
		if record.UserID == userID {
			services = append(services, record.Service)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
	return services, nil
}

// tamper replaces fields of a stored record directly.
func (f *fakeRecordRepo) tamper(userID string, service vaultDomain.Service, fn func(*vaultDomain.SecretRecord)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f.records[recordKey(userID, service)])
}

// fakeTxManager runs the function without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testArgon2Params keeps derivation cheap so the suite stays fast.
var testArgon2Params = cryptoService.Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1}

type testVault struct {
	useCase VaultUseCase
	repo    *fakeRecordRepo
	cache   *vaultService.SessionCache
}

func newTestVault(t *testing.T) *testVault {
	t.Helper()

	repo := newFakeRecordRepo()
	cache := vaultService.NewSessionCache(15 * time.Minute)

	useCase := NewVaultUseCase(
		repo,
		cache,
		cryptoService.NewArgon2Deriver(testArgon2Params),
		cryptoService.NewAEADManager(),
		fakeTxManager{},
		vaultDomain.NewServiceSet("flavortown,hackatime"),
		cryptoDomain.AESGCM,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return &testVault{useCase: useCase, repo: repo, cache: cache}
}

func TestVaultUseCase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("stores an encrypted envelope and caches the key", func(t *testing.T) {
		v := newTestVault(t)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

		record, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceFlavortown)
		require.NoError(t, err)
		assert.Len(t, record.Salt, cryptoDomain.SaltSize)
		assert.NotEmpty(t, record.Nonce)
		assert.NotContains(t, string(record.Ciphertext), "secretA")

		_, ok := v.cache.Get("u1")
		assert.True(t, ok)
	})

	t.Run("rejects an unknown service", func(t *testing.T) {
		v := newTestVault(t)

		err := v.useCase.Login(ctx, "u1", "sprig", "password-1", "secretA")
		assert.ErrorIs(t, err, vaultDomain.ErrUnknownService)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("reuses the salt across a user's services", func(t *testing.T) {
		v := newTestVault(t)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		require.NoError(t, v.useCase.Login(ctx, "u1", "hackatime", "password-1", "secretB"))

		first, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceFlavortown)
		require.NoError(t, err)
		second, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceHackatime)
		require.NoError(t, err)
		assert.Equal(t, first.Salt, second.Salt)
	})

	t.Run("rejects a password inconsistent with the live session", func(t *testing.T) {
		v := newTestVault(t)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

		err := v.useCase.Login(ctx, "u1", "hackatime", "password-2", "secretB")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)

		_, err = v.repo.Get(ctx, "u1", vaultDomain.ServiceHackatime)
		assert.ErrorIs(t, err, apperrors.ErrNotFound, "a failed login must not write a record")
	})

	t.Run("rejects a wrong password against stored records after session expiry", func(t *testing.T) {
		v := newTestVault(t)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		v.cache.Invalidate("u1")

		err := v.useCase.Login(ctx, "u1", "hackatime", "password-2", "secretB")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)
	})

	t.Run("re-login re-encrypts even with the same password", func(t *testing.T) {
		v := newTestVault(t)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		before, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceFlavortown)
		require.NoError(t, err)

		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		after, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceFlavortown)
		require.NoError(t, err)

		assert.NotEqual(t, before.Nonce, after.Nonce)
		assert.NotEqual(t, before.Ciphertext, after.Ciphertext)
	})

	t.Run("propagates storage failures", func(t *testing.T) {
		v := newTestVault(t)
		v.repo.upsertErr = apperrors.WrapWith(apperrors.ErrStorage, assert.AnError, "boom")

		err := v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA")
		assert.ErrorIs(t, err, apperrors.ErrStorage)
	})
}

func TestVaultUseCase_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the secret from the cached key", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

		result, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
		require.NoError(t, err)
		assert.Equal(t, "secretA", result.Secret)
		assert.True(t, result.CacheHit)
	})

	t.Run("requires a password once the session is gone", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		v.cache.Invalidate("u1")

		_, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)

		result, err := v.useCase.Fetch(ctx, "u1", "flavortown", "password-1")
		require.NoError(t, err)
		assert.Equal(t, "secretA", result.Secret)
		assert.False(t, result.CacheHit)

		// A successful password-based fetch re-establishes the session.
		result, err = v.useCase.Fetch(ctx, "u1", "flavortown", "")
		require.NoError(t, err)
		assert.True(t, result.CacheHit)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		v.cache.Invalidate("u1")

		_, err := v.useCase.Fetch(ctx, "u1", "flavortown", "password-2")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)
	})

	t.Run("reports not logged in for a missing record", func(t *testing.T) {
		v := newTestVault(t)

		_, err := v.useCase.Fetch(ctx, "u1", "flavortown", "password-1")
		assert.ErrorIs(t, err, vaultDomain.ErrNotLoggedIn)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("rejects a tampered envelope like a wrong password", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

		v.repo.tamper("u1", vaultDomain.ServiceFlavortown, func(r *vaultDomain.SecretRecord) {
			r.Ciphertext[0] ^= 0x01
		})

		_, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)

		v.cache.Invalidate("u1")
		_, err = v.useCase.Fetch(ctx, "u1", "flavortown", "password-1")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed,
			"a tampered envelope and a wrong password must be indistinguishable")
	})

	t.Run("rejects an envelope copied from another record", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		require.NoError(t, v.useCase.Login(ctx, "u1", "hackatime", "password-1", "secretB"))

		donor, err := v.repo.Get(ctx, "u1", vaultDomain.ServiceFlavortown)
		require.NoError(t, err)
		v.repo.tamper("u1", vaultDomain.ServiceHackatime, func(r *vaultDomain.SecretRecord) {
			r.Nonce = donor.Nonce
			r.Ciphertext = donor.Ciphertext
		})

		_, err = v.useCase.Fetch(ctx, "u1", "hackatime", "")
		assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)
	})
}

func TestVaultUseCase_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the record and is idempotent", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

		deleted, err := v.useCase.Logout(ctx, "u1", "flavortown")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = v.useCase.Logout(ctx, "u1", "flavortown")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("invalidates the session after the last record", func(t *testing.T) {
		v := newTestVault(t)
		require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
		require.NoError(t, v.useCase.Login(ctx, "u1", "hackatime", "password-1", "secretB"))

		_, err := v.useCase.Logout(ctx, "u1", "flavortown")
		require.NoError(t, err)
		_, ok := v.cache.Get("u1")
		assert.True(t, ok, "a session must survive while records remain")

		_, err = v.useCase.Logout(ctx, "u1", "hackatime")
		require.NoError(t, err)
		_, ok = v.cache.Get("u1")
		assert.False(t, ok, "the session must not outlive the last record")

		services, err := v.useCase.Status(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, services)
	})
}

func TestVaultUseCase_Status(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	services, err := v.useCase.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, services)

	require.NoError(t, v.useCase.Login(ctx, "u1", "hackatime", "password-1", "secretB"))
	require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))

	services, err = v.useCase.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []vaultDomain.Service{vaultDomain.ServiceFlavortown, vaultDomain.ServiceHackatime}, services)
}

func TestVaultUseCase_EndToEnd(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "pw1-long-enough", "secretA"))

	result, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
	require.NoError(t, err)
	assert.Equal(t, "secretA", result.Secret)

	err = v.useCase.Login(ctx, "u1", "hackatime", "pw2-long-enough", "secretB")
	assert.ErrorIs(t, err, vaultDomain.ErrAuthenticationFailed)
	_, err = v.repo.Get(ctx, "u1", vaultDomain.ServiceHackatime)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, v.useCase.Login(ctx, "u1", "hackatime", "pw1-long-enough", "secretB"))

	services, err := v.useCase.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []vaultDomain.Service{vaultDomain.ServiceFlavortown, vaultDomain.ServiceHackatime}, services)
}

func TestVaultUseCase_ConcurrentLoginsSameKey(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	const writers = 8
	secrets := make([]string, writers)
	for i := range secrets {
		secrets[i] = fmt.Sprintf("secret-%d", i)
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", secrets[n]))
		}(i)
	}
	wg.Wait()

	// Last writer wins: the stored envelope must decrypt to exactly one of
	// the concurrent writes, never a mix of two.
	result, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
	require.NoError(t, err)
	assert.Contains(t, secrets, result.Secret)

	services, err := v.useCase.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []vaultDomain.Service{vaultDomain.ServiceFlavortown}, services)
}

func TestVaultUseCase_ReleasesUserLocks(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	require.NoError(t, v.useCase.Login(ctx, "u1", "flavortown", "password-1", "secretA"))
	_, err := v.useCase.Fetch(ctx, "u1", "flavortown", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n)
			assert.NoError(t, v.useCase.Login(ctx, userID, "flavortown", "password-1", "secret"))
		}(i)
	}
	wg.Wait()

	impl := v.useCase.(*vaultUseCase)
	impl.locksMu.Lock()
	held := len(impl.userLocks)
	impl.locksMu.Unlock()
	assert.Zero(t, held, "per-user locks must be dropped once released")
}

func TestVaultUseCase_ConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := "user-" + string(rune('a'+n))
			secret := "secret-" + userID

			assert.NoError(t, v.useCase.Login(ctx, userID, "flavortown", "password-"+userID, secret))

			result, err := v.useCase.Fetch(ctx, userID, "flavortown", "")
			if assert.NoError(t, err) {
				assert.Equal(t, secret, result.Secret, "one user's key must never open another user's record")
			}
		}(i)
	}
	wg.Wait()
}
