package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	vaultUseCase "github.com/flavortown/credvault/internal/vault/usecase"
)

// fakeVault tracks logout calls per service.
type fakeVault struct {
	services  []vaultDomain.Service
	statusErr error
	logoutErr error
	loggedOut []string
}

func (f *fakeVault) Login(context.Context, string, string, string, string) error {
	return nil
}

func (f *fakeVault) Fetch(context.Context, string, string, string) (*vaultUseCase.FetchResult, error) {
	return nil, nil
}

func (f *fakeVault) Logout(_ context.Context, _, service string) (bool, error) {
	if f.logoutErr != nil {
		return false, f.logoutErr
	}
	f.loggedOut = append(f.loggedOut, service)
	return true, nil
}

func (f *fakeVault) Status(context.Context, string) ([]vaultDomain.Service, error) {
	return f.services, f.statusErr
}

func TestRunPurgeUser(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("purges every service", func(t *testing.T) {
		fake := &fakeVault{services: []vaultDomain.Service{vaultDomain.ServiceFlavortown, vaultDomain.ServiceHackatime}}

		var out bytes.Buffer
		err := RunPurgeUser(ctx, fake, logger, &out, "u1")

		require.NoError(t, err)
		assert.Equal(t, []string{"flavortown", "hackatime"}, fake.loggedOut)
		assert.Contains(t, out.String(), "purged 2 credential(s) for user u1")
	})

	t.Run("reports an empty vault", func(t *testing.T) {
		fake := &fakeVault{}

		var out bytes.Buffer
		err := RunPurgeUser(ctx, fake, logger, &out, "u1")

		require.NoError(t, err)
		assert.Contains(t, out.String(), "no stored credentials for user u1")
	})

	t.Run("requires a user id", func(t *testing.T) {
		err := RunPurgeUser(ctx, &fakeVault{}, logger, &bytes.Buffer{}, "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "user id must not be empty")
	})

	t.Run("propagates status failures", func(t *testing.T) {
		fake := &fakeVault{statusErr: assert.AnError}

		err := RunPurgeUser(ctx, fake, logger, &bytes.Buffer{}, "u1")
		require.Error(t, err)
	})
}
