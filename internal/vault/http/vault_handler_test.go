package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/flavortown/credvault/internal/errors"
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
	"github.com/flavortown/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/flavortown/credvault/internal/vault/usecase"
)

// fakeVaultUseCase returns canned results per operation.
type fakeVaultUseCase struct {
	loginErr    error
	fetchResult *vaultUseCase.FetchResult
	fetchErr    error
	logoutOK    bool
	logoutErr   error
	services    []vaultDomain.Service
	statusErr   error

	lastUserID   string
	lastService  string
	lastPassword string
	lastSecret   string
}

func (f *fakeVaultUseCase) Login(_ context.Context, userID, service, password, secret string) error {
	f.lastUserID, f.lastService, f.lastPassword, f.lastSecret = userID, service, password, secret
	return f.loginErr
}

func (f *fakeVaultUseCase) Fetch(_ context.Context, userID, service, password string) (*vaultUseCase.FetchResult, error) {
	f.lastUserID, f.lastService, f.lastPassword = userID, service, password
	return f.fetchResult, f.fetchErr
}

func (f *fakeVaultUseCase) Logout(_ context.Context, userID, service string) (bool, error) {
	f.lastUserID, f.lastService = userID, service
	return f.logoutOK, f.logoutErr
}

func (f *fakeVaultUseCase) Status(_ context.Context, userID string) ([]vaultDomain.Service, error) {
	f.lastUserID = userID
	return f.services, f.statusErr
}

func setupHandlerTest(useCase vaultUseCase.VaultUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewVaultHandler(useCase, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	v1 := router.Group("/v1/vault")
	v1.POST("/login", handler.LoginHandler)
	v1.POST("/fetch", handler.FetchHandler)
	v1.POST("/logout", handler.LogoutHandler)
	v1.GET("/status", handler.StatusHandler)
	return router
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVaultHandler_Login(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		fake := &fakeVaultUseCase{}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/login", dto.LoginRequest{
			UserID:   "u1",
			Service:  "flavortown",
			Password: "password-1",
			Secret:   "secretA",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "u1", fake.lastUserID)
		assert.Equal(t, "flavortown", fake.lastService)
		assert.NotContains(t, w.Body.String(), "secretA", "the secret must not be echoed back")
		assert.NotContains(t, w.Body.String(), "password-1")
	})

	t.Run("returns 422 for a short password", func(t *testing.T) {
		router := setupHandlerTest(&fakeVaultUseCase{})

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/login", dto.LoginRequest{
			UserID:   "u1",
			Service:  "flavortown",
			Password: "short",
			Secret:   "secretA",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("returns 401 on authentication failure", func(t *testing.T) {
		fake := &fakeVaultUseCase{loginErr: vaultDomain.ErrAuthenticationFailed}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/login", dto.LoginRequest{
			UserID:   "u1",
			Service:  "hackatime",
			Password: "password-2",
			Secret:   "secretB",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns 400 for malformed JSON", func(t *testing.T) {
		router := setupHandlerTest(&fakeVaultUseCase{})

		req := httptest.NewRequest(http.MethodPost, "/v1/vault/login", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVaultHandler_Fetch(t *testing.T) {
	t.Run("returns the secret", func(t *testing.T) {
		fake := &fakeVaultUseCase{fetchResult: &vaultUseCase.FetchResult{Secret: "secretA", CacheHit: true}}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/fetch", dto.FetchRequest{
			UserID:  "u1",
			Service: "flavortown",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.FetchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "secretA", resp.Secret)
	})

	t.Run("allows an empty password", func(t *testing.T) {
		fake := &fakeVaultUseCase{fetchResult: &vaultUseCase.FetchResult{Secret: "secretA"}}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/fetch", dto.FetchRequest{
			UserID:  "u1",
			Service: "flavortown",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, fake.lastPassword)
	})

	t.Run("returns 404 when not logged in", func(t *testing.T) {
		fake := &fakeVaultUseCase{fetchErr: vaultDomain.ErrNotLoggedIn}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/fetch", dto.FetchRequest{
			UserID:  "u1",
			Service: "flavortown",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 401 on authentication failure", func(t *testing.T) {
		fake := &fakeVaultUseCase{fetchErr: vaultDomain.ErrAuthenticationFailed}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/fetch", dto.FetchRequest{
			UserID:   "u1",
			Service:  "flavortown",
			Password: "password-2",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestVaultHandler_Logout(t *testing.T) {
	t.Run("reports a deleted credential", func(t *testing.T) {
		fake := &fakeVaultUseCase{logoutOK: true}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/logout", dto.LogoutRequest{
			UserID:  "u1",
			Service: "flavortown",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.LogoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Deleted)
	})

	t.Run("a second logout still returns 200", func(t *testing.T) {
		fake := &fakeVaultUseCase{logoutOK: false}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodPost, "/v1/vault/logout", dto.LogoutRequest{
			UserID:  "u1",
			Service: "flavortown",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.LogoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Deleted)
	})
}

func TestVaultHandler_Status(t *testing.T) {
	t.Run("lists the user's services", func(t *testing.T) {
		fake := &fakeVaultUseCase{services: []vaultDomain.Service{vaultDomain.ServiceFlavortown, vaultDomain.ServiceHackatime}}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodGet, "/v1/vault/status?user_id=u1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"flavortown", "hackatime"}, resp.Services)
	})

	t.Run("requires a user_id", func(t *testing.T) {
		router := setupHandlerTest(&fakeVaultUseCase{})

		w := doJSONRequest(t, router, http.MethodGet, "/v1/vault/status", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("maps storage failures to 500", func(t *testing.T) {
		fake := &fakeVaultUseCase{statusErr: apperrors.WrapWith(apperrors.ErrStorage, assert.AnError, "boom")}
		router := setupHandlerTest(fake)

		w := doJSONRequest(t, router, http.MethodGet, "/v1/vault/status?user_id=u1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
