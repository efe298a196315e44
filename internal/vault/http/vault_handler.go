// Package http provides HTTP handlers for the vault operations consumed by
// the chat command layer: login, fetch, logout and status.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/flavortown/credvault/internal/errors"
	"github.com/flavortown/credvault/internal/httputil"
	customValidation "github.com/flavortown/credvault/internal/validation"
	"github.com/flavortown/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/flavortown/credvault/internal/vault/usecase"
)

var errMissingUserID = apperrors.New("user_id query parameter is required")

// VaultHandler handles HTTP requests for vault operations.
type VaultHandler struct {
	useCase vaultUseCase.VaultUseCase
	logger  *slog.Logger
}

// NewVaultHandler creates a new vault handler with required dependencies.
func NewVaultHandler(useCase vaultUseCase.VaultUseCase, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		useCase: useCase,
		logger:  logger,
	}
}

// LoginHandler verifies the password and stores an encrypted credential.
// POST /v1/vault/login
// Returns 201 Created. The secret and password are never echoed back.
func (h *VaultHandler) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.useCase.Login(c.Request.Context(), req.UserID, req.Service, req.Password, req.Secret); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.LoginResponse{
		UserID:  req.UserID,
		Service: req.Service,
	})
}

// FetchHandler decrypts and returns a stored credential.
// POST /v1/vault/fetch
// Returns 200 OK with the plaintext secret. Fetch is a POST so the optional
// password travels in the body, never in a URL.
func (h *VaultHandler) FetchHandler(c *gin.Context) {
	var req dto.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.useCase.Fetch(c.Request.Context(), req.UserID, req.Service, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.FetchResponse{
		UserID:  req.UserID,
		Service: req.Service,
		Secret:  result.Secret,
	})
}

// LogoutHandler removes a stored credential.
// POST /v1/vault/logout
// Returns 200 OK reporting whether a credential existed. Logging out twice
// is not an error.
func (h *VaultHandler) LogoutHandler(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	deleted, err := h.useCase.Logout(c.Request.Context(), req.UserID, req.Service)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.LogoutResponse{
		UserID:  req.UserID,
		Service: req.Service,
		Deleted: deleted,
	})
}

// StatusHandler lists the services a user has stored credentials for.
// GET /v1/vault/status?user_id=...
// Returns 200 OK. No password is required and nothing is decrypted.
func (h *VaultHandler) StatusHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		httputil.HandleValidationErrorGin(
			c,
			customValidation.WrapValidationError(errMissingUserID),
			h.logger,
		)
		return
	}

	services, err := h.useCase.Status(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapServicesToStatusResponse(userID, services))
}
