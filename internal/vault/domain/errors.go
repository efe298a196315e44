package domain

import (
	"github.com/flavortown/credvault/internal/errors"
)

// Vault-specific error definitions.
var (
	// ErrAuthenticationFailed covers both a wrong password and a tampered or
	// corrupted envelope. The two cases are deliberately indistinguishable:
	// telling them apart would hand an oracle to an attacker guessing passwords.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrUnauthorized, "authentication failed")

	// ErrNotLoggedIn indicates no credential is stored for the requested service.
	ErrNotLoggedIn = errors.Wrap(errors.ErrNotFound, "not logged in")

	// ErrUnknownService indicates a service identifier outside the configured set.
	ErrUnknownService = errors.Wrap(errors.ErrInvalidInput, "unknown service")
)
