package dto

import (
	vaultDomain "github.com/flavortown/credvault/internal/vault/domain"
)

// LoginResponse confirms a stored credential.
type LoginResponse struct {
	UserID  string `json:"user_id"`
	Service string `json:"service"`
}

// FetchResponse carries a decrypted secret back to the command layer.
// It exists only in transit and is never persisted.
type FetchResponse struct {
	UserID  string `json:"user_id"`
	Service string `json:"service"`
	Secret  string `json:"secret"`
}

// LogoutResponse reports whether a credential was removed.
type LogoutResponse struct {
	UserID  string `json:"user_id"`
	Service string `json:"service"`
	Deleted bool   `json:"deleted"`
}

// StatusResponse lists the services a user has stored credentials for.
type StatusResponse struct {
	UserID   string   `json:"user_id"`
	Services []string `json:"services"`
}

// MapServicesToStatusResponse converts domain services to a status response.
func MapServicesToStatusResponse(userID string, services []vaultDomain.Service) StatusResponse {
	names := make([]string, len(services))
	for i, service := range services {
		names[i] = string(service)
	}
	return StatusResponse{UserID: userID, Services: names}
}
