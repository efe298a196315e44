// Package dto provides data transfer objects for the vault HTTP API.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/flavortown/credvault/internal/validation"
)

// Password policy of the login form: 8 to 100 characters. Secrets are API
// keys and tokens, capped at 200 characters.
const (
	passwordMinLength = 8
	passwordMaxLength = 100
	secretMaxLength   = 200
)

// LoginRequest contains the parameters for storing a credential.
type LoginRequest struct {
	UserID   string `json:"user_id"`
	Service  string `json:"service"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Service, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(passwordMinLength, passwordMaxLength),
		),
		validation.Field(&r.Secret,
			validation.Required,
			validation.Length(1, secretMaxLength),
		),
	)
}

// FetchRequest contains the parameters for retrieving a credential.
// Password is optional: it is only needed when no live session exists.
type FetchRequest struct {
	UserID   string `json:"user_id"`
	Service  string `json:"service"`
	Password string `json:"password,omitempty"`
}

// Validate checks if the fetch request is valid.
func (r *FetchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Service, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password,
			validation.When(r.Password != "",
				validation.Length(passwordMinLength, passwordMaxLength),
			),
		),
	)
}

// LogoutRequest contains the parameters for removing a credential.
type LogoutRequest struct {
	UserID  string `json:"user_id"`
	Service string `json:"service"`
}

// Validate checks if the logout request is valid.
func (r *LogoutRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Service, validation.Required, customValidation.NotBlank),
	)
}
