// Package domain defines the signed-in session persisted by the session use case.
package domain

import (
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	customValidation "github.com/ribbonapp/ribbon-core/internal/validation"
)

// ErrNoSession indicates no session is stored.
var ErrNoSession = apperrors.Wrap(apperrors.ErrUnauthorized, "no active session")

// UserProfile is persisted under "user_profile".
type UserProfile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Validate checks that the profile has an ID and a valid email.
func (p UserProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Email, validation.Required, customValidation.Email),
	)
}

// Session is the result of a successful sign-in.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserProfile `json:"user"`
}

// Validate checks that the session carries tokens and a user with a valid email.
func (s *Session) Validate() error {
	s.User.Email = strings.TrimSpace(s.User.Email)
	err := validation.ValidateStruct(s,
		validation.Field(&s.AccessToken, validation.Required, customValidation.NoWhitespace),
		validation.Field(&s.RefreshToken, customValidation.NoWhitespace),
		validation.Field(&s.User),
	)
	return customValidation.WrapValidationError(err)
}

// Expired reports whether the access token has expired at now. A zero ExpiresAt
// never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Credentials are posted to the authentication endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the email format and that a password is present.
func (c *Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	err := validation.ValidateStruct(c,
		validation.Field(&c.Email, validation.Required, customValidation.Email),
		validation.Field(&c.Password, validation.Required),
	)
	return customValidation.WrapValidationError(err)
}
