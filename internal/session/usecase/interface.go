// Package usecase implements sign-in, session restore and sign-out. Tokens and the
// user profile are persisted through the storage service, which encrypts them, and
// the access token is injected into the HTTP client's default headers.
package usecase

import (
	"context"

	"github.com/ribbonapp/ribbon-core/internal/httpclient"
	sessionDomain "github.com/ribbonapp/ribbon-core/internal/session/domain"
)

// Storage is the subset of the storage service used for sessions.
type Storage interface {
	GetValue(ctx context.Context, key string, dst any) (bool, error)
	SetValue(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
}

// APIClient is the subset of the HTTP client used for sessions. *httpclient.Client
// implements it.
type APIClient interface {
	Post(ctx context.Context, endpoint string, body any, opts ...httpclient.RequestOption) (*httpclient.Response, error)
	SetAuthToken(token string)
	ClearAuthToken()
}

// SessionUseCase manages the signed-in session.
type SessionUseCase interface {
	// Authenticate exchanges credentials for a session at the authentication
	// endpoint and signs in with it.
	Authenticate(ctx context.Context, credentials sessionDomain.Credentials) (*sessionDomain.Session, error)

	// SignIn persists the session and injects its access token.
	SignIn(ctx context.Context, session sessionDomain.Session) error

	// Restore re-injects a stored access token. It reports false when no session
	// is stored.
	Restore(ctx context.Context) (bool, error)

	// CurrentUser returns the stored profile or ErrNoSession.
	CurrentUser(ctx context.Context) (*sessionDomain.UserProfile, error)

	// SignOut removes the stored session and clears the access token.
	SignOut(ctx context.Context) error
}
