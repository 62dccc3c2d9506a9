package usecase

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
	sessionDomain "github.com/ribbonapp/ribbon-core/internal/session/domain"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// DefaultAuthEndpoint is where Authenticate posts credentials.
const DefaultAuthEndpoint = "/auth/token"

type sessionUseCase struct {
	storage      Storage
	client       APIClient
	authEndpoint string
	logger       *slog.Logger
}

// NewSessionUseCase creates a SessionUseCase. An empty authEndpoint uses
// DefaultAuthEndpoint.
func NewSessionUseCase(storage Storage, client APIClient, authEndpoint string, logger *slog.Logger) SessionUseCase {
	if authEndpoint == "" {
		authEndpoint = DefaultAuthEndpoint
	}
	return &sessionUseCase{
		storage:      storage,
		client:       client,
		authEndpoint: authEndpoint,
		logger:       logger,
	}
}

func (s *sessionUseCase) Authenticate(
	ctx context.Context,
	credentials sessionDomain.Credentials,
) (*sessionDomain.Session, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.client.Post(ctx, s.authEndpoint, credentials)
	if err != nil {
		return nil, err
	}

	var session sessionDomain.Session
	if err := resp.Decode(&session); err != nil {
		return nil, err
	}

	if err := s.SignIn(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionUseCase) SignIn(ctx context.Context, session sessionDomain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	if err := s.storage.SetValue(ctx, storageDomain.KeyAuthToken, session.AccessToken); err != nil {
		return err
	}
	if session.RefreshToken != "" {
		if err := s.storage.SetValue(ctx, storageDomain.KeyRefreshToken, session.RefreshToken); err != nil {
			return err
		}
	} else if err := s.storage.Remove(ctx, storageDomain.KeyRefreshToken); err != nil {
		return err
	}
	if err := s.storage.SetValue(ctx, storageDomain.KeyUserProfile, session.User); err != nil {
		return err
	}

	s.client.SetAuthToken(session.AccessToken)
	s.logger.InfoContext(ctx, "signed in", slog.String("user_id", session.User.ID))
	return nil
}

func (s *sessionUseCase) Restore(ctx context.Context) (bool, error) {
	var token string
	ok, err := s.storage.GetValue(ctx, storageDomain.KeyAuthToken, &token)
	if err != nil {
		return false, err
	}
	if !ok || token == "" {
		s.client.ClearAuthToken()
		return false, nil
	}

	s.client.SetAuthToken(token)
	return true, nil
}

func (s *sessionUseCase) CurrentUser(ctx context.Context) (*sessionDomain.UserProfile, error) {
	var profile sessionDomain.UserProfile
	ok, err := s.storage.GetValue(ctx, storageDomain.KeyUserProfile, &profile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sessionDomain.ErrNoSession
	}
	return &profile, nil
}

// SignOut always clears the header, even when removing a stored key fails.
func (s *sessionUseCase) SignOut(ctx context.Context) error {
	s.client.ClearAuthToken()

	var errs []error
	for _, key := range []string{
		storageDomain.KeyAuthToken,
		storageDomain.KeyRefreshToken,
		storageDomain.KeyUserProfile,
	} {
		if err := s.storage.Remove(ctx, key); err != nil {
			errs = append(errs, apperrors.Wrap(err, "failed to remove "+key))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "signed out")
	return nil
}
