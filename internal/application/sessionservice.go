package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// SessionService covers login, logout and the current identity.
type SessionService struct {
	auth  driven.AuthAPI
	store driven.CredentialStore
}

// NewSessionService creates a new SessionService.
func NewSessionService(auth driven.AuthAPI, store driven.CredentialStore) *SessionService {
	return &SessionService{auth: auth, store: store}
}

// Login authenticates and returns the logged-in user.
func (s *SessionService) Login(ctx context.Context, username, password string) (*model.User, error) {
	if _, err := s.auth.Login(ctx, username, password); err != nil {
		return nil, err
	}
	user, err := s.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching user after login: %w", err)
	}
	return user, nil
}

// Logout drops the stored credentials.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.auth.Logout(ctx)
}

// CurrentUser returns the authenticated user. A session that cannot be
// recovered returns driven.ErrSessionExpired.
func (s *SessionService) CurrentUser(ctx context.Context) (*model.User, error) {
	return s.auth.Me(ctx)
}

// Credentials returns the stored pair.
func (s *SessionService) Credentials(ctx context.Context) (model.CredentialPair, error) {
	return s.store.Get(ctx)
}

// IsAuthenticated reports whether any credential is stored. It does not
// contact the server.
func (s *SessionService) IsAuthenticated(ctx context.Context) (bool, error) {
	pair, err := s.store.Get(ctx)
	if err != nil {
		return false, err
	}
	return !pair.IsZero(), nil
}
