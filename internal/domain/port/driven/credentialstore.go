package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by persistent CredentialStore adapters when
// TODOPANEL_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set TODOPANEL_SECRET_KEY")

// CredentialStore defines the driven port for the current session's
// access/refresh credential pair. Implementations must replace the pair as a
// single unit: a concurrent Get never observes a new access token alongside an
// old refresh token.
type CredentialStore interface {
	// Get returns the stored pair, or the zero pair if logged out.
	Get(ctx context.Context) (model.CredentialPair, error)

	// Set atomically replaces both tokens.
	Set(ctx context.Context, pair model.CredentialPair) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
