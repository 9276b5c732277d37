package driven

import (
	"context"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// AuthAPI defines the driven port for account and session operations.
type AuthAPI interface {
	Register(ctx context.Context, in model.UserCreate) (*model.User, error)
	// Login exchanges username/password for a credential pair and stores it.
	Login(ctx context.Context, username, password string) (model.CredentialPair, error)
	// Logout clears the stored credential pair. It does not contact the server.
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) (string, error)
}
