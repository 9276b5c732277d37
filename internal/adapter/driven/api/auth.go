package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthAPI = (*Client)(nil)

// Register creates an account. It does not log the new user in.
func (c *Client) Register(ctx context.Context, in model.UserCreate) (*model.User, error) {
	const path = "/auth/register"
	if err := validatePayload(http.MethodPost, path, in); err != nil {
		return nil, err
	}

	req := NewRequest(http.MethodPost, path)
	req.Body = in
	req.Anonymous = true

	var user model.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges username and password for a credential pair and stores it
// in one write. Bad credentials come back as a validation error carrying the
// server's detail.
func (c *Client) Login(ctx context.Context, username, password string) (model.CredentialPair, error) {
	req := NewRequest(http.MethodPost, "/auth/login")
	req.Form = url.Values{"username": {username}, "password": {password}}
	req.Anonymous = true

	var tokens tokenResponse
	if err := c.do(ctx, req, &tokens); err != nil {
		return model.CredentialPair{}, err
	}

	pair, err := tokens.pair("")
	if err != nil {
		return model.CredentialPair{}, &driven.APIError{Kind: driven.KindServer, Method: req.Method, Path: req.Path, Err: err}
	}
	c.purgeCache()
	if err := c.store.Set(ctx, pair); err != nil {
		return model.CredentialPair{}, fmt.Errorf("storing credentials: %w", err)
	}

	c.logger.Info("logged in", "username", username)
	return pair, nil
}

// Logout clears the stored pair. The backend keeps no server-side session.
func (c *Client) Logout(ctx context.Context) error {
	c.purgeCache()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, NewRequest(http.MethodGet, "/auth/me"), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyEmail redeems an email verification token and returns the server message.
func (c *Client) VerifyEmail(ctx context.Context, token string) (string, error) {
	req := NewRequest(http.MethodPost, "/auth/verify-email/"+url.PathEscape(token))
	req.Anonymous = true

	var msg messageResponse
	if err := c.do(ctx, req, &msg); err != nil {
		return "", err
	}
	return msg.Message, nil
}

type messageResponse struct {
	Message string `json:"message"`
}
