package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

var (
	// ErrNoRefreshCredential means the store holds no refresh token.
	ErrNoRefreshCredential = errors.New("no refresh credential")
	// ErrRefreshFailed means the renewal request did not produce a new pair.
	ErrRefreshFailed = errors.New("credential refresh failed")
)

// RefreshState reports whether a renewal is in flight.
type RefreshState int32

const (
	RefreshIdle RefreshState = iota
	RefreshRefreshing
)

// String returns the state name.
func (s RefreshState) String() string {
	if s == RefreshRefreshing {
		return "refreshing"
	}
	return "idle"
}

// flightKey is the single singleflight key: there is only one credential pair.
const flightKey = "refresh"

// attempter sends one raw attempt without refresh handling.
type attempter interface {
	attempt(ctx context.Context, req *Request, access string) (*Response, error)
}

// Refresher exchanges the stored refresh credential for a new pair. Concurrent
// callers share one renewal.
type Refresher struct {
	transport attempter
	store     driven.CredentialStore
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *Metrics

	group    singleflight.Group
	inflight atomic.Int32
}

func newRefresher(transport attempter, store driven.CredentialStore, timeout time.Duration, logger *slog.Logger, metrics *Metrics) *Refresher {
	return &Refresher{
		transport: transport,
		store:     store,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// State returns RefreshRefreshing while a renewal is in flight.
func (r *Refresher) State() RefreshState {
	if r.inflight.Load() > 0 {
		return RefreshRefreshing
	}
	return RefreshIdle
}

// Refresh returns a pair whose access credential differs from rejected. If the
// stored pair was already rotated by another caller it is returned without a
// network call. The shared renewal runs detached from ctx under the refresh
// timeout; ctx only bounds this caller's wait.
func (r *Refresher) Refresh(ctx context.Context, rejected string) (model.CredentialPair, error) {
	ch := r.group.DoChan(flightKey, func() (any, error) {
		return r.renew(context.WithoutCancel(ctx), rejected)
	})

	select {
	case <-ctx.Done():
		return model.CredentialPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.CredentialPair{}, res.Err
		}
		return res.Val.(model.CredentialPair), nil
	}
}

func (r *Refresher) renew(ctx context.Context, rejected string) (model.CredentialPair, error) {
	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	stored, err := r.store.Get(ctx)
	if err != nil {
		r.metrics.observeRefresh(refreshFailed)
		return model.CredentialPair{}, fmt.Errorf("%w: reading credentials: %w", ErrRefreshFailed, err)
	}
	if !stored.HasRefresh() {
		r.metrics.observeRefresh(refreshNoCredential)
		return model.CredentialPair{}, ErrNoRefreshCredential
	}
	if stored.HasAccess() && stored.Access != rejected {
		r.metrics.observeRefresh(refreshReused)
		return stored, nil
	}

	pair, err := r.exchange(ctx, stored.Refresh)
	if err != nil {
		r.metrics.observeRefresh(refreshFailed)
		r.logger.Warn("credential refresh failed", "error", err)
		return model.CredentialPair{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := r.store.Set(ctx, pair); err != nil {
		r.metrics.observeRefresh(refreshFailed)
		return model.CredentialPair{}, fmt.Errorf("%w: storing credentials: %w", ErrRefreshFailed, err)
	}

	r.metrics.observeRefresh(refreshRenewed)
	r.logger.Debug("credentials refreshed")
	return pair, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// pair converts the token response, keeping fallbackRefresh when the server
// did not rotate the refresh token.
func (t tokenResponse) pair(fallbackRefresh string) (model.CredentialPair, error) {
	if t.AccessToken == "" {
		return model.CredentialPair{}, errors.New("token response has no access_token")
	}
	refresh := t.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return model.CredentialPair{Access: t.AccessToken, Refresh: refresh}, nil
}

// exchange issues POST /auth/refresh through the raw transport.
func (r *Refresher) exchange(ctx context.Context, refresh string) (model.CredentialPair, error) {
	req := NewRequest(http.MethodPost, "/auth/refresh")
	req.Body = refreshRequest{RefreshToken: refresh}
	req.Anonymous = true
	if err := req.prepare(); err != nil {
		return model.CredentialPair{}, err
	}

	resp, err := r.transport.attempt(ctx, req, "")
	if err != nil {
		return model.CredentialPair{}, err
	}
	if err := classify(req, resp); err != nil {
		return model.CredentialPair{}, err
	}

	var tokens tokenResponse
	if err := resp.Decode(&tokens); err != nil {
		return model.CredentialPair{}, err
	}
	return tokens.pair(refresh)
}
