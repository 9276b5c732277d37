package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Attempt outcomes used as metric labels.
const (
	outcomeOK           = "ok"
	outcomeUnauthorized = "unauthorized"
	outcomeClientError  = "client_error"
	outcomeServerError  = "server_error"
	outcomeNetworkError = "network_error"
)

// Send executes req through the pipeline. A 2xx response is returned
// unchanged. A 401 on an authenticated request triggers one refresh and one
// replay; every other failure is returned as a *driven.APIError.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := req.prepare(); err != nil {
		return nil, &driven.APIError{Kind: driven.KindValidation, Method: req.Method, Path: req.Path, Err: err}
	}

	var access string
	if !req.Anonymous {
		pair, err := c.store.Get(ctx)
		if err != nil {
			// Nothing was sent; the stored pair is left for the caller to fix
			// (wrong key, locked database) rather than purged.
			return nil, &driven.APIError{
				Kind:   driven.KindNetwork,
				Detail: "credential store unavailable",
				Method: req.Method,
				Path:   req.Path,
				Err:    fmt.Errorf("reading credentials: %w", err),
			}
		}
		access = pair.Access
	}

	return c.send(ctx, req, access)
}

func (c *Client) send(ctx context.Context, req *Request, access string) (*Response, error) {
	resp, err := c.attempt(ctx, req, access)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
		return c.reauthorize(ctx, req, access, resp)
	}
	if err := classify(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// reauthorize handles a 401 on an authenticated request. The first 401 gets
// one refresh and one replay; a 401 on the replay ends the session.
func (c *Client) reauthorize(ctx context.Context, req *Request, rejected string, resp *Response) (*Response, error) {
	if req.Retried() {
		return nil, c.expire(ctx, req, parseDetail(resp.Body), nil)
	}
	req.markRetried()

	pair, err := c.refresher.Refresh(ctx, rejected)
	if err != nil {
		// The caller gave up while waiting; the shared renewal may still succeed
		// for others, so the store is left alone.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, networkError(req, ctxErr)
		}
		return nil, c.expire(ctx, req, parseDetail(resp.Body), err)
	}

	c.metrics.observeReplay()
	c.logger.Debug("replaying request after refresh", "method", req.Method, "path", req.Path, "request_id", req.ID())
	return c.send(ctx, req, pair.Access)
}

// expire purges the stored credentials and reports SessionExpired.
func (c *Client) expire(ctx context.Context, req *Request, detail string, cause error) error {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error("failed to clear credentials", "error", err)
	}
	c.purgeCache()
	c.metrics.observeSessionExpired()

	apiErr := &driven.APIError{
		Kind:       driven.KindSessionExpired,
		StatusCode: http.StatusUnauthorized,
		Detail:     detail,
		Method:     req.Method,
		Path:       req.Path,
		Err:        cause,
	}
	c.logger.Info("session expired", "method", req.Method, "path", req.Path, "request_id", req.ID(), "error", cause)

	if c.opts.OnSessionExpired != nil {
		c.opts.OnSessionExpired(apiErr)
	}
	return apiErr
}

// attempt performs one HTTP round trip under the per-attempt deadline and reads
// the whole body. Only transport failures are returned as errors.
func (c *Client) attempt(ctx context.Context, req *Request, access string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	httpReq, err := req.build(ctx, c.baseURL, access)
	if err != nil {
		return nil, &driven.APIError{Kind: driven.KindValidation, Method: req.Method, Path: req.Path, Err: err}
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observeAttempt(req.Method, outcomeNetworkError, time.Since(start))
		c.logger.Warn("api request failed", "method", req.Method, "path", req.Path, "request_id", req.ID(), "error", err)
		return nil, networkError(req, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observeAttempt(req.Method, outcomeNetworkError, elapsed)
		return nil, networkError(req, fmt.Errorf("reading response body: %w", err))
	}

	c.metrics.observeAttempt(req.Method, outcomeFor(httpResp.StatusCode), elapsed)
	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"request_id", req.ID(),
		"retried", req.Retried(),
		"from_cache", httpResp.Header.Get(httpcache.XFromCache) != "",
		"duration", elapsed,
	)

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

// classify maps a non-2xx response to the error taxonomy. 401 on an anonymous
// request (bad login, invalid refresh token) is a validation error.
func classify(req *Request, resp *Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &driven.APIError{
			Kind:       driven.KindValidation,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(resp.Body),
			Method:     req.Method,
			Path:       req.Path,
		}
	default:
		return &driven.APIError{
			Kind:       driven.KindServer,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(resp.Body),
			Method:     req.Method,
			Path:       req.Path,
		}
	}
}

func networkError(req *Request, err error) error {
	return &driven.APIError{Kind: driven.KindNetwork, Method: req.Method, Path: req.Path, Err: err}
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return outcomeUnauthorized
	case status >= 200 && status < 300:
		return outcomeOK
	case status >= 400 && status < 500:
		return outcomeClientError
	default:
		return outcomeServerError
	}
}

// parseDetail extracts the FastAPI "detail" field. A string detail is returned
// as-is; a validation error list is flattened to one "loc: msg" line per entry.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return detail
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		return strings.TrimSpace(string(envelope.Detail))
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		loc := make([]string, 0, len(item.Loc))
		for _, part := range item.Loc {
			loc = append(loc, fmt.Sprint(part))
		}
		if len(loc) == 0 {
			lines = append(lines, item.Msg)
			continue
		}
		lines = append(lines, strings.Join(loc, ".")+": "+item.Msg)
	}
	return strings.Join(lines, "\n")
}
