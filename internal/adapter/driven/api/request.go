package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request describes one logical API call. A Request is prepared once and may be
// transmitted at most twice: the original attempt and a single replay after a
// credential refresh. The retried flag is set by the pipeline only.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil. Mutually exclusive with Form.
	Body any
	// Form is sent as application/x-www-form-urlencoded when non-nil.
	Form   url.Values
	Header http.Header
	// Anonymous requests never carry a bearer token and never trigger a
	// refresh; a 401 is classified like any other 4xx.
	Anonymous bool

	id          string
	prepared    bool
	retried     bool
	payload     []byte
	contentType string
}

// NewRequest creates a Request for the given method and path.
func NewRequest(method, path string) *Request {
	return &Request{Method: method, Path: path}
}

// Retried returns true once the request has been replayed after a refresh.
func (r *Request) Retried() bool {
	return r.retried
}

// ID returns the request ID sent as X-Request-ID. The original attempt and its
// replay share one ID. Empty until the request has been sent.
func (r *Request) ID() string {
	return r.id
}

// markRetried records that the single permitted replay is being used.
func (r *Request) markRetried() {
	r.retried = true
}

// prepare encodes the body once so a replay transmits identical bytes.
func (r *Request) prepare() error {
	if r.prepared {
		return nil
	}
	if r.Body != nil && r.Form != nil {
		return fmt.Errorf("%s %s: request has both JSON body and form body", r.Method, r.Path)
	}

	switch {
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encoding request body for %s %s: %w", r.Method, r.Path, err)
		}
		r.payload = data
		r.contentType = "application/json"
	case r.Form != nil:
		r.payload = []byte(r.Form.Encode())
		r.contentType = "application/x-www-form-urlencoded"
	}

	r.id = uuid.NewString()
	r.prepared = true
	return nil
}

// build creates the http.Request for one attempt. access is attached as a
// bearer token when non-empty.
func (r *Request) build(ctx context.Context, baseURL *url.URL, access string) (*http.Request, error) {
	u := baseURL.JoinPath(strings.TrimPrefix(r.Path, "/"))
	// JoinPath drops the trailing slash the backend uses on collection routes.
	if strings.HasSuffix(r.Path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var body *bytes.Reader
	if r.payload != nil {
		body = bytes.NewReader(r.payload)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, r.Method, u.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", r.Method, r.Path, err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", r.id)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	return req, nil
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}
