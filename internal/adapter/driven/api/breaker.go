package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// errServerStatus marks a 5xx response as a breaker failure. The response
// itself is still returned to the pipeline for classification.
var errServerStatus = errors.New("server error status")

// BreakerSettings configures the optional circuit breaker around the transport.
type BreakerSettings struct {
	MaxRequests      uint32        // Requests allowed through while half-open.
	Interval         time.Duration // Closed-state window after which counts reset.
	Timeout          time.Duration // Open-state duration before probing again.
	FailureThreshold float64       // Failure ratio that trips the breaker.
	MinRequests      uint32        // Requests required before the ratio is evaluated.
}

// DefaultBreakerSettings returns the settings used when the breaker is enabled
// without explicit tuning.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// breakerTransport fails fast while the backend is failing. An open breaker
// surfaces as a transport error, i.e. NetworkError; it never retries.
type breakerTransport struct {
	cb   *gobreaker.CircuitBreaker
	next http.RoundTripper
}

func newBreakerTransport(next http.RoundTripper, settings BreakerSettings, logger *slog.Logger) *breakerTransport {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "todopanel-api",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &breakerTransport{cb: cb, next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (any, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})

	if resp, ok := result.(*http.Response); ok && resp != nil {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	return nil, err
}
