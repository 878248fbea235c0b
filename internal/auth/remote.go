package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the circuit breaker in front of the auth service.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// RemoteValidator asks the authentication service whether a token is valid.
// The token is forwarded as a bearer credential; a 2xx answer is valid unless
// its JSON body carries "valid": false or "active": false.
type RemoteValidator struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRemoteValidator returns a validator calling url. A nil client uses
// http.DefaultClient; the request carries the caller's context deadline.
func NewRemoteValidator(url string, client *http.Client, cfg BreakerConfig, logger *zap.Logger) *RemoteValidator {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteValidator{
		url:    url,
		client: client,
		logger: logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "auth-service",
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

// Validate implements TokenValidator.
func (r *RemoteValidator) Validate(ctx context.Context, token string) bool {
	token = StripBearer(token)
	if token == "" {
		return false
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.introspect(ctx, token)
	})
	if err != nil {
		r.logger.Warn("token validation failed", zap.Error(err))
		return false
	}
	valid, _ := res.(bool)
	return valid
}

type introspection struct {
	Valid  *bool `json:"valid"`
	Active *bool `json:"active"`
}

// introspect returns an error only for failures of the auth service itself,
// so rejected tokens do not trip the breaker.
func (r *RemoteValidator) introspect(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return false, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call auth service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("auth service returned %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read auth response: %w", err)
	}
	var out introspection
	if len(body) == 0 || json.Unmarshal(body, &out) != nil {
		return true, nil
	}
	if out.Valid != nil && !*out.Valid {
		return false, nil
	}
	if out.Active != nil && !*out.Active {
		return false, nil
	}
	return true, nil
}
