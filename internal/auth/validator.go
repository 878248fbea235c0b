// Package auth validates bearer tokens. Tokens are opaque to this service:
// validity is decided by the external authentication service, or by a local
// JWT check when that service publishes its signing key.
package auth

import (
	"context"
	"strings"
)

// TokenValidator decides whether a bearer token is authorized. Only a true
// result authorizes a request; failures to reach the authority are false.
type TokenValidator interface {
	Validate(ctx context.Context, token string) bool
}

const bearerPrefix = "bearer "

// StripBearer removes an optional, case-insensitive "Bearer " prefix and
// surrounding whitespace.
func StripBearer(token string) string {
	token = strings.TrimLeft(token, " \t")
	if len(token) >= len(bearerPrefix) && strings.EqualFold(token[:len(bearerPrefix)], bearerPrefix) {
		token = token[len(bearerPrefix):]
	}
	return strings.TrimSpace(token)
}
