// Package auth resolves bearer tokens to caller identities
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned for tokens that cannot be verified
var ErrInvalidToken = errors.New("invalid or expired token")

// Principal is an authenticated caller
type Principal struct {
	UID   string
	Email string
}

// Authenticator verifies a bearer token
type Authenticator interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller identity, or nil for anonymous calls
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// StaticAuthenticator accepts a fixed set of tokens, for local development and tests
type StaticAuthenticator struct {
	tokens map[string]string
}

// NewStaticAuthenticator maps each token to a user id
func NewStaticAuthenticator(tokens map[string]string) *StaticAuthenticator {
	return &StaticAuthenticator{tokens: tokens}
}

func (a *StaticAuthenticator) Verify(ctx context.Context, token string) (*Principal, error) {
	uid, ok := a.tokens[token]
	if !ok || uid == "" {
		return nil, ErrInvalidToken
	}
	return &Principal{UID: uid}, nil
}
