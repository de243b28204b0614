// Package auth verifies bearer tokens and enforces role rules.
package auth

import "context"

// Principal is the verified caller.
type Principal struct {
	Email string
}

// Verifier turns a bearer token into a Principal. Any failure is reported
// as an error wrapping apperr.ErrUnauthorized.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}
