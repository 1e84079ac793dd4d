package idp

import (
	"errors"
	"fmt"
)

// Sentinel errors for identity provider operations.
var (
	ErrDisabled     = errors.New("idp: sync disabled")
	ErrUnauthorized = errors.New("idp: client credentials rejected")
	ErrConflict     = errors.New("idp: resource already registered")
	ErrRateLimited  = errors.New("idp: rate limited by server")
	ErrServer       = errors.New("idp: server error")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // "token" or "register"
	URI string // Resource URI, if applicable
	Err error
}

func (e *Error) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("idp %s [%s]: %v", e.Op, e.URI, e.Err)
	}
	return fmt.Sprintf("idp %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
