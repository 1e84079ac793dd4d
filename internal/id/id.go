// Package id generates identifiers for resources and transient objects.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed NanoID, e.g. "sse-V1StGXR8_Z5jdHi6B-myT".
// Used for short-lived identifiers such as SSE clients and request ids.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewResourceID returns a UUIDv7 for a persisted resource. The time-ordered
// prefix keeps primary key inserts append-only. Resource ids are never reused.
func NewResourceID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return u.String(), nil
}

// MustResourceID is like NewResourceID but panics if generation fails.
func MustResourceID() string {
	id, err := NewResourceID()
	if err != nil {
		panic(fmt.Sprintf("failed to generate resource ID: %v", err))
	}
	return id
}

// IsResourceID reports whether s parses as a UUID.
func IsResourceID(s string) bool {
	return uuid.Validate(s) == nil
}
