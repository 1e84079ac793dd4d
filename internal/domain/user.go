package domain

import (
	"strings"
	"time"
)

// User is a local account mirrored from the identity provider. Email is the
// natural key; names are refreshed from identity claims on every login.
// Admin is managed locally and never taken from claims.
type User struct {
	Syncable
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Admin       bool       `json:"admin"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Name returns the display name, "John DOE".
func (u *User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + strings.ToUpper(u.LastName))
}

// IsAdmin reports whether the user may use admin routes.
func (u *User) IsAdmin() bool {
	return u.Admin
}

// IRI returns the canonical path of the user.
func (u *User) IRI() string {
	return "/admin/users/" + u.ID
}
