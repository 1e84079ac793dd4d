package api

import (
	"context"

	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// userKey is the context key for the acting user.
const userKey ctxKey = "user"

// withUser stores the acting user in ctx.
func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the acting user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

// requireUser returns the acting user or a 401.
func requireUser(ctx context.Context) (*domain.User, error) {
	user := UserFrom(ctx)
	if user == nil {
		return nil, domainerrors.Unauthorized("Full authentication is required to access this resource.")
	}
	return user, nil
}

// requireAdmin returns the acting user if it is an admin.
func requireAdmin(ctx context.Context) (*domain.User, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, domainerrors.Forbidden("Access Denied.")
	}
	return user, nil
}
