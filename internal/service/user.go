package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/bookclub-server/internal/auth"
	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/id"
	"github.com/listenupapp/bookclub-server/internal/store"
)

// UserService provisions and lists local accounts.
type UserService struct {
	store  store.UserStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(users store.UserStore, clk clock.Clock, logger *slog.Logger) *UserService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: users, clock: clk, logger: logger}
}

// Provision maps a login to a local user, creating the user on first login.
// Names are refreshed from claims on every call; the admin flag is never
// taken from claims.
func (s *UserService) Provision(ctx context.Context, email string, claims map[string]string) (*domain.User, error) {
	firstName, hasFirst := claims[auth.ClaimGivenName]
	lastName, hasLast := claims[auth.ClaimFamilyName]
	if email == "" || !hasFirst || !hasLast {
		return nil, domainerrors.IdentityUnresolved(msgClaimsMissing)
	}

	now := s.clock.Now()

	user, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return s.refresh(ctx, user, firstName, lastName, now)
	case !store.IsNotFound(err):
		return nil, fromStore(err, "user")
	}

	userID, err := id.NewResourceID()
	if err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}
	user = &domain.User{
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		LastLoginAt: &now,
	}
	user.ID = userID
	user.InitTimestamps(now)

	if err := s.store.CreateUser(ctx, user); err != nil {
		if !store.IsAlreadyExists(err) {
			return nil, fromStore(err, "user")
		}
		// A concurrent first login won the insert.
		existing, getErr := s.store.GetUserByEmail(ctx, email)
		if getErr != nil {
			return nil, fromStore(getErr, "user")
		}
		return s.refresh(ctx, existing, firstName, lastName, now)
	}

	s.logger.Info("user provisioned", "user_id", user.ID, "email", email)
	return user, nil
}

func (s *UserService) refresh(ctx context.Context, user *domain.User, firstName, lastName string, now time.Time) (*domain.User, error) {
	user.FirstName = firstName
	user.LastName = lastName
	user.LastLoginAt = &now
	user.Touch(now)
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// List returns users whose full name matches filter.Name.
func (s *UserService) List(ctx context.Context, filter store.UserFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.User], error) {
	page, err := s.store.ListUsers(ctx, filter, params)
	if err != nil {
		return nil, fromStore(err, "users")
	}
	return page, nil
}
