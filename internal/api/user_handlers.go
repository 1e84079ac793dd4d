package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Get current user",
		Description: "Returns the user resolved from the bearer token",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListUsers",
		Method:      http.MethodGet,
		Path:        "/admin/users",
		Summary:     "List users",
		Description: "Returns users, optionally filtered by name",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetUser",
		Method:      http.MethodGet,
		Path:        "/admin/users/{id}",
		Summary:     "Get user",
		Description: "Returns a user by ID",
		Tags:        []string{"Admin"},
		Security:    bearer,
	}, s.handleGetUser)
}

// UserResponse contains user data in API responses.
type UserResponse struct {
	ID          string     `json:"id" doc:"User ID"`
	Email       string     `json:"email" doc:"Email address"`
	FirstName   string     `json:"firstName" doc:"Given name"`
	LastName    string     `json:"lastName" doc:"Family name"`
	Name        string     `json:"name" doc:"Display name"`
	Admin       bool       `json:"admin" doc:"Whether the user is an administrator"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" doc:"Last login time"`
	CreatedAt   time.Time  `json:"created_at" doc:"Creation time"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// ListUsersInput contains filters for listing users.
type ListUsersInput struct {
	Name   string `query:"name" doc:"Partial, case-insensitive match on the full name"`
	Limit  int    `query:"limit" default:"30" minimum:"1" maximum:"100" doc:"Items per page"`
	Cursor string `query:"cursor" doc:"Pagination cursor"`
}

// ListUsersResponse contains a page of users.
type ListUsersResponse struct {
	Users      []UserResponse `json:"users" doc:"Users on this page"`
	NextCursor string         `json:"next_cursor,omitempty" doc:"Cursor of the next page"`
	HasMore    bool           `json:"has_more" doc:"Whether more pages exist"`
}

// ListUsersOutput wraps the list users response for Huma.
type ListUsersOutput struct {
	Body ListUsersResponse
}

// GetUserInput addresses a user.
type GetUserInput struct {
	ID string `path:"id" doc:"User ID"`
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUser(user)}, nil
}

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Users.List(ctx, store.UserFilter{Name: input.Name}, store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, err
	}

	resp := make([]UserResponse, len(page.Items))
	for i, u := range page.Items {
		resp[i] = mapUser(u)
	}

	return &ListUsersOutput{Body: ListUsersResponse{
		Users:      resp,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUser(user)}, nil
}

func mapUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Name:        u.Name(),
		Admin:       u.IsAdmin(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
