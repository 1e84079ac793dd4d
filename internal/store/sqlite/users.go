package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/store"
)

const usersTable = "users"

// userRow mirrors the users table.
type userRow struct {
	ID          string         `db:"id"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
	Email       string         `db:"email"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Admin       int            `db:"admin"`
	LastLoginAt sql.NullString `db:"last_login_at"`
}

func (r *userRow) toDomain() (*domain.User, error) {
	u := &domain.User{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Admin:     r.Admin != 0,
	}
	u.ID = r.ID

	var err error
	if u.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseNullableTime(r.LastLoginAt); err != nil {
		return nil, err
	}
	return u, nil
}

func userRecord(u *domain.User) goqu.Record {
	return goqu.Record{
		"id":            u.ID,
		"created_at":    formatTime(u.CreatedAt),
		"updated_at":    formatTime(u.UpdatedAt),
		"email":         strings.TrimSpace(u.Email),
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"admin":         boolToInt(u.Admin),
		"last_login_at": nullTimeString(u.LastLoginAt),
	}
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the id or email is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.exec(ctx, dialect.Insert(usersTable).Rows(userRecord(user)).Prepared(true), false)
}

// UpdateUser performs a full row update on an existing user.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	rec := userRecord(user)
	delete(rec, "id")
	delete(rec, "created_at")
	return s.exec(ctx, dialect.Update(usersTable).Set(rec).Where(goqu.C("id").Eq(user.ID)).Prepared(true), true)
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := s.get(ctx, &row, dialect.From(usersTable).Where(goqu.C("id").Eq(id))); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// GetUserByEmail retrieves a user by exact email match.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	ds := dialect.From(usersTable).Where(goqu.C("email").Eq(strings.TrimSpace(email)))
	if err := s.get(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toDomain()
}

// ListUsers returns a page of users. The name filter matches the
// "First LAST" display form; SQLite LIKE ignores ASCII case.
func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter, params store.PaginationParams) (*store.PaginatedResult[*domain.User], error) {
	ds := dialect.From(usersTable)
	if filter.Name != "" {
		ds = ds.Where(goqu.L("first_name || ' ' || last_name").Like("%" + filter.Name + "%"))
	}

	ds, limit, err := page(ds, params)
	if err != nil {
		return nil, err
	}

	var rows []userRow
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, err
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return paginate(users, limit, func(u *domain.User) string { return u.ID }), nil
}
