// Package sqlite implements the BookClub Resource Store on SQLite.
//
// Schema changes live in migrations/ and are applied by goose on Open.
// Queries are built with goqu and scanned with sqlx into private row types.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"

	"github.com/listenupapp/bookclub-server/internal/store"

	_ "modernc.org/sqlite"
)

// dialect builds prepared statements for SQLite.
var dialect = goqu.Dialect("sqlite3")

// Store provides SQLite-backed persistence for the BookClub server.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	return OpenContext(context.Background(), path, logger)
}

// OpenContext is Open with a context for the migration step.
func OpenContext(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:     sqlx.NewDb(db, "sqlite3"),
		logger: logger,
	}, nil
}

// OpenDB opens the database file and applies connection pragmas without
// running migrations.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return db, nil
}

// connectionPragmas run on every pooled connection.
var connectionPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connectionPragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// get runs a single-row query built by goqu and maps sql.ErrNoRows to
// store.ErrNotFound.
func (s *Store) get(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

// selectAll runs a multi-row query built by goqu.
func (s *Store) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

// exec runs an insert, update or delete. UNIQUE violations become
// store.ErrAlreadyExists and statements that touch no row become
// store.ErrNotFound when requireRow is set.
func (s *Store) exec(ctx context.Context, b sqlBuilder, requireRow bool) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithCause(err)
		}
		return err
	}
	if !requireRow {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// page applies keyset pagination on id and returns the limit used.
func page(ds *goqu.SelectDataset, params store.PaginationParams) (*goqu.SelectDataset, int, error) {
	params.Validate()
	after, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, 0, store.ErrInvalidInput.WithCause(err)
	}
	if after != "" {
		ds = ds.Where(goqu.C("id").Gt(after))
	}
	// Fetch one extra row to learn whether another page exists.
	return ds.Order(goqu.C("id").Asc()).Limit(uint(params.Limit + 1)), params.Limit, nil
}

// paginate trims the extra row fetched by page and builds the result.
func paginate[T any](items []T, limit int, idOf func(T) string) *store.PaginatedResult[T] {
	result := &store.PaginatedResult[T]{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.HasMore = true
		result.NextCursor = store.EncodeCursor(idOf(result.Items[limit-1]))
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	return result
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// parseNullableTime parses an optional time string.
func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString returns a sql.NullString from an optional string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableString returns a sql.NullString from a *string.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullTimeString returns a sql.NullString from a *time.Time.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
