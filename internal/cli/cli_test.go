package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/id"
	"github.com/listenupapp/bookclub-server/internal/store/sqlite"
)

type fixture struct {
	dbPath string
	store  *sqlite.Store
	user   *domain.User
	book   *domain.Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "cli.db")
	st, err := sqlite.Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	user := &domain.User{Email: "reader@example.com", FirstName: "Ann", LastName: "Reader"}
	user.ID = id.MustResourceID()
	user.InitTimestamps(now)
	require.NoError(t, st.CreateUser(context.Background(), user))

	book := &domain.Book{Book: "https://openlibrary.org/books/OL1M.json", Condition: domain.NewCondition, Title: "Dune"}
	book.ID = id.MustResourceID()
	book.InitTimestamps(now)
	require.NoError(t, st.CreateBook(context.Background(), book))

	return &fixture{dbPath: dbPath, store: st, user: user, book: book}
}

func (f *fixture) review(t *testing.T, published string) {
	t.Helper()
	at, err := time.Parse(time.DateOnly, published)
	require.NoError(t, err)

	r := &domain.Review{BookID: f.book.ID, UserID: f.user.ID, PublishedAt: at, Rating: 3, Body: "ok"}
	r.ID = id.MustResourceID()
	r.InitTimestamps(at)
	require.NoError(t, f.store.CreateReview(context.Background(), r))
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--db", f.dbPath,
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--log-level", "error",
	}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bookclubctl", cmd.Use)

	for _, name := range []string{"most-reviewed", "update-book-slugs", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestMostReviewedFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"most-reviewed"})
	require.NoError(t, err)

	month := sub.Flags().Lookup("month")
	require.NotNil(t, month)
	assert.Equal(t, "m", month.Shorthand)
	assert.Equal(t, "false", month.DefValue)
}

func TestMostReviewed(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "most-reviewed")
	require.NoError(t, err)
	assert.Equal(t, "No reviews found.\n", out)

	f.review(t, "2024-01-02")
	f.review(t, "2024-01-02")
	f.review(t, "2024-01-15")
	f.review(t, "2024-02-01")
	f.review(t, "2024-02-01")
	f.review(t, "2024-03-10")

	t.Run("by day, ties go to the latest day", func(t *testing.T) {
		out, err := f.run(t, "most-reviewed")
		require.NoError(t, err)
		assert.Equal(t, "The day with the most reviews (2) is: 2024-02-01\n", out)
	})

	t.Run("by month", func(t *testing.T) {
		out, err := f.run(t, "most-reviewed", "-m")
		require.NoError(t, err)
		assert.Equal(t, "The month with the most reviews (3) is: 2024-01\n", out)
	})
}

func TestUpdateBookSlugs(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "update-book-slugs")
	require.NoError(t, err)
	assert.Equal(t, "Updated slug for book: Dune\nBook slugs have been updated.\n", out)

	book, err := f.store.GetBook(context.Background(), f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, "dune", book.Slug)

	out, err = f.run(t, "update-book-slugs")
	require.NoError(t, err)
	assert.Equal(t, "Book slugs have been updated.\n", out)
}

func TestMigrate(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "is at schema version")
}

func TestUnknownArgs(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "most-reviewed", "extra")
	assert.Error(t, err)
}
