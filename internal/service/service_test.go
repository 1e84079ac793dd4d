package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/catalog"
	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	"github.com/listenupapp/bookclub-server/internal/id"
	"github.com/listenupapp/bookclub-server/internal/idp"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/store/sqlite"
	"github.com/listenupapp/bookclub-server/internal/validation"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type notification struct {
	topics  []string
	payload string
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []notification
}

func (p *recordingPublisher) Publish(_ context.Context, topics []string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, notification{topics: topics, payload: string(payload)})
	return nil
}

func (p *recordingPublisher) last() notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return notification{}
	}
	return p.sent[len(p.sent)-1]
}

type fakeSyncer struct {
	calls []idp.Resource
	err   error
}

func (s *fakeSyncer) Create(_ context.Context, res idp.Resource, _ *domain.User, _ idp.CreateOptions) error {
	s.calls = append(s.calls, res)
	return s.err
}

type fakeCatalog struct {
	entries map[string]catalog.Metadata
	err     error
}

func (c *fakeCatalog) Lookup(_ context.Context, ref string) (*catalog.Metadata, error) {
	if c.err != nil {
		return nil, c.err
	}
	meta, ok := c.entries[ref]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &meta, nil
}

type testEnv struct {
	store     *sqlite.Store
	publisher *recordingPublisher
	clock     *clock.Fixed
	deps      Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	env := &testEnv{
		store:     s,
		publisher: &recordingPublisher{},
		clock:     clock.NewFixed(baseTime),
	}
	env.deps = Deps{
		Store:     s,
		Publisher: env.publisher,
		Topics:    notify.NewTopics("http://localhost"),
		Validator: validation.New(),
		Clock:     env.clock,
		Logger:    logger,
	}
	return env
}

func (e *testEnv) user(t *testing.T, email string, admin bool) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FirstName: "Test", LastName: "User", Admin: admin}
	u.ID = id.MustResourceID()
	u.InitTimestamps(baseTime)
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) book(t *testing.T, title string) *domain.Book {
	t.Helper()
	b := &domain.Book{
		Book:      "https://openlibrary.org/books/OL28346544M.json",
		Condition: domain.UsedCondition,
		Title:     title,
	}
	b.ID = id.MustResourceID()
	b.InitTimestamps(baseTime)
	require.NoError(t, e.store.CreateBook(context.Background(), b))
	return b
}
