package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/clock"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/idp"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/pipeline"
)

var (
	t0     = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	topics = notify.NewTopics("http://localhost")
)

type memStore struct {
	mu      sync.Mutex
	reviews map[string]domain.Review
	calls   int
	err     error
}

func newMemStore() *memStore {
	return &memStore{reviews: make(map[string]domain.Review)}
}

func (s *memStore) Save(_ context.Context, r *domain.Review, _ pipeline.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.reviews[r.ID] = *r
	return nil
}

func (s *memStore) Remove(_ context.Context, r *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	delete(s.reviews, r.ID)
	return nil
}

type published struct {
	topics  []string
	payload string
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topics []string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topics: topics, payload: string(payload)})
	return nil
}

type fakeHandler struct {
	calls []idp.Resource
	owner *domain.User
	uri   string
	err   error
}

func (h *fakeHandler) Create(_ context.Context, res idp.Resource, owner *domain.User, opts idp.CreateOptions) error {
	h.calls = append(h.calls, res)
	h.owner = owner
	h.uri = opts.URI(res)
	return h.err
}

type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	handler   *fakeHandler
	clock     *clock.Fixed
	pipeline  *pipeline.Pipeline[*domain.Review]
}

func newFixture(t *testing.T, opts ...pipeline.Option[*domain.Review]) *fixture {
	t.Helper()

	f := &fixture{
		store:     newMemStore(),
		publisher: &recordingPublisher{},
		handler:   &fakeHandler{},
		clock:     clock.NewFixed(t0),
	}

	ids := 0
	base := []pipeline.Option[*domain.Review]{
		pipeline.WithClock[*domain.Review](f.clock),
		pipeline.WithIDGenerator[*domain.Review](func() (string, error) {
			ids++
			return "r-" + string(rune('0'+ids)), nil
		}),
		pipeline.WithOwnership[*domain.Review](func(actor *domain.User, r *domain.Review, op pipeline.Op[*domain.Review], now time.Time) {
			if op.Kind == pipeline.Replace {
				r.UserID = op.Previous.UserID
				r.PublishedAt = op.Previous.PublishedAt
				return
			}
			r.UserID = actor.ID
			r.PublishedAt = now
		}),
		pipeline.WithSync(pipeline.Sync[*domain.Review]{
			Handler:  f.handler,
			Enrolled: idp.EnrolledInAuthority,
			Describe: func(r *domain.Review) idp.Resource {
				return idp.Resource{ID: r.ID, Type: domain.ReviewType, Vars: map[string]string{"bookId": r.BookID}}
			},
			Options: idp.CreateOptions{OperationLabel: "/books/{bookId}/reviews/{id}{._format}"},
		}),
	}

	f.pipeline = pipeline.New("review", f.store,
		pipeline.Addressing[*domain.Review]{Topics: topics.Review, Type: domain.ReviewType},
		f.publisher,
		append(base, opts...)...,
	)
	return f
}

func enrolledUser() *domain.User {
	return &domain.User{Syncable: domain.Syncable{ID: "u-john"}, Email: "john.doe@example.com", FirstName: "John", LastName: "Doe"}
}

func otherUser() *domain.User {
	return &domain.User{Syncable: domain.Syncable{ID: "u-jane"}, Email: "jane.doe@example.com", FirstName: "Jane", LastName: "Doe"}
}

func TestSave_CreateSetsOwnerControlledFields(t *testing.T) {
	f := newFixture(t)
	actor := otherUser()

	candidate := &domain.Review{
		BookID:      "b-1",
		UserID:      "u-forged",
		PublishedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
		Rating:      4,
		Body:        "Great read",
	}

	result, err := f.pipeline.Save(context.Background(), actor, candidate, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)

	assert.Equal(t, "r-1", result.Resource.ID)
	assert.Equal(t, actor.ID, result.Resource.UserID)
	assert.Equal(t, t0, result.Resource.PublishedAt)
	assert.Equal(t, t0, result.Resource.CreatedAt)
	assert.Equal(t, t0, result.Resource.UpdatedAt)
	assert.Equal(t, pipeline.Done, result.State)
	assert.Equal(t, pipeline.SyncSkipped, result.Sync)
	assert.True(t, result.Published)
	assert.Equal(t, pipeline.Trail{
		pipeline.Start,
		pipeline.FieldsResolved,
		pipeline.Persisted,
		pipeline.SyncSkipped,
		pipeline.NotificationSent,
		pipeline.Done,
	}, result.Trail)

	stored := f.store.reviews["r-1"]
	assert.Equal(t, actor.ID, stored.UserID)
}

func TestSave_ReplacePreservesOwnerControlledFields(t *testing.T) {
	f := newFixture(t)
	owner := otherUser()

	created, err := f.pipeline.Save(context.Background(), owner,
		&domain.Review{BookID: "b-1", Rating: 3, Body: "ok"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)
	previous := *created.Resource

	f.clock.Advance(time.Hour)
	admin := &domain.User{Syncable: domain.Syncable{ID: "u-admin"}, Email: "admin@example.com", Admin: true}
	replacement := &domain.Review{
		BookID:      "b-1",
		UserID:      admin.ID,
		PublishedAt: t0.Add(48 * time.Hour),
		Rating:      5,
		Body:        "better on second reading",
	}

	result, err := f.pipeline.Save(context.Background(), admin, replacement, pipeline.Replacement(&previous))
	require.NoError(t, err)

	assert.Equal(t, previous.ID, result.Resource.ID)
	assert.Equal(t, owner.ID, result.Resource.UserID)
	assert.Equal(t, t0, result.Resource.PublishedAt)
	assert.Equal(t, t0, result.Resource.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), result.Resource.UpdatedAt)
	assert.Equal(t, 5, result.Resource.Rating)
	assert.Equal(t, pipeline.SyncSkipped, result.Sync, "replacement never syncs")
}

func TestSave_SyncsEnrolledOwnersOnCreate(t *testing.T) {
	f := newFixture(t)
	actor := enrolledUser()

	result, err := f.pipeline.Save(context.Background(), actor,
		&domain.Review{BookID: "b-42", Rating: 5, Body: "classic"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)

	assert.Equal(t, pipeline.Synced, result.Sync)
	require.Len(t, f.handler.calls, 1)
	assert.Equal(t, domain.ReviewType, f.handler.calls[0].Type)
	assert.Equal(t, actor, f.handler.owner)
	assert.Equal(t, "/books/b-42/reviews/r-1", f.handler.uri)
	assert.Len(t, f.publisher.sent, 1)
}

func TestSave_SkipsSyncForOtherOwners(t *testing.T) {
	owners := map[string]*domain.User{
		"other address": otherUser(),
		"case variant": {
			Syncable:  domain.Syncable{ID: "u-john2"},
			Email:     "John.Doe@example.com",
			FirstName: "John",
			LastName:  "Doe",
		},
		"subdomain": {
			Syncable: domain.Syncable{ID: "u-chuck2"},
			Email:    "chuck.norris@mail.example.com",
		},
	}

	for name, owner := range owners {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.pipeline.Save(context.Background(), owner,
				&domain.Review{BookID: "b-1", Rating: 1, Body: "meh"}, pipeline.Creation[*domain.Review]())
			require.NoError(t, err)

			assert.Equal(t, pipeline.SyncSkipped, result.Sync)
			assert.Empty(t, f.handler.calls)
		})
	}
}

func TestSave_EnrolledOwnerSyncsOnCreateOnly(t *testing.T) {
	f := newFixture(t)
	actor := enrolledUser()

	created, err := f.pipeline.Save(context.Background(), actor,
		&domain.Review{BookID: "b-1", Rating: 3, Body: "ok"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)
	require.Len(t, f.handler.calls, 1)
	previous := *created.Resource

	replaced, err := f.pipeline.Save(context.Background(), actor,
		&domain.Review{BookID: "b-1", Rating: 4, Body: "better"}, pipeline.Replacement(&previous))
	require.NoError(t, err)
	assert.Equal(t, pipeline.SyncSkipped, replaced.Sync)
	assert.Len(t, f.handler.calls, 1)

	deleted, err := f.pipeline.Delete(context.Background(), actor, replaced.Resource)
	require.NoError(t, err)
	assert.Equal(t, pipeline.SyncSkipped, deleted.Sync)
	assert.Len(t, f.handler.calls, 1)
	assert.Len(t, f.publisher.sent, 3)
}

func TestSave_ReplaceWithoutPreviousSnapshot(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.Save(context.Background(), otherUser(),
		&domain.Review{BookID: "b-1", Rating: 4, Body: "x"}, pipeline.Op[*domain.Review]{Kind: pipeline.Replace})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing previous snapshot")
	assert.Zero(t, f.store.calls)
}

func TestSave_SyncFailureKeepsLocalWrite(t *testing.T) {
	f := newFixture(t)
	f.handler.err = errors.New("connection refused")

	result, err := f.pipeline.Save(context.Background(), enrolledUser(),
		&domain.Review{BookID: "b-1", Rating: 4, Body: "good"}, pipeline.Creation[*domain.Review]())

	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrExternalSyncFailed))

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, map[string]string{"id": "r-1"}, domainErr.Details)

	require.NotNil(t, result)
	assert.Equal(t, pipeline.SyncFailed, result.State)
	assert.Equal(t, pipeline.SyncFailed, result.Sync)
	assert.False(t, result.Published)

	assert.Contains(t, f.store.reviews, "r-1", "local write stands")
	assert.Empty(t, f.publisher.sent, "no notification after a failed sync")
}

func TestSave_PublishFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("hub down")

	result, err := f.pipeline.Save(context.Background(), otherUser(),
		&domain.Review{BookID: "b-1", Rating: 2, Body: "fine"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)

	assert.Equal(t, pipeline.Done, result.State)
	assert.False(t, result.Published)
	assert.NotContains(t, result.Trail, pipeline.NotificationSent)
	assert.Contains(t, f.store.reviews, "r-1")
}

func TestSave_PublishesDocumentToReviewTopics(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Save(context.Background(), otherUser(),
		&domain.Review{BookID: "b-7", Rating: 2, Body: "fine"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)

	require.Len(t, f.publisher.sent, 1)
	sent := f.publisher.sent[0]
	assert.Equal(t, []string{
		"http://localhost/admin/reviews/r-1",
		"http://localhost/admin/reviews",
		"http://localhost/books/b-7/reviews/r-1",
		"http://localhost/books/b-7/reviews",
	}, sent.topics)
	assert.Contains(t, sent.payload, `"@id":"/admin/reviews/r-1"`)
	assert.Contains(t, sent.payload, `"@type":"https://schema.org/Review"`)
	assert.Contains(t, sent.payload, `"body":"fine"`)
}

func TestSave_RejectsMissingActor(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.Save(context.Background(), nil,
		&domain.Review{BookID: "b-1", Rating: 2, Body: "x"}, pipeline.Creation[*domain.Review]())

	assert.Nil(t, result)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	assert.Equal(t, "Full authentication is required to access this resource.", err.Error())
	assert.Zero(t, f.store.calls)
	assert.Empty(t, f.publisher.sent)
}

func TestSave_GuardBlocksPersistence(t *testing.T) {
	var seen *domain.Review
	f := newFixture(t, pipeline.WithGuard[*domain.Review](func(_ context.Context, _ *domain.User, r *domain.Review, _ pipeline.Op[*domain.Review]) error {
		seen = r
		return domainerrors.Validation("not allowed")
	}))
	actor := otherUser()

	result, err := f.pipeline.Save(context.Background(), actor,
		&domain.Review{BookID: "b-1", Rating: 2, Body: "x"}, pipeline.Creation[*domain.Review]())

	assert.Nil(t, result)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
	require.NotNil(t, seen)
	assert.Equal(t, actor.ID, seen.UserID, "guard runs after ownership resolution")
	assert.Zero(t, f.store.calls)
}

func TestSave_StoreErrorIsWrapped(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("disk full")

	result, err := f.pipeline.Save(context.Background(), enrolledUser(),
		&domain.Review{BookID: "b-1", Rating: 2, Body: "x"}, pipeline.Creation[*domain.Review]())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, f.store.err)
	assert.Empty(t, f.handler.calls, "no sync without a local write")
	assert.Empty(t, f.publisher.sent)
}

func TestSave_CancelledAfterPersistStillPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var publishCtxErr error
	f := newFixture(t)
	f.pipeline = pipeline.New("review",
		pipeline.StoreFuncs[*domain.Review]{
			Create: func(_ context.Context, r *domain.Review) error {
				cancel()
				return nil
			},
		},
		pipeline.Addressing[*domain.Review]{Topics: topics.Review, Type: domain.ReviewType},
		notify.PublisherFunc(func(ctx context.Context, _ []string, _ []byte) error {
			publishCtxErr = ctx.Err()
			return nil
		}),
		pipeline.WithClock[*domain.Review](f.clock),
	)

	result, err := f.pipeline.Save(ctx, otherUser(),
		&domain.Review{BookID: "b-1", Rating: 2, Body: "x"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)

	assert.True(t, result.Published)
	assert.NoError(t, publishCtxErr)
	assert.NotEmpty(t, result.Resource.ID)
}

func TestDelete_PublishesMarkerToPriorTopics(t *testing.T) {
	f := newFixture(t)

	created, err := f.pipeline.Save(context.Background(), otherUser(),
		&domain.Review{BookID: "b-3", Rating: 2, Body: "x"}, pipeline.Creation[*domain.Review]())
	require.NoError(t, err)
	f.publisher.sent = nil

	result, err := f.pipeline.Delete(context.Background(), otherUser(), created.Resource)
	require.NoError(t, err)

	assert.Equal(t, pipeline.Done, result.State)
	assert.Contains(t, result.Trail, pipeline.NotificationSent)
	assert.NotContains(t, f.store.reviews, "r-1")
	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, topics.Review(created.Resource), f.publisher.sent[0].topics)
	assert.JSONEq(t, `{"@id":"/admin/reviews/r-1","@type":"https://schema.org/Review"}`, f.publisher.sent[0].payload)
}

func TestDelete_RejectsMissingActor(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Delete(context.Background(), nil, &domain.Review{Syncable: domain.Syncable{ID: "r-9"}})

	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	assert.Zero(t, f.store.calls)
}

func TestStoreFuncs_DispatchesByOperation(t *testing.T) {
	var created, updated, deleted string
	s := pipeline.StoreFuncs[*domain.Review]{
		Create: func(_ context.Context, r *domain.Review) error { created = r.ID; return nil },
		Update: func(_ context.Context, r *domain.Review) error { updated = r.ID; return nil },
		Delete: func(_ context.Context, id string) error { deleted = id; return nil },
	}
	r := &domain.Review{Syncable: domain.Syncable{ID: "r-1"}}

	require.NoError(t, s.Save(context.Background(), r, pipeline.Create))
	require.NoError(t, s.Save(context.Background(), r, pipeline.Replace))
	require.NoError(t, s.Remove(context.Background(), r))

	assert.Equal(t, "r-1", created)
	assert.Equal(t, "r-1", updated)
	assert.Equal(t, "r-1", deleted)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "sync_failed", pipeline.SyncFailed.String())
	assert.Equal(t, "done", pipeline.Done.String())
	assert.Equal(t, "notification_sent", pipeline.NotificationSent.String())
	assert.Equal(t, pipeline.Start, pipeline.Trail(nil).Last())
	assert.Equal(t, "replace", pipeline.Replace.String())
}
