package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/store"
)

func TestReviewService_CreateSetsAuthorAndPublicationTime(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	book := env.book(t, "Hyperion")

	review, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 5, Body: "A masterpiece."})
	require.NoError(t, err)

	assert.Equal(t, author.ID, review.UserID)
	assert.Equal(t, baseTime, review.PublishedAt)

	stored, err := env.store.GetReview(context.Background(), review.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, stored.UserID)
	assert.True(t, stored.PublishedAt.Equal(baseTime))

	last := env.publisher.last()
	assert.Contains(t, last.topics, "http://localhost/books/"+book.ID+"/reviews/"+review.ID)
	assert.Contains(t, last.payload, `"@type":"https://schema.org/Review"`)
}

func TestReviewService_CreateValidates(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	book := env.book(t, "Hyperion")

	_, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 6})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details, "rating")
	assert.Contains(t, domainErr.Details, "body")
	assert.Empty(t, env.publisher.sent)
}

func TestReviewService_CreateUnknownBook(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)

	_, err := svc.Create(context.Background(), env.user(t, "a@example.com", false), "missing", ReviewInput{Rating: 3, Body: "x"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestReviewService_CreateRequiresActor(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)

	_, err := svc.Create(context.Background(), nil, "b-1", ReviewInput{Rating: 3, Body: "x"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestReviewService_SyncOnlyForEnrolledAuthors(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{}
	svc := NewReviewService(env.deps, syncer)
	book := env.book(t, "Foundation")

	_, err := svc.Create(context.Background(), env.user(t, "jane.doe@example.com", false), book.ID, ReviewInput{Rating: 3, Body: "ok"})
	require.NoError(t, err)
	assert.Empty(t, syncer.calls)

	review, err := svc.Create(context.Background(), env.user(t, "john.doe@example.com", false), book.ID, ReviewInput{Rating: 4, Body: "good"})
	require.NoError(t, err)
	require.Len(t, syncer.calls, 1)
	assert.Equal(t, review.ID, syncer.calls[0].ID)
	assert.Equal(t, book.ID, syncer.calls[0].Vars["bookId"])
}

func TestReviewService_EnrolledAuthorSyncsOnCreateOnly(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{}
	svc := NewReviewService(env.deps, syncer)
	author := env.user(t, "john.doe@example.com", false)
	book := env.book(t, "Foundation")

	review, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 4, Body: "good"})
	require.NoError(t, err)
	require.Len(t, syncer.calls, 1)

	_, err = svc.Replace(context.Background(), author, book.ID, review.ID, ReviewInput{Rating: 5, Body: "even better"})
	require.NoError(t, err)
	assert.Len(t, syncer.calls, 1, "replacement is not mirrored")

	require.NoError(t, svc.Delete(context.Background(), author, book.ID, review.ID))
	assert.Len(t, syncer.calls, 1, "deletion is not mirrored")
}

func TestReviewService_SyncFailureReturnsSavedReview(t *testing.T) {
	env := newTestEnv(t)
	syncer := &fakeSyncer{err: errors.New("keycloak unavailable")}
	svc := NewReviewService(env.deps, syncer)
	book := env.book(t, "Foundation")

	review, err := svc.Create(context.Background(), env.user(t, "chuck.norris@example.com", false), book.ID, ReviewInput{Rating: 5, Body: "roundhouse"})
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrExternalSyncFailed))
	require.NotNil(t, review)

	_, getErr := env.store.GetReview(context.Background(), review.ID)
	assert.NoError(t, getErr, "local write stands")
	assert.Empty(t, env.publisher.sent)
}

func TestReviewService_ReplaceKeepsOwnerControlledFields(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	book := env.book(t, "Hyperion")

	created, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 2, Body: "meh"})
	require.NoError(t, err)

	env.clock.Advance(24 * time.Hour)
	admin := env.user(t, "admin@example.com", true)
	replaced, err := svc.Replace(context.Background(), admin, "", created.ID, ReviewInput{Rating: 4, Body: "grew on me"})
	require.NoError(t, err)

	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, author.ID, replaced.UserID)
	assert.True(t, replaced.PublishedAt.Equal(baseTime))
	assert.Equal(t, 4, replaced.Rating)
	assert.Equal(t, book.ID, replaced.BookID)
}

func TestReviewService_OnlyAuthorOrAdminMayEdit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	stranger := env.user(t, "mallory@example.com", false)
	book := env.book(t, "Hyperion")

	created, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 2, Body: "meh"})
	require.NoError(t, err)

	_, err = svc.Replace(context.Background(), stranger, book.ID, created.ID, ReviewInput{Rating: 0, Body: "vandalized"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	err = svc.Delete(context.Background(), stranger, book.ID, created.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))

	_, err = svc.Replace(context.Background(), author, "other-book", created.ID, ReviewInput{Rating: 3, Body: "x"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	require.NoError(t, svc.Delete(context.Background(), author, book.ID, created.ID))
	_, err = svc.Get(context.Background(), "", created.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestReviewService_DeletePublishesMarker(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	book := env.book(t, "Hyperion")

	created, err := svc.Create(context.Background(), author, book.ID, ReviewInput{Rating: 2, Body: "meh"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), author, "", created.ID))

	last := env.publisher.last()
	assert.Equal(t, []string{
		"http://localhost/admin/reviews/" + created.ID,
		"http://localhost/admin/reviews",
		"http://localhost/books/" + book.ID + "/reviews/" + created.ID,
		"http://localhost/books/" + book.ID + "/reviews",
	}, last.topics)
	assert.JSONEq(t, `{"@id":"/admin/reviews/`+created.ID+`","@type":"https://schema.org/Review"}`, last.payload)
}

func TestReviewService_List(t *testing.T) {
	env := newTestEnv(t)
	svc := NewReviewService(env.deps, nil)
	author := env.user(t, "jane.doe@example.com", false)
	hyperion := env.book(t, "Hyperion")
	foundation := env.book(t, "Foundation")

	for _, rating := range []int{1, 5, 5} {
		_, err := svc.Create(context.Background(), author, hyperion.ID, ReviewInput{Rating: rating, Body: "x"})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), author, foundation.ID, ReviewInput{Rating: 5, Body: "x"})
	require.NoError(t, err)

	five := 5
	page, err := svc.List(context.Background(), store.ReviewFilter{BookID: hyperion.ID, Rating: &five}, store.DefaultPaginationParams())
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	_, err = svc.List(context.Background(), store.ReviewFilter{BookID: "missing"}, store.DefaultPaginationParams())
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}
