package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/catalog"
	"github.com/listenupapp/bookclub-server/internal/domain"
	domainerrors "github.com/listenupapp/bookclub-server/internal/errors"
	"github.com/listenupapp/bookclub-server/internal/store"
)

const foundationRef = "https://openlibrary.org/books/OL28346544M.json"

func newCatalog() *fakeCatalog {
	return &fakeCatalog{entries: map[string]catalog.Metadata{
		foundationRef: {Title: "Foundation", Author: "Isaac Asimov"},
		"https://openlibrary.org/books/OL1M.json": {Title: "Hyperion", Author: "Dan Simmons"},
	}}
}

func TestBookService_CreateFillsFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookService(env.deps, newCatalog())
	admin := env.user(t, "admin@example.com", true)

	book, err := svc.Create(context.Background(), admin, BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	require.NoError(t, err)

	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Foundation", book.Title)
	assert.Equal(t, "Isaac Asimov", book.Author)
	assert.Equal(t, "foundation", book.Slug)

	last := env.publisher.last()
	assert.Equal(t, []string{"http://localhost/admin/books/" + book.ID, "http://localhost/books/" + book.ID}, last.topics)
	assert.Contains(t, last.payload, `"@type":["https://schema.org/Book","https://schema.org/Offer"]`)
}

func TestBookService_CreateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookService(env.deps, newCatalog())

	_, err := svc.Create(context.Background(), env.user(t, "jane@example.com", false), BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrForbidden))
	assert.Equal(t, "Access Denied.", err.Error())

	_, err = svc.Create(context.Background(), nil, BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestBookService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookService(env.deps, newCatalog())
	admin := env.user(t, "admin@example.com", true)

	tests := []struct {
		name  string
		input BookInput
		field string
	}{
		{name: "blank", input: BookInput{}, field: "book"},
		{name: "invalid condition", input: BookInput{Book: foundationRef, Condition: "https://schema.org/Invalid"}, field: "condition"},
		{name: "invalid url", input: BookInput{Book: "invalid book", Condition: domain.UsedCondition}, field: "book"},
		{name: "unknown to catalog", input: BookInput{Book: "https://openlibrary.org/books/OL0M.json", Condition: domain.NewCondition}, field: "book"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tt.input)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Contains(t, domainErr.Details, tt.field)
		})
	}
}

func TestBookService_CatalogOutage(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookService(env.deps, &fakeCatalog{err: catalog.ErrUpstream})

	_, err := svc.Create(context.Background(), env.user(t, "admin@example.com", true), BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInternal))
	assert.ErrorIs(t, err, catalog.ErrUpstream)
}

func TestBookService_Replace(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookService(env.deps, newCatalog())
	admin := env.user(t, "admin@example.com", true)

	created, err := svc.Create(context.Background(), admin, BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	sameRef, err := svc.Replace(context.Background(), admin, created.ID, BookInput{Book: foundationRef, Condition: domain.DamagedCondition})
	require.NoError(t, err)
	assert.Equal(t, domain.DamagedCondition, sameRef.Condition)
	assert.Equal(t, "Foundation", sameRef.Title)
	assert.True(t, sameRef.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, sameRef.UpdatedAt.After(created.UpdatedAt))

	newRef, err := svc.Replace(context.Background(), admin, created.ID, BookInput{Book: "https://openlibrary.org/books/OL1M.json", Condition: domain.NewCondition})
	require.NoError(t, err)
	assert.Equal(t, "Hyperion", newRef.Title)
	assert.Equal(t, "Dan Simmons", newRef.Author)
	assert.Equal(t, "hyperion", newRef.Slug)

	_, err = svc.Replace(context.Background(), admin, "missing", BookInput{Book: foundationRef, Condition: domain.NewCondition})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
}

func TestBookService_DeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	books := NewBookService(env.deps, newCatalog())
	reviews := NewReviewService(env.deps, nil)
	admin := env.user(t, "admin@example.com", true)

	book, err := books.Create(context.Background(), admin, BookInput{Book: foundationRef, Condition: domain.UsedCondition})
	require.NoError(t, err)
	review, err := reviews.Create(context.Background(), admin, book.ID, ReviewInput{Rating: 4, Body: "x"})
	require.NoError(t, err)

	require.NoError(t, books.Delete(context.Background(), admin, book.ID))

	_, err = books.Get(context.Background(), book.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))
	_, err = reviews.Get(context.Background(), "", review.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound))

	assert.JSONEq(t,
		`{"@id":"/admin/books/`+book.ID+`","@type":["https://schema.org/Book","https://schema.org/Offer"]}`,
		env.publisher.last().payload)
}

func TestBookService_ReadsCarryAverageRating(t *testing.T) {
	env := newTestEnv(t)
	books := NewBookService(env.deps, newCatalog())
	reviews := NewReviewService(env.deps, nil)
	admin := env.user(t, "admin@example.com", true)

	rated := env.book(t, "Hyperion")
	unrated := env.book(t, "Foundation")
	for _, rating := range []int{5, 4} {
		_, err := reviews.Create(context.Background(), admin, rated.ID, ReviewInput{Rating: rating, Body: "x"})
		require.NoError(t, err)
	}

	got, err := books.Get(context.Background(), rated.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)

	got, err = books.Get(context.Background(), unrated.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)

	page, err := books.List(context.Background(), store.BookFilter{Title: "yperio"}, store.DefaultPaginationParams())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Rating)
	assert.Equal(t, 4, *page.Items[0].Rating)
}
