package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookclub-server/internal/domain"
)

func TestTopics(t *testing.T) {
	topics := NewTopics("http://localhost/")

	review := &domain.Review{Syncable: domain.Syncable{ID: "r1"}, BookID: "b1"}
	assert.Equal(t, []string{
		"http://localhost/admin/reviews/r1",
		"http://localhost/admin/reviews",
		"http://localhost/books/b1/reviews/r1",
		"http://localhost/books/b1/reviews",
	}, topics.Review(review))

	book := &domain.Book{Syncable: domain.Syncable{ID: "b1"}}
	assert.Equal(t, []string{"http://localhost/admin/books/b1", "http://localhost/books/b1"}, topics.Book(book))

	bookmark := &domain.Bookmark{Syncable: domain.Syncable{ID: "m1"}}
	assert.Equal(t, []string{"http://localhost/bookmarks/m1"}, topics.Bookmark(bookmark))
}

func TestDocument(t *testing.T) {
	review := &domain.Review{
		Syncable:    domain.Syncable{ID: "r1"},
		BookID:      "b1",
		UserID:      "u1",
		PublishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Rating:      5,
		Body:        "Great",
	}

	payload, err := Document(review.IRI(), domain.ReviewType, review)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, "/admin/reviews/r1", doc["@id"])
	assert.Equal(t, domain.ReviewType, doc["@type"])
	assert.Equal(t, "Great", doc["body"])
	assert.Equal(t, "b1", doc["book"])
	assert.Equal(t, "2024-01-02T03:04:05Z", doc["publishedAt"])
	assert.EqualValues(t, 5, doc["rating"])

	_, err = Document("/x", "T", []string{"not", "an", "object"})
	assert.Error(t, err)
}

func TestMarker(t *testing.T) {
	payload, err := Marker("/admin/books/b1", domain.BookTypes)
	require.NoError(t, err)
	assert.JSONEq(t, `{"@id":"/admin/books/b1","@type":["https://schema.org/Book","https://schema.org/Offer"]}`, string(payload))

	payload, err = Marker("/bookmarks/m1", domain.BookmarkType)
	require.NoError(t, err)
	assert.Equal(t, `{"@id":"/bookmarks/m1","@type":"https://schema.org/BookmarkAction"}`, string(payload))
}

func TestHubPublisher_Publish(t *testing.T) {
	secret := []byte("!ChangeThisMercureHubJWTSecretKey!")

	var (
		gotTopics []string
		gotData   string
		gotClaims hubClaims
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotTopics = r.PostForm["topic"]
		gotData = r.PostForm.Get("data")

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		_, err := jwt.ParseWithClaims(raw, &gotClaims, func(*jwt.Token) (any, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("urn:uuid:1"))
	}))
	defer srv.Close()

	hub := NewHubPublisher(srv.URL, secret, time.Second)
	err := hub.Publish(context.Background(), []string{"http://localhost/bookmarks/m1"}, []byte(`{"@id":"/bookmarks/m1"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost/bookmarks/m1"}, gotTopics)
	assert.Equal(t, `{"@id":"/bookmarks/m1"}`, gotData)
	assert.Equal(t, []string{"*"}, gotClaims.Mercure.Publish)
}

func TestHubPublisher_RejectedUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	hub := NewHubPublisher(srv.URL, []byte("secret"), time.Second)
	err := hub.Publish(context.Background(), []string{"t"}, []byte("{}"))
	assert.ErrorIs(t, err, ErrPublish)
	assert.Contains(t, err.Error(), "403")
}

func TestFanout(t *testing.T) {
	var calls []string
	ok := PublisherFunc(func(_ context.Context, topics []string, _ []byte) error {
		calls = append(calls, "ok:"+topics[0])
		return nil
	})
	failing := PublisherFunc(func(context.Context, []string, []byte) error {
		calls = append(calls, "failing")
		return ErrPublish
	})

	err := Fanout{failing, ok}.Publish(context.Background(), []string{"t1"}, nil)
	assert.ErrorIs(t, err, ErrPublish)
	assert.Equal(t, []string{"failing", "ok:t1"}, calls)

	assert.NoError(t, Fanout{ok, Nop}.Publish(context.Background(), []string{"t2"}, nil))
}
