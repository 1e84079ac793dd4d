// Package notify builds change notifications for BookClub resources and
// delivers them to topic subscribers.
//
// A notification is a set of topic URIs plus a JSON payload. Creates and
// updates carry the full resource with "@id" and "@type" added. Deletes
// carry only "@id" and "@type".
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/listenupapp/bookclub-server/internal/domain"
)

// json sorts map keys so payloads are byte-stable.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrPublish wraps every delivery failure.
var ErrPublish = errors.New("publish notification")

// Publisher delivers a payload to the subscribers of any of the topics.
type Publisher interface {
	Publish(ctx context.Context, topics []string, payload []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, topics []string, payload []byte) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, topics []string, payload []byte) error {
	return f(ctx, topics, payload)
}

// Nop drops every notification.
var Nop Publisher = PublisherFunc(func(context.Context, []string, []byte) error { return nil })

// Topics turns resource paths into absolute topic URIs.
type Topics struct {
	base string
}

// NewTopics returns a topic builder rooted at base, e.g. "http://localhost".
func NewTopics(base string) *Topics {
	return &Topics{base: strings.TrimRight(base, "/")}
}

// URI makes a path absolute.
func (t *Topics) URI(path string) string {
	return t.base + path
}

// Review returns the item and collection topics of a review, both admin and
// book-scoped.
func (t *Topics) Review(r *domain.Review) []string {
	return []string{
		t.URI(r.IRI()),
		t.URI("/admin/reviews"),
		t.URI(r.BookScopedIRI()),
		t.URI("/books/" + r.BookID + "/reviews"),
	}
}

// Book returns the admin and public item topics of a book.
func (t *Topics) Book(b *domain.Book) []string {
	return []string{t.URI(b.IRI()), t.URI(b.PublicIRI())}
}

// Bookmark returns the item topic of a bookmark.
func (t *Topics) Bookmark(b *domain.Bookmark) []string {
	return []string{t.URI(b.IRI())}
}

// Document serializes resource with "@id" and "@type" members added.
func Document(iri string, typ any, resource any) ([]byte, error) {
	raw, err := json.Marshal(resource)
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("resource is not a JSON object: %w", err)
	}
	doc["@id"] = iri
	doc["@type"] = typ

	return json.Marshal(doc)
}

// Marker serializes the minimal deletion payload.
func Marker(iri string, typ any) ([]byte, error) {
	return json.Marshal(map[string]any{"@id": iri, "@type": typ})
}
