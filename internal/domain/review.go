package domain

import "time"

// ReviewType is the schema.org type of a review.
const ReviewType = "https://schema.org/Review"

// Review is a user's opinion of a book.
//
// UserID and PublishedAt are owner-controlled: they are set once when the
// review is created and carried over on every replacement.
type Review struct {
	Syncable
	BookID      string    `json:"book" validate:"required"`
	UserID      string    `json:"user"`
	PublishedAt time.Time `json:"publishedAt"`
	Rating      int       `json:"rating" validate:"gte=0,lte=5"`
	Body        string    `json:"body" validate:"required"`
	Letter      *string   `json:"letter,omitempty"`
}

// IRI returns the canonical path of the review.
func (r *Review) IRI() string {
	return "/admin/reviews/" + r.ID
}

// BookScopedIRI returns the path of the review under its book.
func (r *Review) BookScopedIRI() string {
	return "/books/" + r.BookID + "/reviews/" + r.ID
}
