// Package domain contains the resources of the BookClub catalog: books,
// reviews, bookmarks and users.
package domain

import "slices"

// BookCondition is the physical condition of an offered book.
type BookCondition string

// Supported conditions, expressed as schema.org OfferItemCondition IRIs.
const (
	NewCondition         BookCondition = "https://schema.org/NewCondition"
	RefurbishedCondition BookCondition = "https://schema.org/RefurbishedCondition"
	DamagedCondition     BookCondition = "https://schema.org/DamagedCondition"
	UsedCondition        BookCondition = "https://schema.org/UsedCondition"
)

// BookConditions lists every valid condition.
var BookConditions = []BookCondition{NewCondition, RefurbishedCondition, DamagedCondition, UsedCondition}

// Valid reports whether c is a known condition.
func (c BookCondition) Valid() bool {
	return slices.Contains(BookConditions, c)
}

// BookTypes are the schema.org types a book is published under.
var BookTypes = []string{"https://schema.org/Book", "https://schema.org/Offer"}

// Book is a catalog entry. Book holds the external catalog reference URL;
// Title and Author are derived from that catalog.
type Book struct {
	Syncable
	Book      string        `json:"book" validate:"required,url"`
	Condition BookCondition `json:"condition" validate:"required,bookcondition"`
	Title     string        `json:"title"`
	Author    string        `json:"author,omitempty"`
	Slug      string        `json:"slug,omitempty"`

	// Rating is the truncated average of the book's review ratings. It is
	// computed on read and never stored.
	Rating *int `json:"rating,omitempty"`
}

// IRI returns the canonical path of the book.
func (b *Book) IRI() string {
	return "/admin/books/" + b.ID
}

// PublicIRI returns the path of the book on the public API.
func (b *Book) PublicIRI() string {
	return "/books/" + b.ID
}
