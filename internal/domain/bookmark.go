package domain

import "time"

// BookmarkType is the schema.org type of a bookmark.
const BookmarkType = "https://schema.org/BookmarkAction"

// Bookmark records that a user saved a book. A (UserID, BookID) pair exists
// at most once.
type Bookmark struct {
	Syncable
	UserID       string    `json:"user"`
	BookID       string    `json:"book" validate:"required"`
	BookmarkedAt time.Time `json:"bookmarkedAt"`
}

// IRI returns the canonical path of the bookmark.
func (b *Bookmark) IRI() string {
	return "/bookmarks/" + b.ID
}
