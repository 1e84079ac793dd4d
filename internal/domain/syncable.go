package domain

import "time"

// Syncable carries the identity and bookkeeping timestamps shared by every
// persisted record. It gets embedded in each resource type.
type Syncable struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (s *Syncable) InitTimestamps(now time.Time) {
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp.
func (s *Syncable) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Meta returns the bookkeeping part of a record.
func (s *Syncable) Meta() *Syncable {
	return s
}

// IsNew reports whether the record has not been assigned an identity yet.
func (s *Syncable) IsNew() bool {
	return s.ID == ""
}
