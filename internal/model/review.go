package model

import "time"

// Rating bounds enforced at write time.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one user's rating and optional comment for one event.
// Like RSVPs, the (event_id, user_id) pair is unique; submitting a
// second review replaces the first.
type Review struct {
	ID        uint64    // reviews.id
	EventID   uint64    // reviews.event_id
	UserID    uint64    // reviews.user_id
	Rating    int       // reviews.rating (1..5)
	Comment   string    // reviews.comment
	CreatedAt time.Time // reviews.created_at
	UpdatedAt time.Time // reviews.updated_at
}
