package model

import "time"

// RSVP status values accepted by the API. The column is an ENUM so
// the store rejects anything else, but validation happens before the
// write ever reaches it.
const (
	RSVPGoing    = "going"
	RSVPMaybe    = "maybe"
	RSVPNotGoing = "not_going"
)

// ValidRSVPStatus reports whether s is one of the accepted statuses.
func ValidRSVPStatus(s string) bool {
	return s == RSVPGoing || s == RSVPMaybe || s == RSVPNotGoing
}

// RSVP records one user's answer for one event. The (event_id,
// user_id) pair is unique: renewed answers replace the existing row
// rather than inserting a second one.
type RSVP struct {
	ID        uint64    // rsvps.id
	EventID   uint64    // rsvps.event_id
	UserID    uint64    // rsvps.user_id
	Status    string    // rsvps.status
	CreatedAt time.Time // rsvps.created_at
	UpdatedAt time.Time // rsvps.updated_at
}
