package model

import "time"

// Event represents a scheduled gathering published by an organizer.
// The organizer is fixed at creation time and never changes; only
// the organizer may modify or delete the event. Private events are
// hidden from users who neither organize them nor hold an RSVP.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – short human-readable title.
//  Description – long-form description.
//  Location    – free-form venue string.
//  StartTime   – when the event begins (UTC).
//  EndTime     – when the event ends (UTC); always after StartTime.
//  OrganizerID – user who created the event (immutable).
//  IsPublic    – visibility flag; false means invite/RSVP only.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    // events.id
	Title       string    // events.title
	Description string    // events.description
	Location    string    // events.location
	StartTime   time.Time // events.start_time
	EndTime     time.Time // events.end_time
	OrganizerID uint64    // events.organizer_id
	IsPublic    bool      // events.is_public
	CreatedAt   time.Time // events.created_at
	UpdatedAt   time.Time // events.updated_at
}

// IsUpcoming reports whether the event starts after now.
func (e Event) IsUpcoming(now time.Time) bool { return e.StartTime.After(now) }

// IsOngoing reports whether now falls inside the event window.
func (e Event) IsOngoing(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}
