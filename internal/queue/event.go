// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Mutation kinds emitted by the coordinator after a commit.
const (
	KindEventCreated   = "event.created"
	KindEventUpdated   = "event.updated"
	KindEventDeleted   = "event.deleted"
	KindRSVPUpserted   = "rsvp.upserted"
	KindRSVPDeleted    = "rsvp.deleted"
	KindReviewUpserted = "review.upserted"
	KindReviewDeleted  = "review.deleted"
)

// MutationEvent describes one committed write. It is handed to the
// cache/notification bridge after the transaction durably commits.
// Delivery is at-least-once: ID is unique per logical mutation so
// downstream consumers can drop duplicates.
type MutationEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EventID    uint64    `json:"event_id"`
	ActorID    uint64    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NotificationTask is the payload published to the notification queue.
// It carries enough context for the consumer to compose a message
// without re-querying anything beyond recipient lookup.
type NotificationTask struct {
	MutationID string    `json:"mutation_id"`
	Kind       string    `json:"kind"`
	EventID    uint64    `json:"event_id"`
	ActorID    uint64    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
