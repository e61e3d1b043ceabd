// Package bridge connects committed mutations to the read-side cache
// and the notification queue. Cache eviction runs synchronously so a
// mutation is not acknowledged while a stale view could still be
// served; notification dispatch is fire-and-forget and never blocks
// or fails the originating request.
package bridge

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/event-hub/internal/queue"
)

// dedupeRetention is how long a mutation id is remembered. Mutation
// records are delivered at least once; within this window a repeat
// delivery produces no second notification.
const dedupeRetention = 10 * time.Minute

// ViewCache is the slice of the cache store the bridge needs:
// eviction of an event's views and the mutation dedupe window.
// Implemented by *cache.Store.
type ViewCache interface {
	InvalidateEvent(ctx context.Context, eventID uint64) error
	MarkMutation(ctx context.Context, mutationID string, retention time.Duration) (bool, error)
}

// Publisher enqueues one notification task. Implemented by
// queue.Publisher; faked in tests.
type Publisher interface {
	PublishNotification(ctx context.Context, task queue.NotificationTask) error
}

// Bridge implements service.MutationSink.
type Bridge struct {
	Cache     ViewCache
	Publisher Publisher // optional; nil disables notifications
}

func New(store ViewCache, pub Publisher) *Bridge {
	return &Bridge{Cache: store, Publisher: pub}
}

// OnMutation evicts the affected cached views, then enqueues a
// notification task. Both halves tolerate duplicate delivery of the
// same mutation: eviction is naturally idempotent and enqueueing is
// deduped by mutation id.
func (b *Bridge) OnMutation(ctx context.Context, ev queue.MutationEvent) {
	if b.Cache != nil {
		if err := b.Cache.InvalidateEvent(ctx, ev.EventID); err != nil {
			log.Printf("bridge: cache invalidation failed for event %d: %v", ev.EventID, err)
		}
	}

	if b.Publisher == nil {
		return
	}
	first := true
	if b.Cache != nil {
		var err error
		first, err = b.Cache.MarkMutation(ctx, ev.ID, dedupeRetention)
		if err != nil {
			log.Printf("bridge: dedupe check failed for mutation %s: %v", ev.ID, err)
			// Fall through: a duplicate notification beats a dropped one.
			first = true
		}
	}
	if !first {
		return
	}
	task := queue.NotificationTask{
		MutationID: ev.ID,
		Kind:       ev.Kind,
		EventID:    ev.EventID,
		ActorID:    ev.ActorID,
		OccurredAt: ev.OccurredAt,
	}
	if err := b.Publisher.PublishNotification(ctx, task); err != nil {
		// Best effort only; the mutation already committed.
		log.Printf("bridge: notification enqueue failed for mutation %s: %v", ev.ID, err)
	}
}
