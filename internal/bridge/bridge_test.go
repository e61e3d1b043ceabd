package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-hub/internal/bridge"
	"github.com/iliyamo/event-hub/internal/queue"
)

type fakeCache struct {
	invalidated []uint64
	marked      map[string]bool
	invErr      error
	markErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{marked: map[string]bool{}}
}

func (c *fakeCache) InvalidateEvent(_ context.Context, eventID uint64) error {
	c.invalidated = append(c.invalidated, eventID)
	return c.invErr
}

func (c *fakeCache) MarkMutation(_ context.Context, mutationID string, _ time.Duration) (bool, error) {
	if c.markErr != nil {
		return false, c.markErr
	}
	if c.marked[mutationID] {
		return false, nil
	}
	c.marked[mutationID] = true
	return true, nil
}

type fakePublisher struct {
	tasks []queue.NotificationTask
	err   error
}

func (p *fakePublisher) PublishNotification(_ context.Context, task queue.NotificationTask) error {
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func mutation(id string) queue.MutationEvent {
	return queue.MutationEvent{
		ID:         id,
		Kind:       queue.KindRSVPUpserted,
		EventID:    7,
		ActorID:    2,
		OccurredAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestOnMutationEvictsAndPublishes(t *testing.T) {
	cache := newFakeCache()
	pub := &fakePublisher{}
	b := bridge.New(cache, pub)

	b.OnMutation(context.Background(), mutation("m-1"))

	assert.Equal(t, []uint64{7}, cache.invalidated)
	require.Len(t, pub.tasks, 1)
	task := pub.tasks[0]
	assert.Equal(t, "m-1", task.MutationID)
	assert.Equal(t, queue.KindRSVPUpserted, task.Kind)
	assert.Equal(t, uint64(7), task.EventID)
	assert.Equal(t, uint64(2), task.ActorID)
}

func TestOnMutationDedupesRedelivery(t *testing.T) {
	cache := newFakeCache()
	pub := &fakePublisher{}
	b := bridge.New(cache, pub)

	b.OnMutation(context.Background(), mutation("m-1"))
	b.OnMutation(context.Background(), mutation("m-1"))

	assert.Len(t, pub.tasks, 1, "redelivered mutation must not enqueue twice")
	// Eviction is idempotent and runs on every delivery.
	assert.Equal(t, []uint64{7, 7}, cache.invalidated)
}

func TestOnMutationDistinctIDsBothPublish(t *testing.T) {
	cache := newFakeCache()
	pub := &fakePublisher{}
	b := bridge.New(cache, pub)

	b.OnMutation(context.Background(), mutation("m-1"))
	b.OnMutation(context.Background(), mutation("m-2"))

	assert.Len(t, pub.tasks, 2)
}

func TestOnMutationPublishesWhenDedupeFails(t *testing.T) {
	cache := newFakeCache()
	cache.markErr = errors.New("redis down")
	pub := &fakePublisher{}
	b := bridge.New(cache, pub)

	b.OnMutation(context.Background(), mutation("m-1"))

	assert.Len(t, pub.tasks, 1, "an unverifiable mutation still notifies")
}

func TestOnMutationSurvivesCacheAndPublisherFailure(t *testing.T) {
	cache := newFakeCache()
	cache.invErr = errors.New("redis down")
	pub := &fakePublisher{err: errors.New("broker down")}
	b := bridge.New(cache, pub)

	// Must not panic or propagate; the request already committed.
	b.OnMutation(context.Background(), mutation("m-1"))
	assert.Empty(t, pub.tasks)
}

func TestOnMutationNilCollaborators(t *testing.T) {
	b := bridge.New(nil, nil)
	b.OnMutation(context.Background(), mutation("m-1"))

	pub := &fakePublisher{}
	b = bridge.New(nil, pub)
	b.OnMutation(context.Background(), mutation("m-2"))
	assert.Len(t, pub.tasks, 1, "no cache means no dedupe window, publish anyway")
}
