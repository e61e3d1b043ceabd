package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	s := New(nil, "eventhub", 0)
	assert.Equal(t, "eventhub:event:detail:42", s.EventDetailKey(42))
	assert.Equal(t, "eventhub:events:public", s.PublicListKey())
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, "", -1)
	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, "cache", s.prefix)
}

func TestDisabledStoreDegrades(t *testing.T) {
	ctx := context.Background()
	s := New(nil, "eventhub", time.Minute)

	assert.False(t, s.Enabled())

	_, ok := s.Get(ctx, s.PublicListKey())
	assert.False(t, ok, "no redis means every read is a miss")

	// Writes and evictions are no-ops, not errors.
	s.Set(ctx, s.EventDetailKey(1), []byte("{}"))
	assert.NoError(t, s.InvalidateEvent(ctx, 1))

	first, err := s.MarkMutation(ctx, "m-1", time.Minute)
	assert.NoError(t, err)
	assert.True(t, first, "without dedupe memory every delivery counts as first")
}

func TestNilStoreEnabled(t *testing.T) {
	var s *Store
	assert.False(t, s.Enabled())
}
