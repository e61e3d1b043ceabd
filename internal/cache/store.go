// Package cache holds the redis-backed read-view cache. Keys are
// explicit per view (event detail, public listing) so the bridge can
// evict exactly what a mutation touched; every entry also carries a
// TTL as a backstop against a missed invalidation.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how stale a view can get if an eviction is lost.
const DefaultTTL = 5 * time.Minute

// Store caches serialized read views. A nil redis client disables it
// entirely; every method degrades to a miss or a no-op so the server
// runs without redis.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// New builds a Store. ttl <= 0 selects DefaultTTL.
func New(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "cache"
	}
	return &Store{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Enabled reports whether a redis client is wired in.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// EventDetailKey is the cache key for one event's detail view.
func (s *Store) EventDetailKey(eventID uint64) string {
	return fmt.Sprintf("%s:event:detail:%d", s.prefix, eventID)
}

// PublicListKey is the cache key for the anonymous public listing.
func (s *Store) PublicListKey() string {
	return s.prefix + ":events:public"
}

// Get returns the cached bytes for key, or ok=false on miss, error
// or disabled store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	if !s.Enabled() {
		return nil, false
	}
	bs, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return bs, true
}

// Set stores bytes under key with the backstop TTL. Failures are
// swallowed: the cache is disposable.
func (s *Store) Set(ctx context.Context, key string, val []byte) {
	if !s.Enabled() {
		return
	}
	_ = s.rdb.SetEx(ctx, key, val, s.ttl).Err()
}

// InvalidateEvent evicts every view touched by a mutation on the
// given event. Deleting an absent key is a no-op, so running this
// twice for the same mutation is safe.
func (s *Store) InvalidateEvent(ctx context.Context, eventID uint64) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Del(ctx, s.EventDetailKey(eventID), s.PublicListKey()).Err()
}

// MarkMutation records a mutation id with the retention window and
// reports whether this is the first sighting. Used to drop duplicate
// deliveries of the same logical mutation.
func (s *Store) MarkMutation(ctx context.Context, mutationID string, retention time.Duration) (bool, error) {
	if !s.Enabled() {
		// Without redis there is no dedupe memory; treat everything
		// as first sighting.
		return true, nil
	}
	return s.rdb.SetNX(ctx, s.prefix+":mutation:"+mutationID, 1, retention).Result()
}

// SeenMutation reports whether a mutation id is already recorded,
// without recording it. Callers that must not claim a delivery before
// it happens check with this and mark only afterwards.
func (s *Store) SeenMutation(ctx context.Context, mutationID string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, s.prefix+":mutation:"+mutationID).Result()
	return n > 0, err
}
