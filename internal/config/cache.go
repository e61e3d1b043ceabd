package config

import (
	"os"
	"time"
)

// CacheConfig defines settings for the read-view cache. When Enabled
// is false or no Redis client is configured, caching is disabled and
// every read goes to the store. TTL is the backstop lifetime of cache
// entries; writes evict their entries explicitly, the TTL only limits
// how long a missed invalidation can linger. Prefix namespaces the
// keys so several deployments can share one Redis.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("CACHE_TTL", "5m")),
		Prefix:  getenv("CACHE_PREFIX", "eventhub"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
