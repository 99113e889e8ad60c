package server

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// responseCache holds marshaled JSON responses for the TTL window, so
// repeated dashboard polls do not re-scan every log on disk.
type responseCache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

func newResponseCache(ttl time.Duration) (*responseCache, error) {
	const maxCostBytes = 16 << 20
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1 << 10,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &responseCache{c: c, ttl: ttl}, nil
}

func (rc *responseCache) get(key string) ([]byte, bool) {
	return rc.c.Get(key)
}

func (rc *responseCache) set(key string, value []byte) {
	rc.c.SetWithTTL(key, value, int64(len(value)), rc.ttl)
	// Make the entry visible to the next request instead of waiting for
	// the async admission buffer.
	rc.c.Wait()
}

func (rc *responseCache) close() {
	rc.c.Close()
}
