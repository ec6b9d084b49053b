package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// responseCache keeps completed responses in memory so identical requests
// within a run (e.g. a stage re-entered after a partial failure in the same
// process) do not pay for a second remote call.
type responseCache struct {
	cache *gocache.Cache
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *responseCache) get(key string) (string, bool) {
	if val, found := c.cache.Get(key); found {
		return val.(string), true
	}
	return "", false
}

func (c *responseCache) set(key, value string) {
	c.cache.Set(key, value, gocache.DefaultExpiration)
}

// cacheKey hashes the full request so any change in model, sampling or
// prompt misses the cache
func cacheKey(req GenerateRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%g|%d|", req.Model, req.Temperature, req.MaxTokens)
	h.Write([]byte(req.Prompt))
	return hex.EncodeToString(h.Sum(nil))
}
