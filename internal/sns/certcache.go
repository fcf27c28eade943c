package sns

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Certificate cache defaults.
const (
	DefaultCertCacheSize = 50
	DefaultCertCacheTTL  = time.Minute
)

// CertCache maps signing certificate URLs to PEM text. Entries expire a fixed
// TTL after insertion regardless of how often they are read, and the least
// recently used entry is evicted once the cache is full.
type CertCache struct {
	lru *expirable.LRU[string, string]
}

// NewCertCache creates a cache holding at most size entries for ttl each.
func NewCertCache(size int, ttl time.Duration) *CertCache {
	if size <= 0 {
		size = DefaultCertCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCertCacheTTL
	}
	return &CertCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the cached PEM for url if present and not expired.
func (c *CertCache) Get(url string) (string, bool) {
	return c.lru.Get(url)
}

// Put stores pem under url, replacing any previous entry.
func (c *CertCache) Put(url, pem string) {
	c.lru.Add(url, pem)
}

// Len returns the number of entries, including any not yet reaped.
func (c *CertCache) Len() int {
	return c.lru.Len()
}
