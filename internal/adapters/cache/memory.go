package cache

import (
	"sync"
	"time"

	"socialfeed/internal/domain"
)

// MemoryCache is an in-memory tweet cache with TTL support.
type MemoryCache struct {
	tweets sync.Map
	ttl    time.Duration
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once

	// mu orders invalidations against conditional sets; epoch counts
	// invalidations.
	mu    sync.Mutex
	epoch uint64
}

// cacheEntry holds a cached tweet with expiration metadata.
type cacheEntry struct {
	tweet     domain.Tweet
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the specified TTL.
// A background sweep removes expired entries until Close is called.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{ttl: ttl, now: time.Now, stop: make(chan struct{})}
	go c.cleanup(time.Minute)
	return c
}

// Get retrieves a tweet from the cache.
// Returns a copy and true if found and not expired, otherwise nil and false.
func (c *MemoryCache) Get(id int64) (*domain.Tweet, bool) {
	value, ok := c.tweets.Load(id)
	if !ok {
		return nil, false
	}

	entry := value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.tweets.Delete(id)
		return nil, false
	}

	t := entry.tweet
	if t.ParentID != nil {
		p := *t.ParentID
		t.ParentID = &p
	}
	return &t, true
}

// Set stores a copy of tweet with the configured TTL.
func (c *MemoryCache) Set(tweet *domain.Tweet) {
	entry := &cacheEntry{tweet: *tweet, expiresAt: c.now().Add(c.ttl)}
	entry.tweet.Author = nil
	c.tweets.Store(tweet.ID, entry)
}

// Epoch returns the current invalidation epoch. Take it before reading
// the store and pass it to SetIfCurrent.
func (c *MemoryCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// SetIfCurrent stores tweet only if nothing was invalidated since epoch
// was taken. A snapshot read before a concurrent write is never cached.
func (c *MemoryCache) SetIfCurrent(tweet *domain.Tweet, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.Set(tweet)
	return true
}

// Invalidate drops the entry for id, if any.
func (c *MemoryCache) Invalidate(id int64) {
	c.mu.Lock()
	c.epoch++
	c.tweets.Delete(id)
	c.mu.Unlock()
}

// Len counts live and not yet swept entries.
func (c *MemoryCache) Len() int {
	n := 0
	c.tweets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the background sweep.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanup periodically removes expired entries from the cache.
func (c *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()
	c.tweets.Range(func(key, value any) bool {
		if now.After(value.(*cacheEntry).expiresAt) {
			c.tweets.Delete(key)
		}
		return true
	})
}
