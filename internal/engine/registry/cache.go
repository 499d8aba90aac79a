package registry

import (
	"context"
	"sync"
	"time"
)

// BlacklistCache keeps the blocked IP set in memory for ttl. A zero ttl
// reloads on every lookup.
type BlacklistCache struct {
	mu       sync.RWMutex
	ips      map[string]struct{}
	loadedAt time.Time
	gen      uint64
	ttl      time.Duration
	load     func(ctx context.Context) ([]string, error)
	now      func() time.Time
}

func NewBlacklistCache(ttl time.Duration, load func(ctx context.Context) ([]string, error)) *BlacklistCache {
	return &BlacklistCache{
		ttl:  ttl,
		load: load,
		now:  time.Now,
	}
}

func (c *BlacklistCache) Contains(ctx context.Context, ip string) (bool, error) {
	c.mu.RLock()
	if c.ips != nil && c.now().Sub(c.loadedAt) < c.ttl {
		_, ok := c.ips[ip]
		c.mu.RUnlock()
		return ok, nil
	}
	c.mu.RUnlock()

	ips, err := c.refresh(ctx)
	if err != nil {
		return false, err
	}
	_, ok := ips[ip]
	return ok, nil
}

// refresh reloads the set. A result loaded across an Invalidate is
// returned to the caller but never cached.
func (c *BlacklistCache) refresh(ctx context.Context) (map[string]struct{}, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	list, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	ips := make(map[string]struct{}, len(list))
	for _, ip := range list {
		ips[ip] = struct{}{}
	}

	c.mu.Lock()
	if c.gen == gen {
		c.ips = ips
		c.loadedAt = c.now()
	}
	c.mu.Unlock()
	return ips, nil
}

// Invalidate drops the cached set so the next lookup reloads it.
func (c *BlacklistCache) Invalidate() {
	c.mu.Lock()
	c.ips = nil
	c.gen++
	c.mu.Unlock()
}
