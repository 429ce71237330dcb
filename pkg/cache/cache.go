// Package cache stores fetched series as opaque blobs that expire after a
// per-entry time to live. Concurrent writers to the same key race and the last
// write wins.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a key-value cache with expiry.
type Store interface {
	// Get returns the blob for key. ok is false when the key is absent or
	// has expired.
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	// Put saves blob under key until ttl elapses.
	Put(ctx context.Context, key string, blob []byte, ttl time.Duration) error
}

// Timed is an in-memory Store that invalidates elements on a timer basis.
type Timed struct {
	mu    sync.Mutex
	cache map[string]element
}

var _ Store = (*Timed)(nil)

// element holds a value and the instant it stops being valid.
type element struct {
	value   []byte
	expires time.Time
}

// NewTimed creates an empty Timed cache.
func NewTimed() *Timed {
	return &Timed{
		cache: make(map[string]element),
	}
}

// Put assigns a value to a key.
func (c *Timed) Put(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.set(key, val, ttl, time.Now())
	return nil
}

// set performs Put's work with the wall clock factored out.
func (c *Timed) set(key string, val []byte, ttl time.Duration, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = element{
		value:   val,
		expires: t.Add(ttl),
	}
}

// Get retrieves a value for a key. The value may not exist or have expired, in
// which case ok will be false.
func (c *Timed) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.get(key, time.Now())
	return value, ok, nil
}

// get is like set in that the time is factored out
func (c *Timed) get(key string, t time.Time) (value []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.cache[key]
	if !ok {
		return nil, false
	}

	// in memory elements might still be invalid
	if !t.Before(el.expires) {
		delete(c.cache, key)
		return nil, false
	}

	return el.value, true
}
