// Package registry implements a TTL-keyed store: entries are discarded once
// they've sat untouched past an expiration window, optionally reset on
// every access. It's a direct port of a reference-counted-by-time map:
// Get, Len, Snapshot and PutIfAbsent sweep expired entries themselves, and an
// optional background sweeper prunes them between calls.
package registry

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned by New when ttl is zero or negative. A
// non-positive TTL would make every entry expire as soon as the sweeper
// runs (or immediately, on a lazy check), silently discarding everything
// instead of failing fast at startup.
var ErrInvalidTTL = errors.New("registry: ttl must be positive")

type entry[V any] struct {
	storedAt time.Time
	value    V
}

// Registry is a thread-safe map whose entries expire after ttl of
// inactivity. Get, Len, Snapshot and PutIfAbsent sweep every expired entry
// under the lock before answering; a background sweeper goroutine, when
// enabled, also prunes them on its own schedule. Put and Delete do not sweep.
type Registry[V any] struct {
	mu              sync.Mutex
	data            map[string]*entry[V]
	ttl             time.Duration
	refreshOnAccess bool
	sweepInterval   time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// Option configures a Registry at construction time.
type Option[V any] func(*Registry[V])

// WithRefreshOnAccess resets an entry's expiry clock every time Get touches
// it. Enabled by default to match typical "keep hot data alive" usage.
func WithRefreshOnAccess[V any](refresh bool) Option[V] {
	return func(r *Registry[V]) { r.refreshOnAccess = refresh }
}

// WithSweepInterval overrides the background sweeper's period. Zero disables
// the background sweeper; expiry is then only enforced lazily on Get, Len,
// Snapshot and PutIfAbsent.
func WithSweepInterval[V any](interval time.Duration) Option[V] {
	return func(r *Registry[V]) { r.sweepInterval = interval }
}

// New constructs a Registry whose entries expire after ttl of inactivity.
// ttl <= 0 is a configuration error.
func New[V any](ttl time.Duration, opts ...Option[V]) (*Registry[V], error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	r := &Registry[V]{
		data:            make(map[string]*entry[V]),
		ttl:             ttl,
		refreshOnAccess: true,
		sweepInterval:   time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sweepInterval > 0 {
		go r.runSweeper()
	}
	return r, nil
}

// Close stops the background sweeper. Safe to call multiple times.
func (r *Registry[V]) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *Registry[V]) runSweeper() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			r.sweepLocked()
			r.mu.Unlock()
		case <-r.stop:
			return
		}
	}
}

// sweepLocked must be called with mu held. It removes every expired entry.
func (r *Registry[V]) sweepLocked() {
	now := time.Now()
	for key, e := range r.data {
		if now.Sub(e.storedAt) > r.ttl {
			delete(r.data, key)
		}
	}
}

// Put inserts or overwrites an entry and resets its expiry clock.
func (r *Registry[V]) Put(key string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = &entry[V]{storedAt: time.Now(), value: value}
}

// PutIfAbsent inserts value only if key is not already present (and not
// expired); it never extends an existing entry's lifespan.
func (r *Registry[V]) PutIfAbsent(key string, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	if _, exists := r.data[key]; exists {
		return
	}
	r.data[key] = &entry[V]{storedAt: time.Now(), value: value}
}

// Get returns the value for key. ok is false if key is absent or expired;
// expired entries are swept out as part of the same call, so a Get that
// misses never returns stale data on a subsequent call either. If the
// registry was constructed with WithRefreshOnAccess(true) (the default), a
// hit resets the entry's expiry clock.
func (r *Registry[V]) Get(key string) (value V, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()

	e, exists := r.data[key]
	if !exists {
		var zero V
		return zero, false
	}

	if r.refreshOnAccess {
		e.storedAt = time.Now()
	}
	return e.value, true
}

// Delete removes key, if present. It does not trigger a full sweep.
func (r *Registry[V]) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, key)
}

// Len reports the number of live (non-expired) entries.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.data)
}

// Snapshot returns a shallow copy of all live entries, sweeping first.
func (r *Registry[V]) Snapshot() map[string]V {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	out := make(map[string]V, len(r.data))
	for key, e := range r.data {
		out[key] = e.value
	}
	return out
}
