package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// expiredGrace keeps an entry in go-cache past its own expiry so a read can
// still see it and report it as expired. The janitor drops it after that.
const expiredGrace = time.Minute

type memoryEntry struct {
	value     any
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryBackend keeps Go values as-is in a go-cache instance.
type memoryBackend struct {
	c   *gocache.Cache
	now func() time.Time

	// mu orders writes against the evict-on-read path so an eviction never
	// deletes a value written after the expired one was read.
	mu sync.Mutex
}

func newMemoryBackend(cleanupInterval time.Duration) *memoryBackend {
	// A non-positive cleanup interval disables the janitor goroutine.
	return &memoryBackend{
		c:   gocache.New(gocache.NoExpiration, cleanupInterval),
		now: time.Now,
	}
}

func (m *memoryBackend) lookup(key string) (memoryEntry, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return memoryEntry{}, false
	}
	e, ok := v.(memoryEntry)
	return e, ok
}

// get reports expired only when this read found the entry past its expiry.
// Entries older than expiredGrace read as a plain miss.
func (m *memoryBackend) get(key string) (any, bool, bool, error) {
	e, ok := m.lookup(key)
	if !ok {
		return nil, false, false, nil
	}
	if !e.expired(m.now()) {
		return e.value, true, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-read under the lock; a concurrent set may have replaced it.
	e, ok = m.lookup(key)
	if !ok {
		return nil, false, false, nil
	}
	if !e.expired(m.now()) {
		return e.value, true, false, nil
	}
	m.c.Delete(key)
	return nil, false, true, nil
}

func (m *memoryBackend) set(key string, value any, ttl time.Duration) error {
	e := memoryEntry{value: value}
	keep := gocache.NoExpiration
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
		keep = ttl + expiredGrace
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, e, keep)
	return nil
}

func (m *memoryBackend) remove(key string) error {
	m.c.Delete(key)
	return nil
}

// removePrefix counts live entries only. Expired ones still within the grace
// window are deleted too.
func (m *memoryBackend) removePrefix(prefix string) (int, error) {
	now := m.now()
	n := 0
	for key, item := range m.c.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		m.c.Delete(key)
		if e, ok := item.Object.(memoryEntry); ok && !e.expired(now) {
			n++
		}
	}
	return n, nil
}

func (m *memoryBackend) clear() error {
	m.c.Flush()
	return nil
}

func (m *memoryBackend) close() error { return nil }

// size counts stored items, expired ones included.
func (m *memoryBackend) size() int {
	return m.c.ItemCount()
}
