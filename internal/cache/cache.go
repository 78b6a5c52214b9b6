// Package cache is a best-effort key/value store with per-entry expiry and
// three isolated tiers. Storage failures are logged and read as misses; the
// store never returns them to callers.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/metrics"
)

// Tier selects one of the isolated namespaces.
type Tier string

const (
	// TierEphemeral lives in process memory and is lost on restart.
	TierEphemeral Tier = "ephemeral"
	// TierDurable survives restarts when a durable path is configured.
	TierDurable Tier = "durable"
	// TierSession holds per-login data and is cleared by the logout hook.
	TierSession Tier = "session"
)

// NoExpiry keeps an entry until it is removed or its tier is cleared.
const NoExpiry time.Duration = 0

// backend is one tier's storage. Errors are reported to the Store, which swallows them.
type backend interface {
	get(key string) (value any, found bool, expired bool, err error)
	set(key string, value any, ttl time.Duration) error
	remove(key string) error
	removePrefix(prefix string) (int, error)
	clear() error
	close() error
}

// Options configures a Store.
type Options struct {
	// DurablePath is the bbolt file backing TierDurable. Empty keeps the tier in memory.
	DurablePath string
	// CleanupInterval runs the go-cache janitor for the memory tiers. Zero disables it;
	// expired entries are then only evicted when read.
	CleanupInterval time.Duration
	// Coalesce deduplicates concurrent GetOrSet misses on the same key.
	Coalesce bool
}

// Store is the cache service. Construct one per process with New and Close it on shutdown.
type Store struct {
	tiers    map[Tier]backend
	gens     map[Tier]*atomic.Uint64
	coalesce bool
	group    singleflight.Group
	log      zerolog.Logger
}

// New opens the tiers described by opts.
func New(opts Options) (*Store, error) {
	s := &Store{
		coalesce: opts.Coalesce,
		log:      logging.WithComponent("cache"),
	}

	var durable backend
	if opts.DurablePath != "" {
		b, err := newBoltBackend(opts.DurablePath, time.Now)
		if err != nil {
			return nil, fmt.Errorf("failed to open durable cache tier: %w", err)
		}
		durable = b
	} else {
		durable = newMemoryBackend(opts.CleanupInterval)
	}

	s.tiers = map[Tier]backend{
		TierEphemeral: newMemoryBackend(opts.CleanupInterval),
		TierSession:   newMemoryBackend(opts.CleanupInterval),
		TierDurable:   durable,
	}
	s.gens = make(map[Tier]*atomic.Uint64, len(s.tiers))
	for tier := range s.tiers {
		s.gens[tier] = new(atomic.Uint64)
	}
	return s, nil
}

// Close releases the durable tier.
func (s *Store) Close() error {
	var firstErr error
	for _, b := range s.tiers {
		if err := b.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) backend(tier Tier) (backend, bool) {
	b, ok := s.tiers[tier]
	if !ok {
		s.log.Warn().Str("tier", string(tier)).Msg("unknown cache tier")
	}
	return b, ok
}

func (s *Store) swallow(tier Tier, op, key string, err error) {
	cerr := apperr.Cache(op, err)
	metrics.CacheErrors.WithLabelValues(string(tier), op).Inc()
	s.log.Warn().Err(cerr).Str("tier", string(tier)).Str("key", key).Msg("cache failure treated as miss")
}

// Set stores value under key. ttl <= 0 means no expiry.
func (s *Store) Set(key string, value any, ttl time.Duration, tier Tier) {
	b, ok := s.backend(tier)
	if !ok {
		return
	}
	if err := b.set(key, value, ttl); err != nil {
		s.swallow(tier, "set", key, err)
	}
}

// Get returns the value under key. Reading an expired entry evicts it and reports a miss.
func (s *Store) Get(key string, tier Tier) (any, bool) {
	b, ok := s.backend(tier)
	if !ok {
		return nil, false
	}
	value, found, expired, err := b.get(key)
	switch {
	case err != nil:
		s.swallow(tier, "get", key, err)
		metrics.CacheRequests.WithLabelValues(string(tier), "miss").Inc()
		return nil, false
	case expired:
		metrics.CacheRequests.WithLabelValues(string(tier), "expired").Inc()
		return nil, false
	case !found:
		metrics.CacheRequests.WithLabelValues(string(tier), "miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues(string(tier), "hit").Inc()
	return value, true
}

// Has reports whether a live entry exists. Like Get, it evicts an expired entry.
func (s *Store) Has(key string, tier Tier) bool {
	_, ok := s.Get(key, tier)
	return ok
}

// Generation is tier's invalidation counter. Remove, RemovePrefix and Clear
// advance it before deleting anything.
func (s *Store) Generation(tier Tier) uint64 {
	if g, ok := s.gens[tier]; ok {
		return g.Load()
	}
	return 0
}

func (s *Store) advance(tier Tier) {
	if g, ok := s.gens[tier]; ok {
		g.Add(1)
	}
}

// SetIfCurrent stores value only if tier has not been invalidated since gen was
// read, and reports whether the entry was kept. A value built before a racing
// invalidation is never left behind by it.
func (s *Store) SetIfCurrent(key string, value any, ttl time.Duration, tier Tier, gen uint64) bool {
	if s.Generation(tier) != gen {
		return false
	}
	s.Set(key, value, ttl, tier)
	if s.Generation(tier) == gen {
		return true
	}
	// An invalidation started between the check and the write.
	s.remove(key, tier)
	return false
}

// Remove deletes key from tier.
func (s *Store) Remove(key string, tier Tier) {
	s.advance(tier)
	s.remove(key, tier)
}

func (s *Store) remove(key string, tier Tier) {
	b, ok := s.backend(tier)
	if !ok {
		return
	}
	if err := b.remove(key); err != nil {
		s.swallow(tier, "remove", key, err)
	}
}

// RemovePrefix deletes every key starting with prefix and returns how many were removed.
func (s *Store) RemovePrefix(prefix string, tier Tier) int {
	b, ok := s.backend(tier)
	if !ok {
		return 0
	}
	s.advance(tier)
	n, err := b.removePrefix(prefix)
	if err != nil {
		s.swallow(tier, "remove_prefix", prefix, err)
	}
	return n
}

// Clear empties tier.
func (s *Store) Clear(tier Tier) {
	b, ok := s.backend(tier)
	if !ok {
		return
	}
	s.advance(tier)
	if err := b.clear(); err != nil {
		s.swallow(tier, "clear", "", err)
	}
}
