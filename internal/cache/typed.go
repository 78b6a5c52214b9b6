package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetAs reads key and converts it to T. Memory tiers hold T directly; the
// durable tier holds JSON which is decoded into T. A value of the wrong type is
// dropped and reported as a miss.
func GetAs[T any](s *Store, key string, tier Tier) (T, bool) {
	var zero T
	v, ok := s.Get(key, tier)
	if !ok {
		return zero, false
	}

	if typed, ok := v.(T); ok {
		return typed, true
	}

	if raw, ok := v.(json.RawMessage); ok {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			s.swallow(tier, "decode", key, err)
			s.remove(key, tier)
			return zero, false
		}
		return out, true
	}

	s.swallow(tier, "decode", key, fmt.Errorf("cached value is %T", v))
	s.remove(key, tier)
	return zero, false
}

// GetOrSet returns the cached value for key or, on a miss, calls producer and
// caches its result. A producer error is returned unmodified and nothing is cached.
// A result is also not cached when tier is invalidated while producer runs.
//
// If ctx is cancelled while producer runs, GetOrSet returns ctx.Err() but the
// producer keeps running on a detached context and its result is still cached.
// Without Options.Coalesce, concurrent misses each invoke producer.
func GetOrSet[T any](ctx context.Context, s *Store, key string, producer func(context.Context) (T, error), ttl time.Duration, tier Tier) (T, error) {
	if v, ok := GetAs[T](s, key, tier); ok {
		return v, nil
	}

	// Taken before the producer reads anything, so an invalidation during the
	// producer keeps its result out of the cache.
	gen := s.Generation(tier)

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	detached := context.WithoutCancel(ctx)

	go func() {
		if s.coalesce {
			v, err, _ := s.group.Do(string(tier)+"\x00"+key, func() (any, error) {
				value, err := producer(detached)
				if err == nil {
					s.SetIfCurrent(key, value, ttl, tier, gen)
				}
				return value, err
			})
			value, _ := v.(T)
			done <- result{value: value, err: err}
			return
		}

		value, err := producer(detached)
		if err == nil {
			s.SetIfCurrent(key, value, ttl, tier, gen)
		}
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			var zero T
			return zero, r.err
		}
		return r.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
