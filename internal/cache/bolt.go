package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// envelope is the on-disk form of a durable entry.
type envelope struct {
	Value     json.RawMessage `json:"v"`
	ExpiresAt int64           `json:"e,omitempty"` // unix nanoseconds, 0 = no expiry
}

// boltBackend stores JSON envelopes in a single bbolt bucket.
type boltBackend struct {
	db  *bolt.DB
	now func() time.Time
}

func newBoltBackend(path string, now func() time.Time) (*boltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketEntries, err)
	}

	return &boltBackend{db: db, now: now}, nil
}

func (b *boltBackend) get(key string) (any, bool, bool, error) {
	var env envelope
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &env)
	})
	if err != nil {
		// An undecodable entry is useless; drop it so it stops failing.
		_ = b.remove(key)
		return nil, false, false, fmt.Errorf("decode %q: %w", key, err)
	}
	if !found {
		return nil, false, false, nil
	}

	if env.ExpiresAt > 0 && b.now().UnixNano() > env.ExpiresAt {
		if err := b.remove(key); err != nil {
			return nil, false, true, err
		}
		return nil, false, true, nil
	}
	return env.Value, true, false, nil
}

func (b *boltBackend) set(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	env := envelope{Value: raw}
	if ttl > 0 {
		env.ExpiresAt = b.now().Add(ttl).UnixNano()
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %q: %w", key, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), data)
	})
}

func (b *boltBackend) remove(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(key))
	})
}

func (b *boltBackend) removePrefix(prefix string) (int, error) {
	n := 0
	p := []byte(prefix)
	err := b.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEntries).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); {
			if err := c.Delete(); err != nil {
				return err
			}
			n++
			// Next after Delete skips a key; seek again instead.
			k, _ = c.Seek(p)
		}
		return nil
	})
	return n, err
}

func (b *boltBackend) clear() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEntries)
		return err
	})
}

func (b *boltBackend) close() error {
	return b.db.Close()
}
