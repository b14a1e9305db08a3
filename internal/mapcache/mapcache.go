// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mapcache keeps region mapping payloads between runs so the CLI
// and the server do not refetch static data on every call.
package mapcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketMappings = []byte("mappings")

// entry is the stored form of one region's mapping.
type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// Cache stores mapping payloads per region in a bbolt file, with an
// in-memory layer in front of it. With no file it is memory only.
type Cache struct {
	db  *bolt.DB
	now func() time.Time

	mu  sync.RWMutex
	mem map[string]entry
}

// Open opens the cache file at path, creating it and its directory when
// missing. An empty path gives a memory-only cache.
func Open(path string) (*Cache, error) {
	c := &Cache{now: time.Now, mem: make(map[string]entry)}
	if path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMappings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	c.db = db
	return c, nil
}

// Close releases the cache file.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns a copy of the mapping stored for region when it is younger
// than ttl. A ttl of zero or less accepts any age.
func (c *Cache) Get(region string, ttl time.Duration) (json.RawMessage, bool) {
	e, ok := c.load(region)
	if !ok {
		return nil, false
	}
	if ttl > 0 && c.now().Sub(e.StoredAt) >= ttl {
		return nil, false
	}
	return append(json.RawMessage(nil), e.Data...), true
}

// Put stores data as the mapping for region.
func (c *Cache) Put(region string, data json.RawMessage) error {
	e := entry{StoredAt: c.now(), Data: append(json.RawMessage(nil), data...)}

	if c.db != nil {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding mapping: %w", err)
		}
		err = c.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketMappings).Put([]byte(region), raw)
		})
		if err != nil {
			return fmt.Errorf("storing mapping for %q: %w", region, err)
		}
	}

	c.mu.Lock()
	c.mem[region] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) load(region string) (entry, bool) {
	c.mu.RLock()
	e, ok := c.mem[region]
	c.mu.RUnlock()
	if ok || c.db == nil {
		return e, ok
	}

	var raw []byte
	c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMappings).Get([]byte(region)); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if raw == nil || json.Unmarshal(raw, &e) != nil {
		return entry{}, false
	}

	// Promote to memory.
	c.mu.Lock()
	c.mem[region] = e
	c.mu.Unlock()
	return e, true
}
