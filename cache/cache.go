// Package cache is a schema-compile result cache: an optimization atop
// schema.Load for callers (the batch runner, the HTTP service) that
// repeatedly validate against the same schema document. Correctness
// never depends on the cache being warm — a miss simply falls through
// to schema.Load.
//
// The cache has two tiers. The hot tier is an in-process
// map[uint64]*schema.Document: a genuine compiled-document cache, so a
// Load call against an already-seen key never calls schema.Load again
// and never re-runs the meta-schema check or AST build. The bbolt/zstd
// tier underneath is a cross-process, cross-restart store of raw
// schema bytes only — a *schema.Document holds compiled
// *regexp.Regexp values with no stable binary encoding, so it is never
// itself persisted. A bbolt hit after a fresh process start therefore
// still pays for one schema.Load call, but that call populates the
// in-process tier so every subsequent Load with the same key is a true
// no-recompile hit for the lifetime of the Cache.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
)

var bucketName = []byte("schema_documents")

// Cache stores compiled schema.Document values in memory, keyed by the
// xxhash of the raw schema bytes, backed by a bbolt database that
// persists the raw bytes (not the compiled form) across restarts.
type Cache struct {
	db      *bolt.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu   sync.RWMutex
	docs map[uint64]*schema.Document
}

// Open opens (creating if absent) a bbolt database at path for use as a
// compile cache.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:      time.Second,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create bucket: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: zstd reader: %w", err)
	}
	return &Cache{db: db, encoder: enc, decoder: dec, docs: map[uint64]*schema.Document{}}, nil
}

// Close releases the underlying bbolt handle.
func (c *Cache) Close() error {
	c.encoder.Close()
	c.decoder.Close()
	return c.db.Close()
}

// Key hashes raw schema bytes into the cache's lookup key.
func Key(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}

// Load returns a compiled schema.Document for raw. A key already
// compiled in this process is returned directly with no call to
// schema.Load at all; a key only known to the bbolt store pays for one
// schema.Load to compile it and is a true no-recompile hit from then
// on; a key seen nowhere falls through to schema.Load and is stored in
// both tiers for next time.
func (c *Cache) Load(raw []byte) (*schema.Document, error) {
	key := Key(raw)

	if doc, ok := c.lookupCompiled(key); ok {
		log.Debugf("cache: compiled hit for key %x", key)
		return doc, nil
	}

	if persisted, ok := c.lookupBytes(key); ok {
		doc, err := schema.Load(persisted)
		if err != nil {
			log.Warnf("cache: persisted entry for key %x no longer loads: %v", key, err)
		} else {
			log.Debugf("cache: bbolt hit for key %x, compiled once into the in-process cache", key)
			c.storeCompiled(key, doc)
			return doc, nil
		}
	}

	doc, err := schema.Load(raw)
	if err != nil {
		return nil, err
	}
	c.storeCompiled(key, doc)
	if err := c.persistBytes(key, raw); err != nil {
		log.Warnf("cache: failed to persist key %x: %v", key, err)
	}
	return doc, nil
}

func (c *Cache) lookupCompiled(key uint64) (*schema.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[key]
	return doc, ok
}

func (c *Cache) storeCompiled(key uint64, doc *schema.Document) {
	c.mu.Lock()
	c.docs[key] = doc
	c.mu.Unlock()
}

// lookupBytes decompresses the persisted raw schema bytes for key, if
// present. Compiled regexes are never serialized — they are cheap to
// recompile and regexp.Regexp has no stable binary encoding — so what
// bbolt holds is only ever the bytes schema.Load was originally given.
func (c *Cache) lookupBytes(key uint64) ([]byte, bool) {
	var compressed []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		v := b.Get(keyBytes(key))
		if v != nil {
			compressed = append([]byte(nil), v...)
		}
		return nil
	})
	if compressed == nil {
		return nil, false
	}
	raw, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		log.Warnf("cache: corrupt entry for key %x: %v", key, err)
		return nil, false
	}
	return raw, true
}

func (c *Cache) persistBytes(key uint64, raw []byte) error {
	compressed := c.encoder.EncodeAll(raw, nil)
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put(keyBytes(key), compressed)
	})
}

func keyBytes(key uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(key >> (8 * i))
	}
	return b
}
