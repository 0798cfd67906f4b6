package kv

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// defaultBucket is the single bucket backing a Bolt store. The key layout
// itself (§4.3) already encodes stream/namespace separation, so there is
// no need for bbolt-level bucket-per-stream partitioning.
var defaultBucket = []byte("kv")

// Bolt is an on-disk Store backed by go.etcd.io/bbolt. Its B+Tree gives
// ordered iteration for free, and Cursor.Seek implements prefix scan
// directly; bolt.Tx.Bucket.Put inside a single Update gives the atomic
// batch write §4.1 requires.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if absent) a bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("kv: open bolt store %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(defaultBucket).Get(key)
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("kv: get: %w", err)
	}
	return out, out != nil, nil
}

func (b *Bolt) Put(_ context.Context, key, value []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("kv: put: %w", err)
	}
	return nil
}

func (b *Bolt) WriteBatch(_ context.Context, puts []KV) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(defaultBucket)
		for _, kv := range puts {
			if err := bucket.Put(kv.Key, kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kv: write batch: %w", err)
	}
	return nil
}

func (b *Bolt) Seek(_ context.Context, prefix []byte) (Iterator, error) {
	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("kv: begin read tx: %w", err)
	}
	c := tx.Bucket(defaultBucket).Cursor()
	return &boltIterator{tx: tx, cursor: c, prefix: prefix, first: true}, nil
}

func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("kv: close bolt store: %w", err)
	}
	return nil
}

type boltIterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	prefix []byte
	first  bool
	key    []byte
	value  []byte
	err    error
	closed bool
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if it.first {
		it.first = false
		k, v = it.cursor.Seek(it.prefix)
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil || !bytes.HasPrefix(k, it.prefix) {
		_ = it.Close()
		return false
	}
	it.key = append([]byte(nil), k...)
	it.value = append([]byte(nil), v...)
	return true
}

func (it *boltIterator) Key() []byte   { return it.key }
func (it *boltIterator) Value() []byte { return it.value }
func (it *boltIterator) Err() error    { return it.err }

func (it *boltIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.tx.Rollback()
}
