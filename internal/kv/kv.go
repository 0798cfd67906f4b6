// Package kv defines the ordered key-value substrate (spec.md §4.1, C1)
// that the event log and snapshot store are built on: byte-level
// get/put, atomic batch writes, and prefix-seekable iteration in
// lexicographic key order.
//
// Two implementations are provided: Memory (an in-process sorted map,
// used by tests and ephemeral callers) and Bolt (an on-disk go.etcd.io/bbolt
// database, grounded on the bbolt dependency the erigon-lib pack member
// carries indirectly — bbolt's B+Tree buckets and Cursor.Seek give exactly
// the ordered-iteration/prefix-scan contract this package asks for).
package kv

import "context"

// KV op wraps one key-value pair written as part of a WriteBatch.
type KV struct {
	Key   []byte
	Value []byte
}

// Iterator yields (key, value) pairs in ascending lexicographic key order
// starting at the seeked prefix.
type Iterator interface {
	// Next advances the iterator. Returns false when exhausted or on error;
	// call Err() to distinguish the two.
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Store is the C1 contract: byte-level KV with prefix scan, atomic batch,
// and deterministic iteration order.
type Store interface {
	// Get returns the value for key, or (nil, false, nil) if absent.
	Get(ctx context.Context, key []byte) (value []byte, ok bool, err error)

	// Put writes a single key-value pair.
	Put(ctx context.Context, key, value []byte) error

	// WriteBatch commits all of puts atomically: either all are visible to
	// subsequent reads, or (on error) none are.
	WriteBatch(ctx context.Context, puts []KV) error

	// Seek returns an Iterator positioned at the first key >= prefix that
	// still has prefix as a byte-prefix; iteration stops once keys no
	// longer share that prefix.
	Seek(ctx context.Context, prefix []byte) (Iterator, error)

	Close() error
}
