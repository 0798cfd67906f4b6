package kv

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store backed by a plain map plus a sort pass on
// each Seek. It is not meant to be fast at scale; it exists so tests and
// short-lived callers don't need a bbolt file on disk, mirroring a
// production repo's internal/storage/ephemeral package (an in-memory
// stand-in for the on-disk store with the same interface).
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Put(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *Memory) WriteBatch(_ context.Context, puts []KV) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Atomic from the caller's point of view: we hold the lock for the
	// whole batch, so no reader observes a partial write.
	for _, kv := range puts {
		v := make([]byte, len(kv.Value))
		copy(v, kv.Value)
		m.data[string(kv.Key)] = v
	}
	return nil
}

func (m *Memory) Seek(_ context.Context, prefix []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]KV, len(keys))
	for i, k := range keys {
		pairs[i] = KV{Key: []byte(k), Value: append([]byte(nil), m.data[k]...)}
	}
	return &sliceIterator{pairs: pairs, idx: -1}, nil
}

func (m *Memory) Close() error { return nil }

type sliceIterator struct {
	pairs []KV
	idx   int
}

func (it *sliceIterator) Next() bool {
	it.idx++
	return it.idx < len(it.pairs)
}

func (it *sliceIterator) Key() []byte   { return it.pairs[it.idx].Key }
func (it *sliceIterator) Value() []byte { return it.pairs[it.idx].Value }
func (it *sliceIterator) Err() error    { return nil }
func (it *sliceIterator) Close() error  { return nil }
