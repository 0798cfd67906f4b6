package eventlog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/codec"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Log is the append-only, hash-chained event stream store of spec.md §4.3.
// It owns hash-chain computation; callers never supply PreviousHash/Hash
// themselves (any caller-supplied values are overwritten on append).
type Log struct {
	store  kv.Store
	logger *slog.Logger
}

// Option configures a Log at construction, the way a production repo's
// constructors (e.g. internal/storage/dolt.Open) take functional options.
type Option func(*Log)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(lg *Log) { lg.logger = l }
}

// New wraps store as an event log.
func New(store kv.Store, opts ...Option) *Log {
	l := &Log{store: store, logger: slog.Default()}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LastSequence returns the greatest sequence appended to stream, or
// (0, false, nil) if the stream is empty.
func (l *Log) LastSequence(ctx context.Context, stream topology.TruthStreamIdentity) (int64, bool, error) {
	prefix := streamPrefix(stream)
	it, err := l.store.Seek(ctx, prefix)
	if err != nil {
		return 0, false, fmt.Errorf("eventlog: seek for last sequence: %w", err)
	}
	defer it.Close()

	var last int64
	found := false
	for it.Next() {
		seq, err := sequenceFromKey(it.Key())
		if err != nil {
			return 0, false, err
		}
		if !found || seq > last {
			last = seq
			found = true
		}
	}
	if err := it.Err(); err != nil {
		return 0, false, fmt.Errorf("eventlog: iterate for last sequence: %w", err)
	}
	return last, found, nil
}

// Append commits events to stream atomically. Every event's declared
// Stream must equal stream; sequences must be strictly increasing,
// starting at 0 or continuing from LastSequence+1. The log computes
// PreviousHash/Hash itself, ignoring any values already set on the
// events (spec.md §4.3).
func (l *Log) Append(ctx context.Context, stream topology.TruthStreamIdentity, events []topology.Event) error {
	if len(events) == 0 {
		return nil
	}

	last, hasLast, err := l.LastSequence(ctx, stream)
	if err != nil {
		return err
	}
	expected := int64(0)
	if hasLast {
		expected = last + 1
	}

	previousHash, err := l.tailHash(ctx, stream, hasLast, last)
	if err != nil {
		return err
	}

	puts := make([]kv.KV, 0, len(events))
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", topology.ErrCancelled, err)
		}
		if !ev.Stream.Equal(stream) {
			return topology.NewStreamIdentityMismatch(fmt.Sprintf("event %d declares stream %s, append targets %s", i, ev.Stream, stream))
		}
		if ev.Sequence != expected {
			return topology.NewNonMonotonicSequence(fmt.Sprintf("event %d has sequence %d, expected %d", i, ev.Sequence, expected))
		}

		ev.PreviousHash = previousHash
		hash, err := codec.HashEvent(ev, previousHash)
		if err != nil {
			return fmt.Errorf("eventlog: hash event at sequence %d: %w", ev.Sequence, err)
		}
		ev.Hash = hash

		raw, err := codec.EncodeRecord(ev)
		if err != nil {
			return fmt.Errorf("eventlog: encode record at sequence %d: %w", ev.Sequence, err)
		}
		puts = append(puts, kv.KV{Key: recordKey(stream, ev.Sequence), Value: raw})

		previousHash = hash
		expected++
	}

	if err := l.store.WriteBatch(ctx, puts); err != nil {
		return fmt.Errorf("eventlog: write batch: %w", err)
	}
	l.logger.Debug("appended events", "stream", stream.String(), "count", len(events))
	return nil
}

// tailHash returns the hash of the last record in stream, or nil if the
// stream is empty (the genesis previous-hash, per spec.md §4.2).
func (l *Log) tailHash(ctx context.Context, stream topology.TruthStreamIdentity, hasLast bool, last int64) ([]byte, error) {
	if !hasLast {
		return nil, nil
	}
	raw, ok, err := l.store.Get(ctx, recordKey(stream, last))
	if err != nil {
		return nil, fmt.Errorf("eventlog: read tail record: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("eventlog: tail record at sequence %d missing", last)
	}
	ev, err := codec.DecodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("eventlog: decode tail record: %w", err)
	}
	return ev.Hash, nil
}

// EventIterator is a lazily-consumed, chain-verified sequence of events
// (spec.md §9 "Suspension / async": reads are lazy sequences, not a
// callback-driven loop).
type EventIterator struct {
	kvIter       kv.Iterator
	stream       topology.TruthStreamIdentity
	fromSequence int64
	previousHash []byte
	started      bool
	current      topology.Event
	err          error
}

// Next advances to the next event, verifying its hash and chain linkage.
// It returns false at end of stream or on a ChainIntegrityError; callers
// must check Err() to tell the two apart. Records preceding fromSequence
// are skipped without verification; chain linkage for the first emitted
// record is checked against the previousHash the caller anchored at
// fromSequence (see Log.hashBefore).
func (it *EventIterator) Next() bool {
	if it.err != nil {
		return false
	}

	var ev topology.Event
	for {
		if !it.kvIter.Next() {
			it.err = it.kvIter.Err()
			return false
		}

		decoded, err := codec.DecodeRecord(it.kvIter.Value())
		if err != nil {
			it.err = fmt.Errorf("eventlog: decode record: %w", err)
			return false
		}

		seq, err := sequenceFromKey(it.kvIter.Key())
		if err != nil {
			it.err = err
			return false
		}
		if seq != decoded.Sequence {
			it.err = fmt.Errorf("eventlog: key sequence %d does not match payload sequence %d", seq, decoded.Sequence)
			return false
		}
		if seq < it.fromSequence {
			continue
		}
		ev = decoded
		break
	}

	expectedPrev := it.previousHash
	if !bytes.Equal(ev.PreviousHash, expectedPrev) {
		it.err = &topology.ChainIntegrityError{Sequence: ev.Sequence}
		return false
	}
	recomputed, err := codec.HashEvent(ev, expectedPrev)
	if err != nil {
		it.err = fmt.Errorf("eventlog: recompute hash: %w", err)
		return false
	}
	if !bytes.Equal(recomputed, ev.Hash) {
		it.err = &topology.ChainIntegrityError{Sequence: ev.Sequence}
		return false
	}

	it.current = ev
	it.previousHash = ev.Hash
	it.started = true
	return true
}

// Event returns the event most recently yielded by Next.
func (it *EventIterator) Event() topology.Event { return it.current }

// Err returns the terminal error, if iteration stopped early. A plain
// end-of-stream has Err() == nil.
func (it *EventIterator) Err() error { return it.err }

// Close releases the underlying KV iterator.
func (it *EventIterator) Close() error { return it.kvIter.Close() }

// Read returns a lazy, chain-verifying iterator over stream starting at
// fromSequence (inclusive). A ChainIntegrityError surfaces through Err()
// at the first record whose hash or linkage fails to verify; it is never
// silently skipped (spec.md §4.3).
func (l *Log) Read(ctx context.Context, stream topology.TruthStreamIdentity, fromSequence int64) (*EventIterator, error) {
	if fromSequence < 0 {
		fromSequence = 0
	}

	kvIter, err := l.store.Seek(ctx, streamPrefix(stream))
	if err != nil {
		return nil, fmt.Errorf("eventlog: seek stream: %w", err)
	}

	previousHash, err := l.hashBefore(ctx, stream, fromSequence)
	if err != nil {
		_ = kvIter.Close()
		return nil, err
	}

	return &EventIterator{kvIter: kvIter, stream: stream, fromSequence: fromSequence, previousHash: previousHash}, nil
}

// hashBefore returns the hash that should precede fromSequence: nil if
// fromSequence==0, otherwise the stored hash at fromSequence-1 (trusted
// as-is; a read starting mid-stream cannot re-derive genesis without
// reading everything, so it trusts the Hash stored in the preceding
// record and verifies forward from there).
func (l *Log) hashBefore(ctx context.Context, stream topology.TruthStreamIdentity, fromSequence int64) ([]byte, error) {
	if fromSequence <= 0 {
		return nil, nil
	}
	raw, ok, err := l.store.Get(ctx, recordKey(stream, fromSequence-1))
	if err != nil {
		return nil, fmt.Errorf("eventlog: read predecessor record: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("eventlog: no record at sequence %d to anchor read from %d", fromSequence-1, fromSequence)
	}
	ev, err := codec.DecodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("eventlog: decode predecessor record: %w", err)
	}
	return ev.Hash, nil
}

// ReadAll drains Read into a slice; a convenience for callers (tests,
// small streams) that don't need to stream incrementally.
func ReadAll(ctx context.Context, l *Log, stream topology.TruthStreamIdentity, fromSequence int64) ([]topology.Event, error) {
	it, err := l.Read(ctx, stream, fromSequence)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []topology.Event
	for it.Next() {
		out = append(out, it.Event())
	}
	if err := it.Err(); err != nil {
		return out, err
	}
	return out, nil
}
