package cache

import (
	"context"
	"fmt"
	"sort"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/codec"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/kv"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// snapshotPrefix namespaces the snapshot store's keys within a shared KV
// store so it can live alongside event-log records without collision;
// the event-log's own keys start with "S:" (see internal/eventlog/keys.go)
// and never take this prefix.
const snapshotPrefix = "SNAP:"

// SnapshotStore persists materialized states so C5 can answer a
// materialization request without the log when a later chain-integrity
// failure makes the log unreadable (spec.md §4.5, §7).
type SnapshotStore struct {
	store kv.Store
}

// NewSnapshotStore wraps store as a snapshot namespace.
func NewSnapshotStore(store kv.Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

func snapshotKey(stream topology.TruthStreamIdentity, sequence int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", snapshotPrefix, stream.String(), sequence))
}

// PutSnapshot persists state under its own (stream, last_event_sequence)
// key, retrying transient I/O errors with exponential backoff the way a
// production sync client retries flaky network calls around a remote store.
func (s *SnapshotStore) PutSnapshot(ctx context.Context, state topology.State) error {
	raw, err := codec.EncodeState(state)
	if err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	key := snapshotKey(state.Identity, state.LastEventSequence)

	op := func() error { return s.store.Put(ctx, key, raw) }
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("cache: put snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the freshest snapshot for stream at or below
// atOrBeforeSequence (spec.md §4.5: "the freshest snapshot at or below
// the requested cutoff is returned"). atOrBeforeSequence < 0 means "no
// bound" (the freshest snapshot overall).
func (s *SnapshotStore) GetSnapshot(ctx context.Context, stream topology.TruthStreamIdentity, atOrBeforeSequence int64) (topology.State, bool, error) {
	prefix := []byte(snapshotPrefix + stream.String() + ":")
	it, err := s.store.Seek(ctx, prefix)
	if err != nil {
		return topology.State{}, false, fmt.Errorf("cache: seek snapshots: %w", err)
	}
	defer it.Close()

	var best topology.State
	found := false
	for it.Next() {
		if len(it.Value()) == 0 {
			continue // tombstoned by CompactSnapshots
		}
		st, err := codec.DecodeState(it.Value())
		if err != nil {
			return topology.State{}, false, fmt.Errorf("cache: decode snapshot: %w", err)
		}
		if atOrBeforeSequence >= 0 && st.LastEventSequence > atOrBeforeSequence {
			continue
		}
		if !found || st.LastEventSequence > best.LastEventSequence {
			best = st
			found = true
		}
	}
	if err := it.Err(); err != nil {
		return topology.State{}, false, fmt.Errorf("cache: iterate snapshots: %w", err)
	}
	return best, found, nil
}

// CompactSnapshots removes every snapshot for stream except the newest
// keepLatest, bounding the storage cost of repeated snapshotting
// (SPEC_FULL §12 supplemented feature, generalized from a production
// internal/compact package, which prunes old issue-tracker audit
// entries the same way: keep the newest N, drop the rest).
func (s *SnapshotStore) CompactSnapshots(ctx context.Context, stream topology.TruthStreamIdentity, keepLatest int) (int, error) {
	if keepLatest < 1 {
		return 0, fmt.Errorf("cache: keepLatest must be >= 1, got %d", keepLatest)
	}
	prefix := []byte(snapshotPrefix + stream.String() + ":")
	it, err := s.store.Seek(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("cache: seek snapshots: %w", err)
	}
	type found struct {
		key []byte
		seq int64
	}
	var all []found
	for it.Next() {
		if len(it.Value()) == 0 {
			continue // already tombstoned
		}
		st, err := codec.DecodeState(it.Value())
		if err != nil {
			_ = it.Close()
			return 0, fmt.Errorf("cache: decode snapshot: %w", err)
		}
		all = append(all, found{key: append([]byte(nil), it.Key()...), seq: st.LastEventSequence})
	}
	if err := it.Err(); err != nil {
		_ = it.Close()
		return 0, fmt.Errorf("cache: iterate snapshots: %w", err)
	}
	_ = it.Close()

	if len(all) <= keepLatest {
		return 0, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq > all[j].seq })
	toDrop := all[keepLatest:]
	puts := make([]kv.KV, 0, len(toDrop))
	for _, f := range toDrop {
		puts = append(puts, kv.KV{Key: f.key, Value: nil})
	}
	// The kv.Store contract has no delete; a snapshot compacted away is
	// overwritten with an empty value, which GetSnapshot (like the loop
	// above) skips before calling codec.DecodeState.
	if err := s.store.WriteBatch(ctx, puts); err != nil {
		return 0, fmt.Errorf("cache: compact write batch: %w", err)
	}
	return len(toDrop), nil
}

// ProvenanceManifest is a human-readable summary of one snapshot, for
// operators inspecting a snapshot store outside the engine (config §10.3:
// "direct YAML encode/decode where viper's own unmarshal doesn't apply").
// It carries none of the geometry itself, only counts and identity, so it
// stays small and diffable across snapshot generations.
type ProvenanceManifest struct {
	Stream            string `yaml:"stream"`
	LastEventSequence int64  `yaml:"last_event_sequence"`
	PlateCount        int    `yaml:"plate_count"`
	BoundaryCount     int    `yaml:"boundary_count"`
	JunctionCount     int    `yaml:"junction_count"`
}

// DumpProvenanceManifest renders state's manifest as YAML.
func DumpProvenanceManifest(state topology.State) ([]byte, error) {
	m := ProvenanceManifest{
		Stream:            state.Identity.String(),
		LastEventSequence: state.LastEventSequence,
		PlateCount:        len(state.Plates),
		BoundaryCount:     len(state.Boundaries),
		JunctionCount:     len(state.Junctions),
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal provenance manifest: %w", err)
	}
	return raw, nil
}

// LoadProvenanceManifest parses a manifest previously written by
// DumpProvenanceManifest.
func LoadProvenanceManifest(raw []byte) (ProvenanceManifest, error) {
	var m ProvenanceManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return ProvenanceManifest{}, fmt.Errorf("cache: unmarshal provenance manifest: %w", err)
	}
	return m, nil
}
