// Package partition implements C8: the engine's public read path — one
// query orchestrating materialize, polygonize, and cache, the way a
// thin service layer sits on top of a storage engine (spec.md §4.8).
//
// Grounded on a production repo's internal/sync orchestration style (a service
// method composing lower-level stores behind one call), generalized here
// from git-sync orchestration to materialize->polygonize->cache.
package partition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/cache"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/index"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/materializer"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/polygon"
	"github.com/GiantCroissant-Lunar/fantasim-world-sub000/internal/topology"
)

// Request names one partition query: the stream, the cutoff to
// materialize at, and the tolerance policy to polygonize with.
type Request struct {
	Stream topology.TruthStreamIdentity
	Cutoff materializer.Cutoff
	Policy polygon.TolerancePolicy
	// EpsilonMin/EpsilonMax bound the Default policy's escalation; ignored
	// for Strict and Lenient.
	EpsilonMin float64
	EpsilonMax float64
}

// Result is the C8 response: the polygon set, its quality metrics, and
// the adjacency graph derived from the same materialized state so
// callers needn't re-fold the log to get both.
type Result struct {
	Polygons   polygon.PlatePolygonSet
	Quality    polygon.QualityMetrics
	Adjacency  *index.AdjacencyGraph
	Diagnostics []topology.Diagnostic
	CacheHit   bool
	// FromSnapshot reports whether state was materialized from the
	// snapshot store after a live chain-integrity failure (§4.5, §7),
	// rather than folded fresh from the log.
	FromSnapshot bool
}

// Service answers partition queries, memoizing by cache identity (§4.8)
// and falling back to the snapshot store when the log fails chain
// verification (§4.5, §7). Constructing multiple independent Services
// with independent caches is supported — nothing here is global state.
type Service struct {
	materializer *materializer.Materializer
	snapshots    *cache.SnapshotStore
	cache        *cache.PartitionCache
	recorder     *polygon.QualityRecorder
	logger       *slog.Logger
	cacheTTLSec  int64
}

// Option configures a Service at construction.
type Option func(*Service)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithQualityRecorder wires otel metric recording into every query.
func WithQualityRecorder(r *polygon.QualityRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithCacheTTLSeconds overrides the default cache entry lifetime.
func WithCacheTTLSeconds(seconds int64) Option {
	return func(s *Service) { s.cacheTTLSec = seconds }
}

const defaultCacheTTLSeconds = 300

// New builds a Service over mat (materialization), snapshots (persisted
// fallback), and c (the in-memory memoization cache). Each of mat,
// snapshots, and c may be independently shared or dedicated per Service.
func New(mat *materializer.Materializer, snapshots *cache.SnapshotStore, c *cache.PartitionCache, opts ...Option) *Service {
	s := &Service{
		materializer: mat, snapshots: snapshots, cache: c,
		logger: slog.Default(), cacheTTLSec: defaultCacheTTLSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query materializes req.Stream at req.Cutoff, polygonizes it under
// req.Policy, and returns the derived adjacency graph, memoizing the
// (stream, cutoff, policy) identity so a repeated identical request is a
// cache hit (§4.8, §8 scenario "cache determinism").
func (s *Service) Query(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	state, fromSnapshot, err := s.materializeWithFallback(ctx, req.Stream, req.Cutoff)
	if err != nil {
		return Result{}, fmt.Errorf("partition: materialize: %w", err)
	}

	key, err := cacheIdentity(req, state)
	if err != nil {
		return Result{}, fmt.Errorf("partition: cache identity: %w", err)
	}

	ttl := time.Duration(s.cacheTTLSec) * time.Second
	value, err, wasCached := s.cache.GetOrCompute(key, ttl, func() (any, error) {
		return s.computeResult(ctx, state, req)
	})
	if err != nil {
		return Result{}, err
	}
	result := value.(Result)
	result.CacheHit = wasCached
	result.FromSnapshot = fromSnapshot

	if s.recorder != nil {
		s.recorder.Record(ctx, result.Quality)
	}
	return result, nil
}

func (s *Service) computeResult(ctx context.Context, state topology.State, req Request) (any, error) {
	opts := polygon.Options{
		Policy: req.Policy, EpsilonMin: req.EpsilonMin, EpsilonMax: req.EpsilonMax,
	}
	set, diags, err := polygon.Polygonize(ctx, state, opts)
	if err != nil {
		return nil, err
	}
	quality := polygon.ComputeQualityMetrics(set.Polygons, diags)
	return Result{
		Polygons: set, Quality: quality, Adjacency: index.Build(state), Diagnostics: diags,
	}, nil
}

// materializeWithFallback tries the live log first; on a chain-integrity
// failure it falls back to the freshest snapshot at or below the
// requested cutoff sequence (§4.5, §7 "ChainIntegrityError ... fallback
// to snapshot"). A successful live materialize is persisted to the
// snapshot store so a later chain-integrity failure has something to
// fall back to; the returned bool reports whether the state actually
// came from a snapshot.
func (s *Service) materializeWithFallback(ctx context.Context, stream topology.TruthStreamIdentity, cutoff materializer.Cutoff) (topology.State, bool, error) {
	state, err := s.materializer.Materialize(ctx, stream, cutoff)
	if err == nil {
		s.persistSnapshot(ctx, state)
		return state, false, nil
	}

	var chainErr *topology.ChainIntegrityError
	if !errors.As(err, &chainErr) || s.snapshots == nil {
		return topology.State{}, false, err
	}

	s.logger.Warn("chain integrity failure, falling back to snapshot",
		"stream", stream.String(), "failed_sequence", chainErr.Sequence)

	bound := cutoffSequenceBound(cutoff)
	snap, found, snapErr := s.snapshots.GetSnapshot(ctx, stream, bound)
	if snapErr != nil {
		return topology.State{}, false, fmt.Errorf("%w (snapshot fallback also failed: %v)", err, snapErr)
	}
	if !found {
		return topology.State{}, false, fmt.Errorf("%w (no snapshot available as fallback)", err)
	}
	return snap, true, nil
}

// persistSnapshot stores state for later fallback use. Persistence is
// best-effort: a failure here only degrades a future chain-integrity
// recovery, so it is logged rather than surfaced to the caller of Query.
func (s *Service) persistSnapshot(ctx context.Context, state topology.State) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.PutSnapshot(ctx, state); err != nil {
		s.logger.Warn("snapshot persistence failed", "stream", state.Identity.String(), "error", err)
	}
}

func cutoffSequenceBound(cutoff materializer.Cutoff) int64 {
	if cutoff.Kind == materializer.CutoffAtSequence {
		return cutoff.Sequence
	}
	return -1
}
