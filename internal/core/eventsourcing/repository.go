// Package eventsourcing loads aggregates from their event streams and persists their changes.
package eventsourcing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/middleware"
)

// DefaultStoreTimeout bounds every event store call when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithPublisher publishes appended events after every successful save.
func WithPublisher(p messaging.EventPublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithSnapshots enables snapshot reads, and writes every `every` replayed events (0 disables writes).
func WithSnapshots(cache portsrepo.SnapshotCache, every int64) Option {
	return func(s *Store) {
		s.snapshots = cache
		s.snapshotEvery = every
	}
}

// WithTimeout sets the per-call store timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Store appends aggregate changes atomically and publishes them best-effort.
type Store struct {
	events        portsrepo.EventStoreFacade
	publisher     messaging.EventPublisher
	snapshots     portsrepo.SnapshotCache
	snapshotEvery int64
	timeout       time.Duration
}

// NewStore creates a Store over an event store.
func NewStore(events portsrepo.EventStoreFacade, opts ...Option) *Store {
	s := &Store{events: events, timeout: DefaultStoreTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Save appends the uncommitted changes of agg, expecting the stream to be at expectedVersion.
func (s *Store) Save(ctx context.Context, agg domain.Aggregate, expectedVersion int64) error {
	return s.save(ctx, []portsrepo.StreamBatch{batchOf(agg, expectedVersion)}, agg)
}

// SaveAll appends the changes of every aggregate in one atomic write.
// Each stream is expected to still be at the version the aggregate was loaded at.
func (s *Store) SaveAll(ctx context.Context, aggs ...domain.Aggregate) error {
	batches := make([]portsrepo.StreamBatch, 0, len(aggs))
	for _, agg := range aggs {
		if len(agg.Changes()) == 0 {
			continue
		}
		batches = append(batches, batchOf(agg, agg.OriginalVersion()))
	}
	return s.save(ctx, batches, aggs...)
}

func batchOf(agg domain.Aggregate, expectedVersion int64) portsrepo.StreamBatch {
	return portsrepo.StreamBatch{
		StreamID:        domain.StreamID(agg.TenantID(), agg.AggregateType(), agg.AggregateID()),
		ExpectedVersion: expectedVersion,
		Events:          agg.Changes(),
	}
}

func (s *Store) save(ctx context.Context, batches []portsrepo.StreamBatch, aggs ...domain.Aggregate) error {
	if len(batches) == 0 || len(aggs) == 0 {
		return nil
	}
	for _, agg := range aggs {
		if agg.TenantID() == "" {
			return domain.ErrTenantRequired
		}
	}
	first := aggs[0]

	appendCtx, cancel := s.withTimeout(ctx)
	stored, err := s.events.AppendStreams(appendCtx, batches...)
	cancel()
	if err != nil {
		return apperrors.NewInfraError("event_store.append", first.TenantID(), first.AggregateID(), err)
	}

	for _, agg := range aggs {
		agg.MarkCommitted()
	}
	s.publish(ctx, stored)
	return nil
}

// publish is detached from the caller's cancellation; the append has already happened.
func (s *Store) publish(ctx context.Context, events []domain.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	pubCtx, cancel := s.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.publisher.Publish(pubCtx, events); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish appended events",
			slog.String("error", err.Error()),
			slog.Int("event_count", len(events)),
			slog.String("first_stream", events[0].StreamID()))
	}
}

// ReadStream reads a stream under the store timeout.
func (s *Store) ReadStream(ctx context.Context, streamID string, fromVersion int64) ([]domain.Event, error) {
	readCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.events.ReadStream(readCtx, streamID, fromVersion)
}

// versionSetter is implemented by aggregates that can be restored from a snapshot.
type versionSetter interface {
	SetVersion(version int64)
}

// Repository loads aggregates of one type.
type Repository[T domain.Aggregate] struct {
	store         *Store
	aggregateType domain.AggregateType
	newAggregate  func(tenantID, aggregateID string) T
}

// NewRepository creates a typed repository. newAggregate returns an empty aggregate ready for replay.
func NewRepository[T domain.Aggregate](store *Store, aggregateType domain.AggregateType, newAggregate func(tenantID, aggregateID string) T) *Repository[T] {
	return &Repository[T]{store: store, aggregateType: aggregateType, newAggregate: newAggregate}
}

// Load rebuilds the aggregate from its stream, starting from a snapshot when one is available.
// A stream without events yields an error wrapping apperrors.ErrNotFound.
func (r *Repository[T]) Load(ctx context.Context, tenantID, aggregateID string) (T, error) {
	var zero T
	if tenantID == "" {
		return zero, domain.ErrTenantRequired
	}
	streamID := domain.StreamID(tenantID, r.aggregateType, aggregateID)
	agg := r.newAggregate(tenantID, aggregateID)

	agg, snapVersion := r.loadSnapshot(ctx, streamID, agg)
	fromVersion := snapVersion + 1

	events, err := r.store.ReadStream(ctx, streamID, fromVersion)
	if err != nil {
		return zero, apperrors.NewInfraError("event_store.read_stream", tenantID, aggregateID, err)
	}
	if len(events) == 0 && fromVersion == 1 {
		return zero, fmt.Errorf("%w: stream %s", apperrors.ErrNotFound, streamID)
	}
	for _, evt := range events {
		if evt.TenantID != tenantID {
			return zero, domain.Errorf(domain.ErrTenantMismatch, "event %s belongs to tenant %s, not %s", evt.EventID, evt.TenantID, tenantID)
		}
	}
	if err := domain.Replay(agg, events); err != nil {
		return zero, err
	}

	if r.store.snapshots != nil && r.store.snapshotEvery > 0 && int64(len(events)) >= r.store.snapshotEvery {
		r.saveSnapshot(ctx, streamID, agg)
	}
	return agg, nil
}

// Save appends the changes of agg at expectedVersion.
func (r *Repository[T]) Save(ctx context.Context, agg T, expectedVersion int64) error {
	return r.store.Save(ctx, agg, expectedVersion)
}

// loadSnapshot returns the aggregate restored from the cache and its version, or (agg, 0) on a miss.
// Cache errors are logged and treated as misses.
func (r *Repository[T]) loadSnapshot(ctx context.Context, streamID string, agg T) (T, int64) {
	if r.store.snapshots == nil {
		return agg, 0
	}
	snapCtx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	logger := middleware.GetLoggerFromCtx(ctx)
	snap, err := r.store.snapshots.LoadSnapshot(snapCtx, streamID)
	if err != nil {
		logger.Warn("Snapshot lookup failed, replaying full stream", slog.String("stream_id", streamID), slog.String("error", err.Error()))
		return agg, 0
	}
	if snap == nil || snap.Version <= 0 {
		return agg, 0
	}

	restored := r.newAggregate(agg.TenantID(), agg.AggregateID())
	setter, ok := any(restored).(versionSetter)
	if !ok {
		return agg, 0
	}
	if err := json.Unmarshal(snap.State, restored); err != nil {
		logger.Warn("Discarding unreadable snapshot", slog.String("stream_id", streamID), slog.String("error", err.Error()))
		return agg, 0
	}
	setter.SetVersion(snap.Version)
	return restored, snap.Version
}

func (r *Repository[T]) saveSnapshot(ctx context.Context, streamID string, agg T) {
	state, err := json.Marshal(agg)
	if err != nil {
		return
	}
	snapCtx, cancel := r.store.withTimeout(ctx)
	defer cancel()
	if err := r.store.snapshots.SaveSnapshot(snapCtx, portsrepo.Snapshot{StreamID: streamID, Version: agg.Version(), State: state}); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to save snapshot", slog.String("stream_id", streamID), slog.String("error", err.Error()))
	}
}
