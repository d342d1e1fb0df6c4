package pgsql

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// appendLockKey is the transaction-scoped advisory lock taken by every append.
// Holding it while positions are assigned keeps the global feed gap free for readers.
const appendLockKey int64 = 0x6c6564676572

const selectEvents = `
	SELECT global_position, event_id, stream_id, tenant_id, aggregate_type, aggregate_id,
	       version, event_type, payload, actor_id, occurred_at
	FROM events
`

// PgxEventStore keeps streams in the events table with per-stream versions in event_streams.
type PgxEventStore struct {
	BaseRepository
}

func newPgxEventStore(pool *pgxpool.Pool) *PgxEventStore {
	return &PgxEventStore{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.EventStoreFacade = (*PgxEventStore)(nil)

func (s *PgxEventStore) Append(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) ([]domain.Event, error) {
	return s.AppendStreams(ctx, portsrepo.StreamBatch{StreamID: streamID, ExpectedVersion: expectedVersion, Events: events})
}

// AppendStreams writes every batch in one transaction after checking each stream's version.
func (s *PgxEventStore) AppendStreams(ctx context.Context, batches ...portsrepo.StreamBatch) ([]domain.Event, error) {
	seen := make(map[string]struct{}, len(batches))
	total := 0
	for _, b := range batches {
		if _, dup := seen[b.StreamID]; dup {
			return nil, fmt.Errorf("stream %s appears twice in one append", b.StreamID)
		}
		seen[b.StreamID] = struct{}{}
		if err := domain.ValidateAppend(b.StreamID, b.ExpectedVersion, b.Events); err != nil {
			return nil, err
		}
		total += len(b.Events)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return nil, apperrors.NewAppError(500, "failed to lock event store for append", err)
	}

	for _, b := range batches {
		var current int64
		err := tx.QueryRow(ctx, `SELECT version FROM event_streams WHERE stream_id = $1`, b.StreamID).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAppError(500, "failed to read version of stream "+b.StreamID, err)
		}
		if current != b.ExpectedVersion {
			return nil, apperrors.NewConcurrencyError(b.StreamID, b.ExpectedVersion, current)
		}
	}

	batch := &pgx.Batch{}
	for _, b := range batches {
		if len(b.Events) == 0 {
			continue
		}
		batch.Queue(`
			INSERT INTO event_streams (stream_id, version) VALUES ($1, $2)
			ON CONFLICT (stream_id) DO UPDATE SET version = EXCLUDED.version
		`, b.StreamID, b.ExpectedVersion+int64(len(b.Events)))
	}
	stored := make([]domain.Event, 0, total)
	for _, b := range batches {
		for _, evt := range b.Events {
			m := mapping.ToModelEvent(evt)
			batch.Queue(`
				INSERT INTO events (event_id, stream_id, tenant_id, aggregate_type, aggregate_id,
				                    version, event_type, payload, actor_id, occurred_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING global_position
			`, m.EventID, m.StreamID, m.TenantID, m.AggregateType, m.AggregateID,
				m.Version, m.EventType, m.Payload, m.ActorID, m.OccurredAt)
			stored = append(stored, evt)
		}
	}

	br := tx.SendBatch(ctx, batch)
	streamWrites := batch.Len() - len(stored)
	for i := 0; i < streamWrites; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, appendError(err)
		}
	}
	for i := range stored {
		if err := br.QueryRow().Scan(&stored[i].GlobalPosition); err != nil {
			_ = br.Close()
			return nil, appendError(err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, appendError(err)
	}

	if err := s.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return stored, nil
}

// appendError maps a unique violation (same stream version or event id written twice) to a conflict.
func appendError(err error) error {
	if pgErrorCode(err) == uniqueViolation {
		return fmt.Errorf("%w: %v", apperrors.ErrConcurrencyConflict, err)
	}
	return apperrors.NewAppError(500, "failed to append events", err)
}

func (s *PgxEventStore) ReadStream(ctx context.Context, streamID string, fromVersion int64) ([]domain.Event, error) {
	if fromVersion < 1 {
		fromVersion = 1
	}
	rows, err := s.Pool.Query(ctx, selectEvents+`
		WHERE stream_id = $1 AND version >= $2
		ORDER BY version
	`, streamID, fromVersion)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to read stream "+streamID, err)
	}
	return scanEvents(rows)
}

func (s *PgxEventStore) ReadAll(ctx context.Context, afterPosition int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.Pool.Query(ctx, selectEvents+`
		WHERE global_position > $1
		ORDER BY global_position
		LIMIT $2
	`, afterPosition, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to read event feed", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var m models.Event
		if err := rows.Scan(
			&m.GlobalPosition,
			&m.EventID,
			&m.StreamID,
			&m.TenantID,
			&m.AggregateType,
			&m.AggregateID,
			&m.Version,
			&m.EventType,
			&m.Payload,
			&m.ActorID,
			&m.OccurredAt,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan event row", err)
		}
		events = append(events, mapping.ToDomainEvent(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating event rows", err)
	}
	return events, nil
}
