package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
)

const selectEvents = `
SELECT global_position, event_id, stream_id, tenant_id, aggregate_type, aggregate_id,
       version, event_type, payload, actor_id, occurred_at
FROM events
`

// EventStore keeps every stream in the events table. Occurrence times are stored in milliseconds.
type EventStore struct {
	db *sql.DB
}

var _ portsrepo.EventStoreFacade = (*EventStore)(nil)

func (s *EventStore) Append(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) ([]domain.Event, error) {
	return s.AppendStreams(ctx, portsrepo.StreamBatch{StreamID: streamID, ExpectedVersion: expectedVersion, Events: events})
}

func (s *EventStore) AppendStreams(ctx context.Context, batches ...portsrepo.StreamBatch) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		if _, dup := seen[b.StreamID]; dup {
			return nil, fmt.Errorf("stream %s appears twice in one append", b.StreamID)
		}
		seen[b.StreamID] = struct{}{}
		if err := domain.ValidateAppend(b.StreamID, b.ExpectedVersion, b.Events); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, b := range batches {
		var current int64
		err := tx.QueryRowContext(ctx, `SELECT version FROM event_streams WHERE stream_id = ?`, b.StreamID).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("read version of stream %s: %w", b.StreamID, err)
		}
		if current != b.ExpectedVersion {
			return nil, apperrors.NewConcurrencyError(b.StreamID, b.ExpectedVersion, current)
		}
	}

	stored := make([]domain.Event, 0)
	for _, b := range batches {
		if len(b.Events) == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO event_streams (stream_id, version) VALUES (?, ?)
ON CONFLICT (stream_id) DO UPDATE SET version = excluded.version
`, b.StreamID, b.ExpectedVersion+int64(len(b.Events))); err != nil {
			return nil, fmt.Errorf("update stream %s: %w", b.StreamID, err)
		}
		for _, evt := range b.Events {
			evt.OccurredAt = evt.OccurredAt.UTC().Truncate(time.Millisecond)
			m := mapping.ToModelEvent(evt)
			res, err := tx.ExecContext(ctx, `
INSERT INTO events (event_id, stream_id, tenant_id, aggregate_type, aggregate_id,
                    version, event_type, payload, actor_id, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, m.EventID, m.StreamID, m.TenantID, m.AggregateType, m.AggregateID,
				m.Version, m.EventType, string(m.Payload), m.ActorID, toMillis(m.OccurredAt))
			if err != nil {
				if isConstraintError(err) {
					return nil, fmt.Errorf("%w: %v", apperrors.ErrConcurrencyConflict, err)
				}
				return nil, fmt.Errorf("append event: %w", err)
			}
			if evt.GlobalPosition, err = res.LastInsertId(); err != nil {
				return nil, fmt.Errorf("read global position: %w", err)
			}
			stored = append(stored, evt)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

func (s *EventStore) ReadStream(ctx context.Context, streamID string, fromVersion int64) ([]domain.Event, error) {
	if fromVersion < 1 {
		fromVersion = 1
	}
	rows, err := s.db.QueryContext(ctx, selectEvents+`WHERE stream_id = ? AND version >= ? ORDER BY version`, streamID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("read stream %s: %w", streamID, err)
	}
	return scanEvents(rows)
}

func (s *EventStore) ReadAll(ctx context.Context, afterPosition int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.db.QueryContext(ctx, selectEvents+`WHERE global_position > ? ORDER BY global_position LIMIT ?`, afterPosition, limit)
	if err != nil {
		return nil, fmt.Errorf("read event feed: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var m models.Event
		var occurredAt int64
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
			&occurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		m.OccurredAt = fromMillis(occurredAt)
		events = append(events, mapping.ToDomainEvent(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
