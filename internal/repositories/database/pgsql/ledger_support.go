package pgsql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxSequenceAllocator keeps one counter row per (tenant, journal type, month).
// The upsert takes a row lock, so concurrent callers are serialized per key.
type PgxSequenceAllocator struct {
	BaseRepository
}

func newPgxSequenceAllocator(pool *pgxpool.Pool) *PgxSequenceAllocator {
	return &PgxSequenceAllocator{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SequenceAllocator = (*PgxSequenceAllocator)(nil)

func (a *PgxSequenceAllocator) NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error) {
	var next int64
	err := a.Pool.QueryRow(ctx, `
		INSERT INTO journal_sequences (tenant_id, journal_type, year_month, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, journal_type, year_month)
		DO UPDATE SET last_value = journal_sequences.last_value + 1
		RETURNING last_value
	`, tenantID, journalType.Code(), ym.String()).Scan(&next)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to allocate sequence "+domain.SequenceKey(tenantID, journalType, ym), err)
	}
	return next, nil
}

// PgxPeriodRepository stores closed periods; a period without a row is open.
type PgxPeriodRepository struct {
	BaseRepository
}

func newPgxPeriodRepository(pool *pgxpool.Pool) *PgxPeriodRepository {
	return &PgxPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PeriodRepositoryFacade = (*PgxPeriodRepository)(nil)

func (r *PgxPeriodRepository) IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	var closed bool
	err := r.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM closed_periods WHERE tenant_id = $1 AND fiscal_period = $2)
	`, tenantID, domain.FiscalPeriodOf(date)).Scan(&closed)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to read period status", err)
	}
	return !closed, nil
}

func (r *PgxPeriodRepository) ClosePeriod(ctx context.Context, tenantID, fiscalPeriod, actorID string) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO closed_periods (tenant_id, fiscal_period, closed_by, closed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, fiscal_period) DO NOTHING
	`, tenantID, fiscalPeriod, actorID, time.Now().UTC())
	if err != nil {
		return apperrors.NewAppError(500, "failed to close period "+fiscalPeriod, err)
	}
	return nil
}

func (r *PgxPeriodRepository) ReopenPeriod(ctx context.Context, tenantID, fiscalPeriod string) error {
	if _, err := r.Pool.Exec(ctx, `DELETE FROM closed_periods WHERE tenant_id = $1 AND fiscal_period = $2`, tenantID, fiscalPeriod); err != nil {
		return apperrors.NewAppError(500, "failed to reopen period "+fiscalPeriod, err)
	}
	return nil
}

// PgxDeadLetterStore is the projection_dead_letters table.
type PgxDeadLetterStore struct {
	BaseRepository
}

func newPgxDeadLetterStore(pool *pgxpool.Pool) *PgxDeadLetterStore {
	return &PgxDeadLetterStore{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DeadLetterStore = (*PgxDeadLetterStore)(nil)

func (s *PgxDeadLetterStore) Quarantine(ctx context.Context, projection string, evt domain.Event, reason string) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", evt.EventID, err)
	}
	now := time.Now().UTC()
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO projection_dead_letters (id, projection, event_id, event, global_position, version,
		                                     reason, attempts, first_failed_at, last_failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)
		ON CONFLICT (projection, event_id) DO UPDATE SET
			attempts = projection_dead_letters.attempts + 1,
			reason = EXCLUDED.reason,
			last_failed_at = EXCLUDED.last_failed_at
	`, uuid.NewString(), projection, evt.EventID, raw, evt.GlobalPosition, evt.Version, reason, now)
	if err != nil {
		return apperrors.NewAppError(500, "failed to quarantine event "+evt.EventID, err)
	}
	return nil
}

func (s *PgxDeadLetterStore) ListDeadLetters(ctx context.Context, projection string, limit int) ([]portsrepo.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, projection, event, reason, attempts, first_failed_at, last_failed_at
		FROM projection_dead_letters
		WHERE projection = $1
		ORDER BY global_position, version
		LIMIT $2
	`, projection, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to list dead letters", err)
	}
	defer rows.Close()

	letters := make([]portsrepo.DeadLetter, 0)
	for rows.Next() {
		var dl portsrepo.DeadLetter
		var raw []byte
		if err := rows.Scan(&dl.ID, &dl.Projection, &raw, &dl.Reason, &dl.Attempts, &dl.FirstFailedAt, &dl.LastFailedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan dead letter row", err)
		}
		if err := json.Unmarshal(raw, &dl.Event); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter %s: %w", dl.ID, err)
		}
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating dead letter rows", err)
	}
	return letters, nil
}

func (s *PgxDeadLetterStore) RecordFailure(ctx context.Context, id string, reason string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE projection_dead_letters SET attempts = attempts + 1, reason = $2, last_failed_at = $3
		WHERE id = $1
	`, id, reason, time.Now().UTC())
	if err != nil {
		return apperrors.NewAppError(500, "failed to record dead letter failure", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: dead letter %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func (s *PgxDeadLetterStore) Resolve(ctx context.Context, id string) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM projection_dead_letters WHERE id = $1`, id); err != nil {
		return apperrors.NewAppError(500, "failed to resolve dead letter "+id, err)
	}
	return nil
}

// PgxCheckpointStore is the projection_checkpoints table. Positions only move forward.
type PgxCheckpointStore struct {
	BaseRepository
}

func newPgxCheckpointStore(pool *pgxpool.Pool) *PgxCheckpointStore {
	return &PgxCheckpointStore{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CheckpointStore = (*PgxCheckpointStore)(nil)

func (s *PgxCheckpointStore) LoadCheckpoint(ctx context.Context, name string) (int64, error) {
	var position int64
	err := s.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(position), 0) FROM projection_checkpoints WHERE name = $1`, name).Scan(&position)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to load checkpoint "+name, err)
	}
	return position, nil
}

func (s *PgxCheckpointStore) SaveCheckpoint(ctx context.Context, name string, position int64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO projection_checkpoints (name, position, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET position = EXCLUDED.position, updated_at = NOW()
		WHERE projection_checkpoints.position < EXCLUDED.position
	`, name, position)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save checkpoint "+name, err)
	}
	return nil
}

// PgxLeaseLocker grants leases with session advisory locks held on a dedicated connection.
// The lease lasts until released or until the connection drops; ttl is not enforced by the server.
type PgxLeaseLocker struct {
	BaseRepository
}

func newPgxLeaseLocker(pool *pgxpool.Pool) *PgxLeaseLocker {
	return &PgxLeaseLocker{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LeaseLocker = (*PgxLeaseLocker)(nil)

func (l *PgxLeaseLocker) TryAcquire(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, bool, error) {
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return nil, false, apperrors.NewAppError(500, "failed to acquire connection for lease", err)
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, apperrors.NewAppError(500, "failed to take lease "+key, err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
			// A closed connection drops the lock with it.
			_ = conn.Conn().Close(ctx)
			return apperrors.NewAppError(500, "failed to release lease "+key, err)
		}
		return nil
	}
	return release, true, nil
}
