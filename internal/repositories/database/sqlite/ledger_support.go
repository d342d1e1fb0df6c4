package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
)

// SequenceAllocator keeps journal-number counters in journal_sequences.
type SequenceAllocator struct {
	db *sql.DB
}

var _ portsrepo.SequenceAllocator = (*SequenceAllocator)(nil)

func (a *SequenceAllocator) NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error) {
	var next int64
	err := a.db.QueryRowContext(ctx, `
INSERT INTO journal_sequences (tenant_id, journal_type, year_month, last_value)
VALUES (?, ?, ?, 1)
ON CONFLICT (tenant_id, journal_type, year_month) DO UPDATE SET last_value = last_value + 1
RETURNING last_value
`, tenantID, journalType.Code(), ym.String()).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", domain.SequenceKey(tenantID, journalType, ym), err)
	}
	return next, nil
}

// PeriodRepository stores closed periods in closed_periods.
type PeriodRepository struct {
	db *sql.DB
}

var _ portsrepo.PeriodRepositoryFacade = (*PeriodRepository)(nil)

func (r *PeriodRepository) IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	var closed bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM closed_periods WHERE tenant_id = ? AND fiscal_period = ?)`,
		tenantID, domain.FiscalPeriodOf(date)).Scan(&closed)
	if err != nil {
		return false, fmt.Errorf("read period status: %w", err)
	}
	return !closed, nil
}

func (r *PeriodRepository) ClosePeriod(ctx context.Context, tenantID, fiscalPeriod, actorID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO closed_periods (tenant_id, fiscal_period, closed_by, closed_at) VALUES (?, ?, ?, ?)
ON CONFLICT (tenant_id, fiscal_period) DO NOTHING
`, tenantID, fiscalPeriod, actorID, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("close period %s: %w", fiscalPeriod, err)
	}
	return nil
}

func (r *PeriodRepository) ReopenPeriod(ctx context.Context, tenantID, fiscalPeriod string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM closed_periods WHERE tenant_id = ? AND fiscal_period = ?`, tenantID, fiscalPeriod); err != nil {
		return fmt.Errorf("reopen period %s: %w", fiscalPeriod, err)
	}
	return nil
}

// DeadLetterStore is the projection_dead_letters table.
type DeadLetterStore struct {
	db *sql.DB
}

var _ portsrepo.DeadLetterStore = (*DeadLetterStore)(nil)

func (s *DeadLetterStore) Quarantine(ctx context.Context, projection string, evt domain.Event, reason string) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.EventID, err)
	}
	now := toMillis(time.Now())
	_, err = s.db.ExecContext(ctx, `
INSERT INTO projection_dead_letters (id, projection, event_id, event, global_position, version,
                                     reason, attempts, first_failed_at, last_failed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (projection, event_id) DO UPDATE SET
	attempts = attempts + 1,
	reason = excluded.reason,
	last_failed_at = excluded.last_failed_at
`, uuid.NewString(), projection, evt.EventID, string(raw), evt.GlobalPosition, evt.Version, reason, now, now)
	if err != nil {
		return fmt.Errorf("quarantine event %s: %w", evt.EventID, err)
	}
	return nil
}

func (s *DeadLetterStore) ListDeadLetters(ctx context.Context, projection string, limit int) ([]portsrepo.DeadLetter, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, projection, event, reason, attempts, first_failed_at, last_failed_at
FROM projection_dead_letters
WHERE projection = ?
ORDER BY global_position, version
LIMIT ?
`, projection, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	letters := make([]portsrepo.DeadLetter, 0)
	for rows.Next() {
		var (
			dl                      portsrepo.DeadLetter
			raw                     string
			firstFailed, lastFailed int64
		)
		if err := rows.Scan(&dl.ID, &dl.Projection, &raw, &dl.Reason, &dl.Attempts, &firstFailed, &lastFailed); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &dl.Event); err != nil {
			return nil, fmt.Errorf("decode dead letter %s: %w", dl.ID, err)
		}
		dl.FirstFailedAt = fromMillis(firstFailed)
		dl.LastFailedAt = fromMillis(lastFailed)
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return letters, nil
}

func (s *DeadLetterStore) RecordFailure(ctx context.Context, id string, reason string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE projection_dead_letters SET attempts = attempts + 1, reason = ?, last_failed_at = ? WHERE id = ?
`, reason, toMillis(time.Now()), id)
	if err != nil {
		return fmt.Errorf("record dead letter failure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: dead letter %s", apperrors.ErrNotFound, id)
	}
	return nil
}

func (s *DeadLetterStore) Resolve(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projection_dead_letters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("resolve dead letter %s: %w", id, err)
	}
	return nil
}

// CheckpointStore is the projection_checkpoints table. Positions only move forward.
type CheckpointStore struct {
	db *sql.DB
}

var _ portsrepo.CheckpointStore = (*CheckpointStore)(nil)

func (s *CheckpointStore) LoadCheckpoint(ctx context.Context, name string) (int64, error) {
	var position int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM projection_checkpoints WHERE name = ?`, name).Scan(&position); err != nil {
		return 0, fmt.Errorf("load checkpoint %s: %w", name, err)
	}
	return position, nil
}

func (s *CheckpointStore) SaveCheckpoint(ctx context.Context, name string, position int64) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO projection_checkpoints (name, position, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at
WHERE projection_checkpoints.position < excluded.position
`, name, position, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", name, err)
	}
	return nil
}
