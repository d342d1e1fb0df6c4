package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/SscSPs/mma_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const journalColumns = `
	tenant_id, journal_id, journal_number, journal_date, journal_type, description, reference,
	status, fiscal_period, is_reversing, original_journal_id, reversing_journal_id, lines,
	total_debit, total_credit, posted_at, posted_by, cancel_reason, version,
	created_at, created_by, last_updated_at, last_updated_by
`

// PgxJournalReadModel is the journal_views table.
type PgxJournalReadModel struct {
	BaseRepository
}

func newPgxJournalReadModel(pool *pgxpool.Pool) *PgxJournalReadModel {
	return &PgxJournalReadModel{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.JournalReadModelFacade = (*PgxJournalReadModel)(nil)

func (r *PgxJournalReadModel) FindJournalByID(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error) {
	return r.findOne(ctx, `WHERE tenant_id = $1 AND journal_id = $2`, tenantID, journalID)
}

func (r *PgxJournalReadModel) FindJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error) {
	return r.findOne(ctx, `WHERE tenant_id = $1 AND journal_number = $2`, tenantID, journalNumber)
}

func (r *PgxJournalReadModel) findOne(ctx context.Context, where string, args ...any) (*domain.JournalView, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+journalColumns+` FROM journal_views `+where, args...)
	m, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find journal", err)
	}
	view, err := mapping.ToDomainJournal(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to map journal row", err)
	}
	return &view, nil
}

// ListJournals pages by (journal_date DESC, journal_id DESC).
func (r *PgxJournalReadModel) ListJournals(ctx context.Context, tenantID string, filter portsrepo.JournalFilter) ([]domain.JournalView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(clause string, values ...any) {
		for _, v := range values {
			args = append(args, v)
			clause = strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
		}
		clauses = append(clauses, clause)
	}
	if filter.Status != nil {
		add("status = ?", string(*filter.Status))
	}
	if filter.JournalType != nil {
		add("journal_type = ?", string(*filter.JournalType))
	}
	if filter.FiscalPeriod != "" {
		add("fiscal_period = ?", filter.FiscalPeriod)
	}
	if filter.DateFrom != nil {
		add("journal_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		add("journal_date <= ?", filter.DateTo.UTC())
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		lastDate, lastID, err := pagination.DecodeJournalToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		// Tuple comparison matches the ORDER BY below.
		add("(journal_date, journal_id) < (?, ?)", lastDate.UTC(), lastID)
	}
	args = append(args, limit+1)
	query := `SELECT ` + journalColumns + ` FROM journal_views WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY journal_date DESC, journal_id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query journals for tenant "+tenantID, err)
	}
	defer rows.Close()

	journals := make([]domain.JournalView, 0, limit+1)
	for rows.Next() {
		m, err := scanJournal(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan journal row", err)
		}
		view, err := mapping.ToDomainJournal(m)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to map journal row", err)
		}
		journals = append(journals, view)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating journal rows", err)
	}

	var next *string
	if len(journals) > limit {
		journals = journals[:limit]
		last := journals[limit-1]
		token := pagination.EncodeJournalToken(last.JournalDate, last.JournalID)
		next = &token
	}
	return journals, next, nil
}

// UpsertJournal inserts when expectedVersion is 0 and otherwise updates only a row still at expectedVersion.
func (r *PgxJournalReadModel) UpsertJournal(ctx context.Context, view domain.JournalView, expectedVersion int64) (bool, error) {
	m, err := mapping.ToModelJournal(view)
	if err != nil {
		return false, err
	}
	args := []any{
		m.TenantID, m.JournalID, m.JournalNumber, m.JournalDate, m.JournalType, m.Description, m.Reference,
		m.Status, m.FiscalPeriod, m.IsReversing, m.OriginalJournalID, m.ReversingJournalID, m.Lines,
		m.TotalDebit, m.TotalCredit, m.PostedAt, m.PostedBy, m.CancelReason, m.Version,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	}

	var query string
	if expectedVersion == 0 {
		query = `
			INSERT INTO journal_views (` + journalColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
			ON CONFLICT (tenant_id, journal_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE journal_views SET
				journal_number = $3, journal_date = $4, journal_type = $5, description = $6, reference = $7,
				status = $8, fiscal_period = $9, is_reversing = $10, original_journal_id = $11,
				reversing_journal_id = $12, lines = $13, total_debit = $14, total_credit = $15,
				posted_at = $16, posted_by = $17, cancel_reason = $18, version = $19,
				created_at = $20, created_by = $21, last_updated_at = $22, last_updated_by = $23
			WHERE tenant_id = $1 AND journal_id = $2 AND version = $24
		`
		args = append(args, expectedVersion)
	}

	tag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		if pgErrorCode(err) == uniqueViolation {
			return false, fmt.Errorf("%w: journal number %s already taken", apperrors.ErrDuplicate, view.JournalNumber)
		}
		return false, apperrors.NewAppError(500, "failed to upsert journal "+view.JournalID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanJournal(row pgx.Row) (models.Journal, error) {
	var m models.Journal
	err := row.Scan(
		&m.TenantID,
		&m.JournalID,
		&m.JournalNumber,
		&m.JournalDate,
		&m.JournalType,
		&m.Description,
		&m.Reference,
		&m.Status,
		&m.FiscalPeriod,
		&m.IsReversing,
		&m.OriginalJournalID,
		&m.ReversingJournalID,
		&m.Lines,
		&m.TotalDebit,
		&m.TotalCredit,
		&m.PostedAt,
		&m.PostedBy,
		&m.CancelReason,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}
