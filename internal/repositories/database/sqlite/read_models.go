package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/models"
	"github.com/SscSPs/mma_ledger/internal/utils/mapping"
	"github.com/SscSPs/mma_ledger/internal/utils/pagination"
)

const journalColumns = `
tenant_id, journal_id, journal_number, journal_date, journal_type, description, reference,
status, fiscal_period, is_reversing, original_journal_id, reversing_journal_id, lines,
total_debit, total_credit, posted_at, posted_by, cancel_reason, version,
created_at, created_by, last_updated_at, last_updated_by
`

const accountColumns = `
tenant_id, account_id, code, name, account_type, parent_account_id, balance, is_active,
version, created_at, created_by, last_updated_at, last_updated_by
`

type rowScanner interface {
	Scan(dest ...any) error
}

// JournalReadModel is the journal_views table.
type JournalReadModel struct {
	db *sql.DB
}

var _ portsrepo.JournalReadModelFacade = (*JournalReadModel)(nil)

func (r *JournalReadModel) FindJournalByID(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error) {
	return r.findOne(ctx, `WHERE tenant_id = ? AND journal_id = ?`, tenantID, journalID)
}

func (r *JournalReadModel) FindJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error) {
	return r.findOne(ctx, `WHERE tenant_id = ? AND journal_number = ?`, tenantID, journalNumber)
}

func (r *JournalReadModel) findOne(ctx context.Context, where string, args ...any) (*domain.JournalView, error) {
	m, err := scanJournal(r.db.QueryRowContext(ctx, `SELECT `+journalColumns+` FROM journal_views `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find journal: %w", err)
	}
	view, err := mapping.ToDomainJournal(m)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *JournalReadModel) ListJournals(ctx context.Context, tenantID string, filter portsrepo.JournalFilter) ([]domain.JournalView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.JournalType != nil {
		clauses = append(clauses, "journal_type = ?")
		args = append(args, string(*filter.JournalType))
	}
	if filter.FiscalPeriod != "" {
		clauses = append(clauses, "fiscal_period = ?")
		args = append(args, filter.FiscalPeriod)
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, "journal_date >= ?")
		args = append(args, toMillis(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "journal_date <= ?")
		args = append(args, toMillis(*filter.DateTo))
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		lastDate, lastID, err := pagination.DecodeJournalToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		clauses = append(clauses, "(journal_date, journal_id) < (?, ?)")
		args = append(args, toMillis(lastDate), lastID)
	}
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, `SELECT `+journalColumns+` FROM journal_views WHERE `+
		strings.Join(clauses, " AND ")+` ORDER BY journal_date DESC, journal_id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list journals: %w", err)
	}
	defer rows.Close()

	journals := make([]domain.JournalView, 0, limit+1)
	for rows.Next() {
		m, err := scanJournal(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan journal: %w", err)
		}
		view, err := mapping.ToDomainJournal(m)
		if err != nil {
			return nil, nil, err
		}
		journals = append(journals, view)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate journals: %w", err)
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

func (r *JournalReadModel) UpsertJournal(ctx context.Context, view domain.JournalView, expectedVersion int64) (bool, error) {
	m, err := mapping.ToModelJournal(view)
	if err != nil {
		return false, err
	}
	args := []any{
		m.TenantID, m.JournalID, m.JournalNumber, toMillis(m.JournalDate), m.JournalType, m.Description, m.Reference,
		m.Status, m.FiscalPeriod, m.IsReversing, m.OriginalJournalID, m.ReversingJournalID, string(m.Lines),
		m.TotalDebit.String(), m.TotalCredit.String(), nullMillis(m.PostedAt), m.PostedBy, m.CancelReason, m.Version,
		toMillis(m.CreatedAt), m.CreatedBy, toMillis(m.LastUpdatedAt), m.LastUpdatedBy,
	}

	var query string
	if expectedVersion == 0 {
		query = `INSERT INTO journal_views (` + journalColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, journal_id) DO NOTHING`
	} else {
		// Key columns move to the WHERE clause.
		args = append(args[2:], m.TenantID, m.JournalID, expectedVersion)
		query = `UPDATE journal_views SET
	journal_number = ?, journal_date = ?, journal_type = ?, description = ?, reference = ?,
	status = ?, fiscal_period = ?, is_reversing = ?, original_journal_id = ?,
	reversing_journal_id = ?, lines = ?, total_debit = ?, total_credit = ?,
	posted_at = ?, posted_by = ?, cancel_reason = ?, version = ?,
	created_at = ?, created_by = ?, last_updated_at = ?, last_updated_by = ?
WHERE tenant_id = ? AND journal_id = ? AND version = ?`
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isConstraintError(err) {
			return false, fmt.Errorf("%w: journal number %s already taken", apperrors.ErrDuplicate, view.JournalNumber)
		}
		return false, fmt.Errorf("upsert journal %s: %w", view.JournalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert journal %s: %w", view.JournalID, err)
	}
	return n == 1, nil
}

func scanJournal(row rowScanner) (models.Journal, error) {
	var (
		m                                     models.Journal
		lines, totalDebit, totalCredit        string
		journalDate, createdAt, lastUpdatedAt int64
		postedAt                              sql.NullInt64
	)
	err := row.Scan(
		&m.TenantID,
		&m.JournalID,
		&m.JournalNumber,
		&journalDate,
		&m.JournalType,
		&m.Description,
		&m.Reference,
		&m.Status,
		&m.FiscalPeriod,
		&m.IsReversing,
		&m.OriginalJournalID,
		&m.ReversingJournalID,
		&lines,
		&totalDebit,
		&totalCredit,
		&postedAt,
		&m.PostedBy,
		&m.CancelReason,
		&m.Version,
		&createdAt,
		&m.CreatedBy,
		&lastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.Journal{}, err
	}
	if err := m.TotalDebit.Scan(totalDebit); err != nil {
		return models.Journal{}, err
	}
	if err := m.TotalCredit.Scan(totalCredit); err != nil {
		return models.Journal{}, err
	}
	m.Lines = []byte(lines)
	m.JournalDate = fromMillis(journalDate)
	m.PostedAt = nullTimeOf(postedAt)
	m.CreatedAt = fromMillis(createdAt)
	m.LastUpdatedAt = fromMillis(lastUpdatedAt)
	return m, nil
}

// AccountReadModel is the account_views table.
type AccountReadModel struct {
	db *sql.DB
}

var _ portsrepo.AccountReadModelFacade = (*AccountReadModel)(nil)

func (r *AccountReadModel) FindAccountByID(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error) {
	return r.findOne(ctx, `WHERE tenant_id = ? AND account_id = ?`, tenantID, accountID)
}

func (r *AccountReadModel) FindAccountByCode(ctx context.Context, tenantID, code string) (*domain.AccountView, error) {
	return r.findOne(ctx, `WHERE tenant_id = ? AND code = ? ORDER BY created_at LIMIT 1`, tenantID, code)
}

func (r *AccountReadModel) findOne(ctx context.Context, where string, args ...any) (*domain.AccountView, error) {
	m, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM account_views `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	view := mapping.ToDomainAccount(m)
	return &view, nil
}

func (r *AccountReadModel) ListAccounts(ctx context.Context, tenantID string, filter portsrepo.AccountFilter) ([]domain.AccountView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	clauses := []string{"tenant_id = ?"}
	args := []any{tenantID}
	if filter.AccountType != nil {
		clauses = append(clauses, "account_type = ?")
		args = append(args, string(*filter.AccountType))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active = 1")
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		afterCode, err := pagination.DecodeKeyToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		clauses = append(clauses, "code > ?")
		args = append(args, afterCode)
	}
	args = append(args, limit+1)

	accounts, err := r.query(ctx, `SELECT `+accountColumns+` FROM account_views WHERE `+
		strings.Join(clauses, " AND ")+` ORDER BY code LIMIT ?`, args...)
	if err != nil {
		return nil, nil, err
	}
	var next *string
	if len(accounts) > limit {
		accounts = accounts[:limit]
		token := pagination.EncodeKeyToken(accounts[limit-1].Code)
		next = &token
	}
	return accounts, next, nil
}

func (r *AccountReadModel) ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM account_views
WHERE tenant_id = ? AND parent_account_id = ? ORDER BY code`, tenantID, parentID)
}

func (r *AccountReadModel) UpsertAccount(ctx context.Context, view domain.AccountView, expectedVersion int64) (bool, error) {
	m := mapping.ToModelAccount(view)
	args := []any{
		m.TenantID, m.AccountID, m.Code, m.Name, m.AccountType, m.ParentAccountID, m.Balance.String(), m.IsActive,
		m.Version, toMillis(m.CreatedAt), m.CreatedBy, toMillis(m.LastUpdatedAt), m.LastUpdatedBy,
	}

	var query string
	if expectedVersion == 0 {
		query = `INSERT INTO account_views (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, account_id) DO NOTHING`
	} else {
		args = append(args[2:], m.TenantID, m.AccountID, expectedVersion)
		query = `UPDATE account_views SET
	code = ?, name = ?, account_type = ?, parent_account_id = ?, balance = ?, is_active = ?,
	version = ?, created_at = ?, created_by = ?, last_updated_at = ?, last_updated_by = ?
WHERE tenant_id = ? AND account_id = ? AND version = ?`
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("upsert account %s: %w", view.AccountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert account %s: %w", view.AccountID, err)
	}
	return n == 1, nil
}

func (r *AccountReadModel) query(ctx context.Context, query string, args ...any) ([]domain.AccountView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	modelAccounts := make([]models.Account, 0)
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		modelAccounts = append(modelAccounts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return mapping.ToDomainAccountSlice(modelAccounts), nil
}

func scanAccount(row rowScanner) (models.Account, error) {
	var (
		m                        models.Account
		balance                  string
		createdAt, lastUpdatedAt int64
	)
	err := row.Scan(
		&m.TenantID,
		&m.AccountID,
		&m.Code,
		&m.Name,
		&m.AccountType,
		&m.ParentAccountID,
		&balance,
		&m.IsActive,
		&m.Version,
		&createdAt,
		&m.CreatedBy,
		&lastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return models.Account{}, err
	}
	if err := m.Balance.Scan(balance); err != nil {
		return models.Account{}, err
	}
	m.CreatedAt = fromMillis(createdAt)
	m.LastUpdatedAt = fromMillis(lastUpdatedAt)
	return m, nil
}
