package pgsql

import (
	"context"
	"errors"
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

const accountColumns = `
	tenant_id, account_id, code, name, account_type, parent_account_id, balance, is_active,
	version, created_at, created_by, last_updated_at, last_updated_by
`

// PgxAccountReadModel is the account_views table. The parent index is idx_account_views_parent.
type PgxAccountReadModel struct {
	BaseRepository
}

func newPgxAccountReadModel(pool *pgxpool.Pool) *PgxAccountReadModel {
	return &PgxAccountReadModel{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AccountReadModelFacade = (*PgxAccountReadModel)(nil)

func (r *PgxAccountReadModel) FindAccountByID(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error) {
	return r.findOne(ctx, `WHERE tenant_id = $1 AND account_id = $2`, tenantID, accountID)
}

func (r *PgxAccountReadModel) FindAccountByCode(ctx context.Context, tenantID, code string) (*domain.AccountView, error) {
	return r.findOne(ctx, `WHERE tenant_id = $1 AND code = $2 ORDER BY created_at LIMIT 1`, tenantID, code)
}

func (r *PgxAccountReadModel) findOne(ctx context.Context, where string, args ...any) (*domain.AccountView, error) {
	m, err := scanAccount(r.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM account_views `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find account", err)
	}
	view := mapping.ToDomainAccount(m)
	return &view, nil
}

// ListAccounts pages by code.
func (r *PgxAccountReadModel) ListAccounts(ctx context.Context, tenantID string, filter portsrepo.AccountFilter) ([]domain.AccountView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}
	if filter.AccountType != nil {
		args = append(args, string(*filter.AccountType))
		clauses = append(clauses, "account_type = $"+strconv.Itoa(len(args)))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "is_active")
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		afterCode, err := pagination.DecodeKeyToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		args = append(args, afterCode)
		clauses = append(clauses, "code > $"+strconv.Itoa(len(args)))
	}
	args = append(args, limit+1)
	query := `SELECT ` + accountColumns + ` FROM account_views WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY code LIMIT $` + strconv.Itoa(len(args))

	accounts, err := r.query(ctx, query, args...)
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

func (r *PgxAccountReadModel) ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM account_views
		WHERE tenant_id = $1 AND parent_account_id = $2 ORDER BY code`, tenantID, parentID)
}

// UpsertAccount follows the same version guard as UpsertJournal.
func (r *PgxAccountReadModel) UpsertAccount(ctx context.Context, view domain.AccountView, expectedVersion int64) (bool, error) {
	m := mapping.ToModelAccount(view)
	args := []any{
		m.TenantID, m.AccountID, m.Code, m.Name, m.AccountType, m.ParentAccountID, m.Balance, m.IsActive,
		m.Version, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	}

	var query string
	if expectedVersion == 0 {
		query = `
			INSERT INTO account_views (` + accountColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (tenant_id, account_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE account_views SET
				code = $3, name = $4, account_type = $5, parent_account_id = $6, balance = $7,
				is_active = $8, version = $9, created_at = $10, created_by = $11,
				last_updated_at = $12, last_updated_by = $13
			WHERE tenant_id = $1 AND account_id = $2 AND version = $14
		`
		args = append(args, expectedVersion)
	}

	tag, err := r.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to upsert account "+view.AccountID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgxAccountReadModel) query(ctx context.Context, query string, args ...any) ([]domain.AccountView, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts", err)
	}
	defer rows.Close()

	modelAccounts := make([]models.Account, 0)
	for rows.Next() {
		m, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		modelAccounts = append(modelAccounts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows", err)
	}
	return mapping.ToDomainAccountSlice(modelAccounts), nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var m models.Account
	err := row.Scan(
		&m.TenantID,
		&m.AccountID,
		&m.Code,
		&m.Name,
		&m.AccountType,
		&m.ParentAccountID,
		&m.Balance,
		&m.IsActive,
		&m.Version,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}
