package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Account is a row of the account read model.
type Account struct {
	TenantID        string          `db:"tenant_id"`
	AccountID       string          `db:"account_id"`
	Code            string          `db:"code"`
	Name            string          `db:"name"`
	AccountType     string          `db:"account_type"`
	ParentAccountID sql.NullString  `db:"parent_account_id"` // Nullable
	Balance         decimal.Decimal `db:"balance"`
	IsActive        bool            `db:"is_active"`
	Version         int64           `db:"version"`
	AuditFields
}
