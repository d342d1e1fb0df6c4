package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Journal is a row of the journal read model. Lines are stored as a JSON array.
type Journal struct {
	TenantID           string          `db:"tenant_id"`
	JournalID          string          `db:"journal_id"`
	JournalNumber      string          `db:"journal_number"`
	JournalDate        time.Time       `db:"journal_date"`
	JournalType        string          `db:"journal_type"`
	Description        string          `db:"description"`
	Reference          sql.NullString  `db:"reference"`
	Status             string          `db:"status"`
	FiscalPeriod       string          `db:"fiscal_period"`
	IsReversing        bool            `db:"is_reversing"`
	OriginalJournalID  sql.NullString  `db:"original_journal_id"`
	ReversingJournalID sql.NullString  `db:"reversing_journal_id"`
	Lines              []byte          `db:"lines"`
	TotalDebit         decimal.Decimal `db:"total_debit"`
	TotalCredit        decimal.Decimal `db:"total_credit"`
	PostedAt           sql.NullTime    `db:"posted_at"`
	PostedBy           sql.NullString  `db:"posted_by"`
	CancelReason       sql.NullString  `db:"cancel_reason"`
	Version            int64           `db:"version"`
	AuditFields
}
