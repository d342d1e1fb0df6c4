package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalView is the denormalized read-model row of a journal.
// Version is the last applied event version of the journal stream.
type JournalView struct {
	TenantID           string          `json:"tenantID"`
	JournalID          string          `json:"journalID"`
	JournalNumber      string          `json:"journalNumber"`
	JournalDate        time.Time       `json:"journalDate"`
	JournalType        JournalType     `json:"journalType"`
	Description        string          `json:"description"`
	Reference          string          `json:"reference,omitempty"`
	Status             JournalStatus   `json:"status"`
	FiscalPeriod       string          `json:"fiscalPeriod"`
	IsReversing        bool            `json:"isReversing"`
	OriginalJournalID  string          `json:"originalJournalID,omitempty"`
	ReversingJournalID string          `json:"reversingJournalID,omitempty"`
	Lines              []JournalLine   `json:"lines"`
	TotalDebit         decimal.Decimal `json:"totalDebit"`
	TotalCredit        decimal.Decimal `json:"totalCredit"`
	PostedAt           *time.Time      `json:"postedAt,omitempty"`
	PostedBy           string          `json:"postedBy,omitempty"`
	CancelReason       string          `json:"cancelReason,omitempty"`
	Version            int64           `json:"version"`
	AuditFields
}

// AccountView is the read-model row of an account.
type AccountView struct {
	TenantID        string          `json:"tenantID"`
	AccountID       string          `json:"accountID"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"`
	ParentAccountID string          `json:"parentAccountID,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	IsActive        bool            `json:"isActive"`
	Version         int64           `json:"version"`
	AuditFields
}

// View renders the journal as a read-model row.
func (j *Journal) View() JournalView {
	totalDebit, totalCredit := j.Totals()
	return JournalView{
		TenantID:           j.Tenant,
		JournalID:          j.JournalID,
		JournalNumber:      j.JournalNumber,
		JournalDate:        j.JournalDate,
		JournalType:        j.JournalType,
		Description:        j.Description,
		Reference:          j.Reference,
		Status:             j.Status,
		FiscalPeriod:       j.FiscalPeriod,
		IsReversing:        j.IsReversing,
		OriginalJournalID:  j.OriginalJournalID,
		ReversingJournalID: j.ReversingJournalID,
		Lines:              append([]JournalLine(nil), j.Lines...),
		TotalDebit:         totalDebit,
		TotalCredit:        totalCredit,
		PostedAt:           j.PostedAt,
		PostedBy:           j.PostedBy,
		CancelReason:       j.CancelReason,
		Version:            j.Version(),
		AuditFields:        j.AuditFields,
	}
}

// View renders the account as a read-model row.
func (a *Account) View() AccountView {
	return AccountView{
		TenantID:        a.Tenant,
		AccountID:       a.AccountID,
		Code:            a.Code,
		Name:            a.Name,
		AccountType:     a.AccountType,
		ParentAccountID: a.ParentAccountID,
		Balance:         a.Balance,
		IsActive:        a.IsActive,
		Version:         a.Version(),
		AuditFields:     a.AuditFields,
	}
}

// JournalFromView rebuilds journal state from a read-model row so the projection can keep
// folding events on top of it.
func JournalFromView(v JournalView) *Journal {
	j := &Journal{
		JournalID:          v.JournalID,
		Tenant:             v.TenantID,
		JournalNumber:      v.JournalNumber,
		JournalDate:        v.JournalDate,
		JournalType:        v.JournalType,
		Description:        v.Description,
		Reference:          v.Reference,
		Status:             v.Status,
		FiscalPeriod:       v.FiscalPeriod,
		IsReversing:        v.IsReversing,
		OriginalJournalID:  v.OriginalJournalID,
		ReversingJournalID: v.ReversingJournalID,
		Lines:              append([]JournalLine(nil), v.Lines...),
		PostedAt:           v.PostedAt,
		PostedBy:           v.PostedBy,
		CancelReason:       v.CancelReason,
		AuditFields:        v.AuditFields,
	}
	j.SetVersion(v.Version)
	return j
}

// AccountFromView rebuilds account state from a read-model row.
func AccountFromView(v AccountView) *Account {
	a := &Account{
		AccountID:       v.AccountID,
		Tenant:          v.TenantID,
		Code:            v.Code,
		Name:            v.Name,
		AccountType:     v.AccountType,
		ParentAccountID: v.ParentAccountID,
		Balance:         v.Balance,
		IsActive:        v.IsActive,
		AuditFields:     v.AuditFields,
	}
	a.SetVersion(v.Version)
	return a
}
