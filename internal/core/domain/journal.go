package domain

import (
	"strings"
	"time"

	"github.com/SscSPs/mma_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Draft     JournalStatus = "DRAFT"
	Posted    JournalStatus = "POSTED"
	Reversed  JournalStatus = "REVERSED"
	Cancelled JournalStatus = "CANCELLED"

	// Failed marks a read-model row that could not be materialized. No journal command produces it.
	Failed JournalStatus = "ERROR"
)

// JournalLine is one debit or credit of a journal.
type JournalLine struct {
	LineID       string          `json:"lineID"`
	AccountID    string          `json:"accountID"`
	AccountCode  string          `json:"accountCode"` // Denormalized at entry time
	AccountName  string          `json:"accountName"` // Denormalized at entry time
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Description  string          `json:"description,omitempty"`
	CostCenter   string          `json:"costCenter,omitempty"`
	Project      string          `json:"project,omitempty"`
}

// IsDebit reports whether the line carries a debit amount.
func (l JournalLine) IsDebit() bool {
	return l.DebitAmount.IsPositive()
}

// Swapped returns the line with debit and credit exchanged.
func (l JournalLine) Swapped() JournalLine {
	l.DebitAmount, l.CreditAmount = l.CreditAmount, l.DebitAmount
	return l
}

// ValidateJournalLine checks the debit XOR credit rule of a single line.
func ValidateJournalLine(line JournalLine) error {
	if strings.TrimSpace(line.AccountID) == "" {
		return Errorf(ErrInvalidLine, "line %s has no account", line.LineID)
	}
	if line.DebitAmount.IsNegative() || line.CreditAmount.IsNegative() {
		return Errorf(ErrInvalidLine, "line %s has a negative amount", line.LineID)
	}
	if line.DebitAmount.IsPositive() == line.CreditAmount.IsPositive() {
		return Errorf(ErrInvalidLine, "line %s must have exactly one of debit or credit", line.LineID)
	}
	return nil
}

// JournalTotals sums debit and credit amounts.
func JournalTotals(lines []JournalLine) (totalDebit, totalCredit decimal.Decimal) {
	totalDebit, totalCredit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.DebitAmount)
		totalCredit = totalCredit.Add(line.CreditAmount)
	}
	return totalDebit, totalCredit
}

// ValidateJournalLines enforces the minimum line count, per-line rule and balance tolerance.
func ValidateJournalLines(lines []JournalLine) error {
	if len(lines) < 2 {
		return Errorf(ErrEmptyJournal, "journal must have at least two lines, got %d", len(lines))
	}
	for _, line := range lines {
		if err := ValidateJournalLine(line); err != nil {
			return err
		}
	}
	totalDebit, totalCredit := JournalTotals(lines)
	if !accounting.IsBalanced(totalDebit, totalCredit) {
		return Errorf(ErrUnbalancedJournal, "debits sum is %s and credits sum is %s", totalDebit, totalCredit)
	}
	return nil
}

// Journal is the ledger entry aggregate.
type Journal struct {
	aggregateBase
	JournalID          string        `json:"journalID"`
	Tenant             string        `json:"tenantID"`
	JournalNumber      string        `json:"journalNumber"`
	JournalDate        time.Time     `json:"journalDate"`
	JournalType        JournalType   `json:"journalType"`
	Description        string        `json:"description"`
	Reference          string        `json:"reference,omitempty"`
	Status             JournalStatus `json:"status"`
	FiscalPeriod       string        `json:"fiscalPeriod"`
	IsReversing        bool          `json:"isReversing"`
	OriginalJournalID  string        `json:"originalJournalID,omitempty"`
	ReversingJournalID string        `json:"reversingJournalID,omitempty"`
	Lines              []JournalLine `json:"lines"`
	PostedAt           *time.Time    `json:"postedAt,omitempty"`
	PostedBy           string        `json:"postedBy,omitempty"`
	CancelReason       string        `json:"cancelReason,omitempty"`
	AuditFields
}

// Journal events.
type (
	JournalCreated struct {
		JournalID     string        `json:"journalID"`
		JournalNumber string        `json:"journalNumber"`
		JournalDate   time.Time     `json:"journalDate"`
		JournalType   JournalType   `json:"journalType"`
		Description   string        `json:"description"`
		Reference     string        `json:"reference,omitempty"`
		FiscalPeriod  string        `json:"fiscalPeriod"`
		Lines         []JournalLine `json:"lines"`
	}
	JournalLineAdded struct {
		Line JournalLine `json:"line"`
	}
	JournalPosted struct {
		PostedAt time.Time `json:"postedAt"`
		PostedBy string    `json:"postedBy"`
	}
	JournalCancelled struct {
		Reason string `json:"reason,omitempty"`
	}
	JournalReversed struct {
		ReversingJournalID string    `json:"reversingJournalID"`
		ReversingDate      time.Time `json:"reversingDate"`
	}
	ReversingJournalCreated struct {
		JournalID         string        `json:"journalID"`
		JournalNumber     string        `json:"journalNumber"`
		JournalDate       time.Time     `json:"journalDate"`
		Description       string        `json:"description"`
		Reference         string        `json:"reference"`
		FiscalPeriod      string        `json:"fiscalPeriod"`
		OriginalJournalID string        `json:"originalJournalID"`
		Lines             []JournalLine `json:"lines"`
	}
)

var _ Aggregate = (*Journal)(nil)

func (j *Journal) AggregateID() string          { return j.JournalID }
func (j *Journal) TenantID() string             { return j.Tenant }
func (j *Journal) AggregateType() AggregateType { return AggregateJournal }

// NewJournal returns an empty journal ready to be replayed.
func NewJournal(tenantID, journalID string) *Journal {
	return &Journal{JournalID: journalID, Tenant: tenantID}
}

// NewJournalParams carries the inputs of CreateJournal.
type NewJournalParams struct {
	JournalID     string
	TenantID      string
	JournalNumber string
	JournalDate   time.Time
	JournalType   JournalType
	Description   string
	Reference     string
	Lines         []JournalLine
	AutoPost      bool
}

// CreateJournal validates the lines and raises JournalCreated, followed by JournalPosted when AutoPost is set.
func CreateJournal(p NewJournalParams, meta Metadata) (*Journal, error) {
	if p.TenantID == "" {
		return nil, ErrTenantRequired
	}
	if !p.JournalType.Valid() {
		return nil, Errorf(ErrInvalidJournalType, "unknown journal type %q", p.JournalType)
	}
	if err := ValidateJournalLines(p.Lines); err != nil {
		return nil, err
	}

	j := NewJournal(p.TenantID, p.JournalID)
	err := raise(j, &j.aggregateBase, EventJournalCreated, JournalCreated{
		JournalID:     p.JournalID,
		JournalNumber: p.JournalNumber,
		JournalDate:   p.JournalDate,
		JournalType:   p.JournalType,
		Description:   p.Description,
		Reference:     p.Reference,
		FiscalPeriod:  FiscalPeriodOf(p.JournalDate),
		Lines:         p.Lines,
	}, meta)
	if err != nil {
		return nil, err
	}
	if p.AutoPost {
		if err := j.Post(meta); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// AddLine appends a line to a draft journal. Balance is checked when the journal is posted.
func (j *Journal) AddLine(line JournalLine, meta Metadata) error {
	if j.Status != Draft {
		return Errorf(ErrNotDraft, "journal %s is %s", j.JournalNumber, j.Status)
	}
	if err := ValidateJournalLine(line); err != nil {
		return err
	}
	return raise(j, &j.aggregateBase, EventJournalLineAdded, JournalLineAdded{Line: line}, meta)
}

// Post re-validates the lines and moves a draft journal to POSTED.
func (j *Journal) Post(meta Metadata) error {
	if j.Status != Draft {
		return Errorf(ErrNotDraft, "journal %s is %s", j.JournalNumber, j.Status)
	}
	if err := ValidateJournalLines(j.Lines); err != nil {
		return err
	}
	postedAt := meta.OccurredAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	return raise(j, &j.aggregateBase, EventJournalPosted, JournalPosted{PostedAt: postedAt, PostedBy: meta.ActorID}, meta)
}

// Cancel moves a draft journal to CANCELLED.
func (j *Journal) Cancel(reason string, meta Metadata) error {
	if j.Status != Draft {
		return Errorf(ErrNotDraft, "journal %s is %s", j.JournalNumber, j.Status)
	}
	return raise(j, &j.aggregateBase, EventJournalCancelled, JournalCancelled{Reason: strings.TrimSpace(reason)}, meta)
}

// ReverseParams carries the inputs of Reverse. PeriodOpen is the answer of the period-status check for Date.
type ReverseParams struct {
	ReversingJournalID string
	JournalNumber      string
	Date               time.Time
	PeriodOpen         bool
}

// CanReverse reports whether the journal's own state allows a reversal.
func (j *Journal) CanReverse() error {
	if j.Status != Posted {
		return Errorf(ErrNotPosted, "journal %s is %s", j.JournalNumber, j.Status)
	}
	if j.IsReversing {
		return Errorf(ErrAlreadyReversal, "journal %s reverses %s", j.JournalNumber, j.OriginalJournalID)
	}
	return nil
}

// Reverse marks the journal REVERSED and returns the new, already posted reversing journal.
// Lines keep their order with debit and credit swapped.
func (j *Journal) Reverse(p ReverseParams, meta Metadata) (*Journal, error) {
	if err := j.CanReverse(); err != nil {
		return nil, err
	}
	if !p.PeriodOpen {
		return nil, Errorf(ErrPeriodClosed, "period %s is closed", FiscalPeriodOf(p.Date))
	}

	lines := make([]JournalLine, len(j.Lines))
	for i, line := range j.Lines {
		lines[i] = line.Swapped()
	}

	reversing := NewJournal(j.Tenant, p.ReversingJournalID)
	err := raise(reversing, &reversing.aggregateBase, EventReversingJournalCreated, ReversingJournalCreated{
		JournalID:         p.ReversingJournalID,
		JournalNumber:     p.JournalNumber,
		JournalDate:       p.Date,
		Description:       "Reversal of " + j.JournalNumber,
		Reference:         "REV-" + j.JournalNumber,
		FiscalPeriod:      FiscalPeriodOf(p.Date),
		OriginalJournalID: j.JournalID,
		Lines:             lines,
	}, meta)
	if err != nil {
		return nil, err
	}
	if err := reversing.Post(meta); err != nil {
		return nil, err
	}

	if err := raise(j, &j.aggregateBase, EventJournalReversed, JournalReversed{
		ReversingJournalID: p.ReversingJournalID,
		ReversingDate:      p.Date,
	}, meta); err != nil {
		return nil, err
	}
	return reversing, nil
}

// Totals returns the debit and credit sums of the journal's lines.
func (j *Journal) Totals() (decimal.Decimal, decimal.Decimal) {
	return JournalTotals(j.Lines)
}

// Apply folds one journal event.
func (j *Journal) Apply(evt Event) error {
	if err := j.checkNext(evt); err != nil {
		return err
	}
	payload, err := DecodePayload(evt)
	if err != nil {
		return err
	}
	switch p := payload.(type) {
	case *JournalCreated:
		j.JournalID = p.JournalID
		j.Tenant = evt.TenantID
		j.JournalNumber = p.JournalNumber
		j.JournalDate = p.JournalDate
		j.JournalType = p.JournalType
		j.Description = p.Description
		j.Reference = p.Reference
		j.FiscalPeriod = p.FiscalPeriod
		j.Lines = append([]JournalLine(nil), p.Lines...)
		j.Status = Draft
		j.CreatedAt = evt.OccurredAt
		j.CreatedBy = evt.ActorID
	case *ReversingJournalCreated:
		j.JournalID = p.JournalID
		j.Tenant = evt.TenantID
		j.JournalNumber = p.JournalNumber
		j.JournalDate = p.JournalDate
		j.JournalType = Reversing
		j.Description = p.Description
		j.Reference = p.Reference
		j.FiscalPeriod = p.FiscalPeriod
		j.IsReversing = true
		j.OriginalJournalID = p.OriginalJournalID
		j.Lines = append([]JournalLine(nil), p.Lines...)
		j.Status = Draft
		j.CreatedAt = evt.OccurredAt
		j.CreatedBy = evt.ActorID
	case *JournalLineAdded:
		j.Lines = append(j.Lines, p.Line)
	case *JournalPosted:
		postedAt := p.PostedAt
		j.PostedAt = &postedAt
		j.PostedBy = p.PostedBy
		j.Status = Posted
	case *JournalCancelled:
		j.CancelReason = p.Reason
		j.Status = Cancelled
	case *JournalReversed:
		j.ReversingJournalID = p.ReversingJournalID
		j.Status = Reversed
	default:
		return Errorf(ErrUnknownEvent, "journal cannot apply %s", evt.Type)
	}
	j.touch(evt.OccurredAt, evt.ActorID)
	j.version = evt.Version
	return nil
}
