package dto

import (
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalLineRequest defines one debit or credit line of a journal.
// Exactly one of DebitAmount and CreditAmount must be positive.
type JournalLineRequest struct {
	AccountID    string          `json:"accountID" binding:"required"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Description  string          `json:"description" binding:"max=500"`
	CostCenter   string          `json:"costCenter" binding:"max=100"`
	Project      string          `json:"project" binding:"max=100"`
}

// CreateJournalRequest defines the data needed to create a journal.
type CreateJournalRequest struct {
	JournalDate time.Time            `json:"journalDate" binding:"required"`
	JournalType string               `json:"journalType" binding:"omitempty,oneof=GENERAL SALES PURCHASE CASH_RECEIPT CASH_PAYMENT ADJUSTMENT CLOSING OPENING"`
	Description string               `json:"description" binding:"required,max=500"`
	Reference   string               `json:"reference" binding:"max=100"`
	Lines       []JournalLineRequest `json:"lines" binding:"dive"`
	AutoPost    bool                 `json:"autoPost"`
}

// ReverseJournalRequest defines the optional inputs of a reversal.
type ReverseJournalRequest struct {
	ReversingDate *time.Time `json:"reversingDate"` // Optional, defaults to today
}

// CancelJournalRequest defines the optional inputs of a cancellation.
type CancelJournalRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListJournalsParams defines the query parameters for listing journals.
type ListJournalsParams struct {
	Status       string     `form:"status" binding:"omitempty,oneof=DRAFT POSTED REVERSED CANCELLED ERROR"`
	JournalType  string     `form:"journalType"`
	FiscalPeriod string     `form:"fiscalPeriod"`
	DateFrom     *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo       *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit        int        `form:"limit" binding:"omitempty,min=1,max=100"`
	NextToken    *string    `form:"nextToken"`
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	LineID       string          `json:"lineID"`
	AccountID    string          `json:"accountID"`
	AccountCode  string          `json:"accountCode"`
	AccountName  string          `json:"accountName"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Description  string          `json:"description,omitempty"`
	CostCenter   string          `json:"costCenter,omitempty"`
	Project      string          `json:"project,omitempty"`
}

// JournalResponse defines the data returned for a journal entry.
type JournalResponse struct {
	JournalID          string                `json:"journalID"`
	JournalNumber      string                `json:"journalNumber"`
	JournalDate        time.Time             `json:"journalDate"`
	JournalType        domain.JournalType    `json:"journalType"`
	Description        string                `json:"description"`
	Reference          string                `json:"reference,omitempty"`
	Status             domain.JournalStatus  `json:"status"`
	FiscalPeriod       string                `json:"fiscalPeriod"`
	IsReversing        bool                  `json:"isReversing"`
	OriginalJournalID  string                `json:"originalJournalID,omitempty"`
	ReversingJournalID string                `json:"reversingJournalID,omitempty"`
	TotalDebit         decimal.Decimal       `json:"totalDebit"`
	TotalCredit        decimal.Decimal       `json:"totalCredit"`
	Lines              []JournalLineResponse `json:"lines"`
	PostedAt           *time.Time            `json:"postedAt,omitempty"`
	PostedBy           string                `json:"postedBy,omitempty"`
	CancelReason       string                `json:"cancelReason,omitempty"`
	Version            int64                 `json:"version"`
	CreatedAt          time.Time             `json:"createdAt"`
	CreatedBy          string                `json:"createdBy"`
	LastUpdatedAt      time.Time             `json:"lastUpdatedAt"`
	LastUpdatedBy      string                `json:"lastUpdatedBy"`
}

// ListJournalsResponse wraps a page of journals.
type ListJournalsResponse struct {
	Journals  []JournalResponse `json:"journals"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ReverseJournalResponse returns both journals touched by a reversal.
type ReverseJournalResponse struct {
	Original  JournalResponse `json:"original"`
	Reversing JournalResponse `json:"reversing"`
}

// ToJournalLineResponse converts a domain.JournalLine to JournalLineResponse DTO.
func ToJournalLineResponse(line domain.JournalLine) JournalLineResponse {
	return JournalLineResponse{
		LineID:       line.LineID,
		AccountID:    line.AccountID,
		AccountCode:  line.AccountCode,
		AccountName:  line.AccountName,
		DebitAmount:  line.DebitAmount,
		CreditAmount: line.CreditAmount,
		Description:  line.Description,
		CostCenter:   line.CostCenter,
		Project:      line.Project,
	}
}

// ToJournalResponse converts a domain.JournalView to JournalResponse DTO.
func ToJournalResponse(v *domain.JournalView) JournalResponse {
	lines := make([]JournalLineResponse, len(v.Lines))
	for i, line := range v.Lines {
		lines[i] = ToJournalLineResponse(line)
	}
	return JournalResponse{
		JournalID:          v.JournalID,
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
		TotalDebit:         v.TotalDebit,
		TotalCredit:        v.TotalCredit,
		Lines:              lines,
		PostedAt:           v.PostedAt,
		PostedBy:           v.PostedBy,
		CancelReason:       v.CancelReason,
		Version:            v.Version,
		CreatedAt:          v.CreatedAt,
		CreatedBy:          v.CreatedBy,
		LastUpdatedAt:      v.LastUpdatedAt,
		LastUpdatedBy:      v.LastUpdatedBy,
	}
}

// ToJournalResponses converts a slice of domain.JournalView to []JournalResponse.
func ToJournalResponses(views []domain.JournalView) []JournalResponse {
	responses := make([]JournalResponse, len(views))
	for i := range views {
		responses[i] = ToJournalResponse(&views[i])
	}
	return responses
}
