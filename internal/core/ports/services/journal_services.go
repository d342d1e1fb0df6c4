package services

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// JournalCommandSvc defines the write operations on journals.
// Every operation returns the state of the journal aggregate after the command.
type JournalCommandSvc interface {
	// CreateJournal validates and persists a new journal, optionally posting it in the same operation.
	CreateJournal(ctx context.Context, tenantID, actorID string, req dto.CreateJournalRequest) (*domain.JournalView, error)

	// AddJournalLine appends a line to a draft journal.
	AddJournalLine(ctx context.Context, tenantID, actorID, journalID string, req dto.JournalLineRequest) (*domain.JournalView, error)

	// PostJournal posts a draft journal and applies its lines to the account balances.
	PostJournal(ctx context.Context, tenantID, actorID, journalID string) (*domain.JournalView, error)

	// ReverseJournal creates and posts the reversing journal of a posted journal.
	// It returns the original (now REVERSED) and the reversing journal.
	ReverseJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.ReverseJournalRequest) (*domain.JournalView, *domain.JournalView, error)

	// CancelJournal cancels a draft journal.
	CancelJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.CancelJournalRequest) (*domain.JournalView, error)
}

// JournalQuerySvc defines the read operations on journals. They only read the read model.
type JournalQuerySvc interface {
	GetJournal(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error)
	GetJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error)
	ListJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error)
	ListJournalsByPeriod(ctx context.Context, tenantID, fiscalPeriod string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error)
	ListUnpostedJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error)
}

// JournalSvcFacade combines all journal-related service interfaces
// This is a facade for clients that need access to all operations
type JournalSvcFacade interface {
	JournalCommandSvc
	JournalQuerySvc
}
