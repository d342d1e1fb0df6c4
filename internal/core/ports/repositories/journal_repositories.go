package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// JournalFilter narrows ListJournals. Nil or empty fields do not filter.
type JournalFilter struct {
	Status       *domain.JournalStatus
	JournalType  *domain.JournalType
	FiscalPeriod string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	NextToken    *string
}

// JournalReadModelReader defines read operations on the journal read model.
type JournalReadModelReader interface {
	// FindJournalByID retrieves a journal row, or apperrors.ErrNotFound.
	FindJournalByID(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error)

	// FindJournalByNumber retrieves a journal row by its journal number, or apperrors.ErrNotFound.
	FindJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error)

	// ListJournals retrieves a page of journals ordered by journal date (newest first) and id.
	// It returns the journals, a token for the next page, and an error.
	ListJournals(ctx context.Context, tenantID string, filter JournalFilter) ([]domain.JournalView, *string, error)
}

// JournalReadModelWriter is used only by the projection.
type JournalReadModelWriter interface {
	// UpsertJournal stores view if the stored row is at expectedVersion (0 when the row does not exist).
	// It returns false without error when the row has moved on, which callers treat as already applied.
	UpsertJournal(ctx context.Context, view domain.JournalView, expectedVersion int64) (bool, error)
}

// JournalReadModelFacade combines the journal read-model interfaces.
type JournalReadModelFacade interface {
	JournalReadModelReader
	JournalReadModelWriter
}
