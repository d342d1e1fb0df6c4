package repositories

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// AccountFilter narrows ListAccounts.
type AccountFilter struct {
	AccountType *domain.AccountType
	ActiveOnly  bool
	Limit       int
	NextToken   *string
}

// AccountReadModelReader defines read operations on the account read model.
type AccountReadModelReader interface {
	// FindAccountByID retrieves an account row, or apperrors.ErrNotFound.
	FindAccountByID(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error)

	// FindAccountByCode retrieves an account row by its code, or apperrors.ErrNotFound.
	FindAccountByCode(ctx context.Context, tenantID, code string) (*domain.AccountView, error)

	// ListAccounts retrieves a page of accounts ordered by code.
	ListAccounts(ctx context.Context, tenantID string, filter AccountFilter) ([]domain.AccountView, *string, error)
}

// AccountHierarchyReader answers parent/child questions from the parent index.
type AccountHierarchyReader interface {
	// ListChildAccounts returns the direct children of parentID ordered by code.
	ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error)
}

// AccountReadModelWriter is used only by the projection.
type AccountReadModelWriter interface {
	// UpsertAccount stores view if the stored row is at expectedVersion (0 when the row does not exist).
	UpsertAccount(ctx context.Context, view domain.AccountView, expectedVersion int64) (bool, error)
}

// AccountReadModelFacade combines the account read-model interfaces.
type AccountReadModelFacade interface {
	AccountReadModelReader
	AccountHierarchyReader
	AccountReadModelWriter
}
