package services

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// AccountCommandSvc defines write operations for the chart of accounts.
type AccountCommandSvc interface {
	// CreateAccount persists a new account and reserves its code.
	CreateAccount(ctx context.Context, tenantID, actorID string, req dto.CreateAccountRequest) (*domain.AccountView, error)

	// RenameAccount changes the display name of an account.
	RenameAccount(ctx context.Context, tenantID, actorID, accountID string, req dto.RenameAccountRequest) (*domain.AccountView, error)

	// DeactivateAccount marks an account as inactive.
	DeactivateAccount(ctx context.Context, tenantID, actorID, accountID string) (*domain.AccountView, error)
}

// AccountQuerySvc defines read operations for account data
type AccountQuerySvc interface {
	GetAccount(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error)
	ListAccounts(ctx context.Context, tenantID string, params dto.ListAccountsParams) (*dto.ListAccountsResponse, error)
	ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error)
}

// AccountSvcFacade combines all account-related service interfaces
// This is a facade for clients that need access to all operations
type AccountSvcFacade interface {
	AccountCommandSvc
	AccountQuerySvc
}
