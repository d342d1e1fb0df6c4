package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/eventsourcing"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// accountService handles chart-of-accounts commands and queries.
type accountService struct {
	BaseService
	aggregates aggregateRepositories
	readModel  portsrepo.AccountReadModelReader
	hierarchy  portsrepo.AccountHierarchyReader
}

// NewAccountService creates a new AccountService.
func NewAccountService(store *eventsourcing.Store, readModel portsrepo.AccountReadModelFacade) portssvc.AccountSvcFacade {
	return &accountService{
		BaseService: newBaseService(0),
		aggregates:  newAggregateRepositories(store),
		readModel:   readModel,
		hierarchy:   readModel,
	}
}

// Ensure accountService implements the portssvc.AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount appends AccountCreated, the code reservation and the parent's AccountChildAdded
// in one atomic write. A conflict on the code stream means another account already holds the code.
func (s *accountService) CreateAccount(ctx context.Context, tenantID, actorID string, req dto.CreateAccountRequest) (*domain.AccountView, error) {
	logger := s.GetLogger(ctx)
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	accountType, err := domain.ParseAccountType(req.AccountType)
	if err != nil {
		return nil, err
	}

	parentID := ""
	if req.ParentAccountID != nil {
		parentID = strings.TrimSpace(*req.ParentAccountID)
	}

	accountID := uuid.NewString()
	var acc *domain.Account
	err = s.retryOnConflict(ctx, "create_account", func() error {
		var parent *domain.Account
		if parentID != "" {
			var err error
			parent, err = s.aggregates.loadAccount(ctx, tenantID, parentID)
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.Errorf(domain.ErrInvalidParent, "parent account %s does not exist", parentID)
			}
			if err != nil {
				return err
			}
		}

		meta := s.meta(actorID)
		created, err := domain.CreateAccount(domain.NewAccountParams{
			AccountID:   accountID,
			TenantID:    tenantID,
			Code:        req.Code,
			Name:        req.Name,
			AccountType: accountType,
			Parent:      parent,
		}, meta)
		if err != nil {
			return err
		}
		reservation, err := domain.ReserveAccountCode(tenantID, created.Code, created.AccountID, meta)
		if err != nil {
			return err
		}

		aggs := []domain.Aggregate{created, reservation}
		if parent != nil {
			aggs = append(aggs, parent)
		}
		if err := s.aggregates.store.SaveAll(ctx, aggs...); err != nil {
			var conflict *apperrors.ConcurrencyError
			if errors.As(err, &conflict) && conflict.StreamID == domain.StreamID(tenantID, domain.AggregateAccountCode, created.Code) {
				logger.Warn("Account code already taken", slog.String("code", created.Code))
				return domain.Errorf(domain.ErrDuplicateCode, "account code %s already exists", created.Code)
			}
			return err
		}
		acc = created
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create account", slog.String("code", req.Code))
		return nil, err
	}

	logger.Info("Account created successfully",
		slog.String("account_id", acc.AccountID),
		slog.String("code", acc.Code),
		slog.String("account_type", string(acc.AccountType)))
	view := acc.View()
	return &view, nil
}

// RenameAccount changes the display name of an account.
func (s *accountService) RenameAccount(ctx context.Context, tenantID, actorID, accountID string, req dto.RenameAccountRequest) (*domain.AccountView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	acc, err := s.aggregates.loadAccount(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if err := acc.Rename(req.Name, s.meta(actorID)); err != nil {
		return nil, err
	}
	if err := s.aggregates.accounts.Save(ctx, acc, acc.OriginalVersion()); err != nil {
		s.LogError(ctx, err, "Failed to rename account", slog.String("account_id", accountID))
		return nil, err
	}
	s.LogInfo(ctx, "Account renamed", slog.String("account_id", accountID))
	view := acc.View()
	return &view, nil
}

// DeactivateAccount deactivates an account with a zero balance and no active children.
// The child count lives on the account stream, and the parent's count drops in the same append.
func (s *accountService) DeactivateAccount(ctx context.Context, tenantID, actorID, accountID string) (*domain.AccountView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var acc *domain.Account
	err := s.retryOnConflict(ctx, "deactivate_account", func() error {
		loaded, err := s.aggregates.loadAccount(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		var parent *domain.Account
		if loaded.ParentAccountID != "" {
			if parent, err = s.aggregates.loadAccount(ctx, tenantID, loaded.ParentAccountID); err != nil {
				return err
			}
		}
		if err := loaded.Deactivate(parent, s.meta(actorID)); err != nil {
			return err
		}
		aggs := []domain.Aggregate{loaded}
		if parent != nil {
			aggs = append(aggs, parent)
		}
		if err := s.aggregates.store.SaveAll(ctx, aggs...); err != nil {
			return err
		}
		acc = loaded
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("account_id", accountID))
		return nil, err
	}
	s.LogInfo(ctx, "Account deactivated", slog.String("account_id", accountID))
	view := acc.View()
	return &view, nil
}

func (s *accountService) GetAccount(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	view, err := s.readModel.FindAccountByID(ctx, tenantID, accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrAccountNotFound, "account %s not found", accountID)
	}
	if err != nil {
		return nil, apperrors.NewInfraError("read_model.find_account", tenantID, accountID, err)
	}
	return view, nil
}

func (s *accountService) ListAccounts(ctx context.Context, tenantID string, params dto.ListAccountsParams) (*dto.ListAccountsResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(params); err != nil {
		return nil, err
	}
	filter := portsrepo.AccountFilter{
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
		NextToken:  params.NextToken,
	}
	if params.AccountType != "" {
		accountType, err := domain.ParseAccountType(params.AccountType)
		if err != nil {
			return nil, err
		}
		filter.AccountType = &accountType
	}

	views, nextToken, err := s.readModel.ListAccounts(ctx, tenantID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts")
		return nil, apperrors.NewInfraError("read_model.list_accounts", tenantID, "", err)
	}
	return &dto.ListAccountsResponse{
		Accounts:  dto.ToAccountResponses(views),
		NextToken: nextToken,
	}, nil
}

func (s *accountService) ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.GetAccount(ctx, tenantID, parentID); err != nil {
		return nil, err
	}
	children, err := s.hierarchy.ListChildAccounts(ctx, tenantID, parentID)
	if err != nil {
		return nil, apperrors.NewInfraError("read_model.list_child_accounts", tenantID, parentID, err)
	}
	return children, nil
}
