package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/utils/pagination"
)

// AccountReadModel stores one row per account with a parent to children index.
type AccountReadModel struct {
	mu       sync.RWMutex
	accounts map[tenantKey]domain.AccountView
	children map[tenantKey]map[string]struct{}
}

// NewAccountReadModel creates an empty account read model.
func NewAccountReadModel() *AccountReadModel {
	return &AccountReadModel{
		accounts: make(map[tenantKey]domain.AccountView),
		children: make(map[tenantKey]map[string]struct{}),
	}
}

var _ portsrepo.AccountReadModelFacade = (*AccountReadModel)(nil)

func (r *AccountReadModel) FindAccountByID(_ context.Context, tenantID, accountID string) (*domain.AccountView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.accounts[tenantKey{tenantID, accountID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &v, nil
}

func (r *AccountReadModel) FindAccountByCode(_ context.Context, tenantID, code string) (*domain.AccountView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for k, v := range r.accounts {
		if k.tenantID == tenantID && v.Code == code {
			out := v
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *AccountReadModel) ListAccounts(_ context.Context, tenantID string, filter portsrepo.AccountFilter) ([]domain.AccountView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	afterCode := ""
	if filter.NextToken != nil && *filter.NextToken != "" {
		code, err := pagination.DecodeKeyToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		afterCode = code
	}

	r.mu.RLock()
	matched := make([]domain.AccountView, 0)
	for k, v := range r.accounts {
		if k.tenantID != tenantID {
			continue
		}
		if filter.AccountType != nil && v.AccountType != *filter.AccountType {
			continue
		}
		if filter.ActiveOnly && !v.IsActive {
			continue
		}
		if afterCode != "" && v.Code <= afterCode {
			continue
		}
		matched = append(matched, v)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	var next *string
	if len(matched) > limit {
		matched = matched[:limit]
		token := pagination.EncodeKeyToken(matched[limit-1].Code)
		next = &token
	}
	return matched, next, nil
}

func (r *AccountReadModel) ListChildAccounts(_ context.Context, tenantID, parentID string) ([]domain.AccountView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AccountView, 0, len(r.children[tenantKey{tenantID, parentID}]))
	for childID := range r.children[tenantKey{tenantID, parentID}] {
		out = append(out, r.accounts[tenantKey{tenantID, childID}])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *AccountReadModel) UpsertAccount(_ context.Context, view domain.AccountView, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tenantKey{view.TenantID, view.AccountID}
	current, exists := r.accounts[key]
	var currentVersion int64
	if exists {
		currentVersion = current.Version
	}
	if currentVersion != expectedVersion {
		return false, nil
	}

	if exists && current.ParentAccountID != "" && current.ParentAccountID != view.ParentAccountID {
		delete(r.children[tenantKey{view.TenantID, current.ParentAccountID}], view.AccountID)
	}
	if view.ParentAccountID != "" {
		parentKey := tenantKey{view.TenantID, view.ParentAccountID}
		if r.children[parentKey] == nil {
			r.children[parentKey] = make(map[string]struct{})
		}
		r.children[parentKey][view.AccountID] = struct{}{}
	}
	r.accounts[key] = view
	return true, nil
}
