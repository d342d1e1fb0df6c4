package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/utils/pagination"
)

const defaultPageSize = 20

type tenantKey struct {
	tenantID string
	key      string
}

// JournalReadModel stores one row per journal keyed by (tenant, journal id).
type JournalReadModel struct {
	mu       sync.RWMutex
	journals map[tenantKey]domain.JournalView
	byNumber map[tenantKey]string
}

// NewJournalReadModel creates an empty journal read model.
func NewJournalReadModel() *JournalReadModel {
	return &JournalReadModel{
		journals: make(map[tenantKey]domain.JournalView),
		byNumber: make(map[tenantKey]string),
	}
}

var _ portsrepo.JournalReadModelFacade = (*JournalReadModel)(nil)

func cloneJournalView(v domain.JournalView) domain.JournalView {
	v.Lines = append([]domain.JournalLine(nil), v.Lines...)
	return v
}

func (r *JournalReadModel) FindJournalByID(_ context.Context, tenantID, journalID string) (*domain.JournalView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.journals[tenantKey{tenantID, journalID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := cloneJournalView(v)
	return &out, nil
}

func (r *JournalReadModel) FindJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error) {
	r.mu.RLock()
	journalID, ok := r.byNumber[tenantKey{tenantID, journalNumber}]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.FindJournalByID(ctx, tenantID, journalID)
}

func (r *JournalReadModel) ListJournals(_ context.Context, tenantID string, filter portsrepo.JournalFilter) ([]domain.JournalView, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	hasCursor := filter.NextToken != nil && *filter.NextToken != ""
	var cursor domain.JournalView
	if hasCursor {
		date, id, err := pagination.DecodeJournalToken(*filter.NextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", err)
		}
		cursor = domain.JournalView{JournalDate: date, JournalID: id}
	}

	r.mu.RLock()
	matched := make([]domain.JournalView, 0)
	for k, v := range r.journals {
		if k.tenantID != tenantID || !matchesJournalFilter(v, filter) {
			continue
		}
		if hasCursor && !journalBefore(cursor, v) {
			continue
		}
		matched = append(matched, cloneJournalView(v))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return journalBefore(matched[i], matched[j]) })

	var next *string
	if len(matched) > limit {
		matched = matched[:limit]
		last := matched[limit-1]
		token := pagination.EncodeJournalToken(last.JournalDate, last.JournalID)
		next = &token
	}
	return matched, next, nil
}

// journalBefore orders by journal date descending, then journal id descending.
func journalBefore(a, b domain.JournalView) bool {
	if !a.JournalDate.Equal(b.JournalDate) {
		return a.JournalDate.After(b.JournalDate)
	}
	return a.JournalID > b.JournalID
}

func matchesJournalFilter(v domain.JournalView, f portsrepo.JournalFilter) bool {
	if f.Status != nil && v.Status != *f.Status {
		return false
	}
	if f.JournalType != nil && v.JournalType != *f.JournalType {
		return false
	}
	if f.FiscalPeriod != "" && v.FiscalPeriod != f.FiscalPeriod {
		return false
	}
	if f.DateFrom != nil && v.JournalDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && v.JournalDate.After(*f.DateTo) {
		return false
	}
	return true
}

func (r *JournalReadModel) UpsertJournal(_ context.Context, view domain.JournalView, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tenantKey{view.TenantID, view.JournalID}
	current, exists := r.journals[key]
	var currentVersion int64
	if exists {
		currentVersion = current.Version
	}
	if currentVersion != expectedVersion {
		return false, nil
	}

	numberKey := tenantKey{view.TenantID, view.JournalNumber}
	if owner, taken := r.byNumber[numberKey]; taken && owner != view.JournalID {
		return false, fmt.Errorf("%w: journal number %s already belongs to %s", apperrors.ErrDuplicate, view.JournalNumber, owner)
	}
	if exists && current.JournalNumber != view.JournalNumber {
		delete(r.byNumber, tenantKey{view.TenantID, current.JournalNumber})
	}

	r.journals[key] = cloneJournalView(view)
	r.byNumber[numberKey] = view.JournalID
	return true, nil
}
