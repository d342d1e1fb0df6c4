package services

import (
	"context"
	"errors"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/eventsourcing"
)

// aggregateRepositories loads and saves the event-sourced aggregates the commands work on.
type aggregateRepositories struct {
	store    *eventsourcing.Store
	journals *eventsourcing.Repository[*domain.Journal]
	accounts *eventsourcing.Repository[*domain.Account]
}

func newAggregateRepositories(store *eventsourcing.Store) aggregateRepositories {
	return aggregateRepositories{
		store:    store,
		journals: eventsourcing.NewRepository(store, domain.AggregateJournal, domain.NewJournal),
		accounts: eventsourcing.NewRepository(store, domain.AggregateAccount, domain.NewAccount),
	}
}

func (r aggregateRepositories) loadJournal(ctx context.Context, tenantID, journalID string) (*domain.Journal, error) {
	j, err := r.journals.Load(ctx, tenantID, journalID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrJournalNotFound, "journal %s not found", journalID)
	}
	return j, err
}

func (r aggregateRepositories) loadAccount(ctx context.Context, tenantID, accountID string) (*domain.Account, error) {
	a, err := r.accounts.Load(ctx, tenantID, accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrAccountNotFound, "account %s not found", accountID)
	}
	return a, err
}

// loadLineAccounts loads every distinct account referenced by lines, in first-use order.
// Only the tenant's own streams are read, so a foreign account id is simply not found.
func (r aggregateRepositories) loadLineAccounts(ctx context.Context, tenantID string, lines []domain.JournalLine) (map[string]*domain.Account, []*domain.Account, error) {
	byID := make(map[string]*domain.Account, len(lines))
	ordered := make([]*domain.Account, 0, len(lines))
	for _, line := range lines {
		if _, ok := byID[line.AccountID]; ok {
			continue
		}
		acc, err := r.loadAccount(ctx, tenantID, line.AccountID)
		if err != nil {
			return nil, nil, err
		}
		byID[line.AccountID] = acc
		ordered = append(ordered, acc)
	}
	return byID, ordered, nil
}

// applyLines moves the balance of each line's account within one command.
func applyLines(accounts map[string]*domain.Account, lines []domain.JournalLine, journalID string, meta domain.Metadata) error {
	for _, line := range lines {
		if err := accounts[line.AccountID].ApplyLine(line, journalID, meta); err != nil {
			return err
		}
	}
	return nil
}

// asAggregates widens typed aggregates for Store.SaveAll.
func asAggregates[T domain.Aggregate](head []domain.Aggregate, tail []T) []domain.Aggregate {
	out := append(make([]domain.Aggregate, 0, len(head)+len(tail)), head...)
	for _, a := range tail {
		out = append(out, a)
	}
	return out
}
