package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalView(id, number string, date time.Time, status domain.JournalStatus, version int64) domain.JournalView {
	return domain.JournalView{
		TenantID:      "tenant-1",
		JournalID:     id,
		JournalNumber: number,
		JournalDate:   date,
		JournalType:   domain.General,
		Status:        status,
		FiscalPeriod:  domain.FiscalPeriodOf(date),
		Version:       version,
	}
}

func TestJournalReadModel_ConditionalUpsert(t *testing.T) {
	ctx := context.Background()
	rm := memory.NewJournalReadModel()
	date := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	applied, err := rm.UpsertJournal(ctx, journalView("j-1", "GJ-2024-07-000001", date, domain.Draft, 1), 0)
	require.NoError(t, err)
	assert.True(t, applied)

	// A second insert of the same row is stale
	applied, err = rm.UpsertJournal(ctx, journalView("j-1", "GJ-2024-07-000001", date, domain.Draft, 1), 0)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = rm.UpsertJournal(ctx, journalView("j-1", "GJ-2024-07-000001", date, domain.Posted, 2), 1)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := rm.FindJournalByNumber(ctx, "tenant-1", "GJ-2024-07-000001")
	require.NoError(t, err)
	assert.Equal(t, domain.Posted, got.Status)
	assert.Equal(t, int64(2), got.Version)

	_, err = rm.FindJournalByID(ctx, "tenant-2", "j-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "rows are tenant scoped")
}

func TestJournalReadModel_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	rm := memory.NewJournalReadModel()
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		status := domain.Posted
		if i%2 == 0 {
			status = domain.Draft
		}
		_, err := rm.UpsertJournal(ctx, journalView(fmt.Sprintf("j-%d", i), fmt.Sprintf("GJ-2024-07-%06d", i+1), base.AddDate(0, 0, i), status, 1), 0)
		require.NoError(t, err)
	}

	page, next, err := rm.ListJournals(ctx, "tenant-1", portsrepo.JournalFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	assert.Equal(t, "j-4", page[0].JournalID, "newest first")
	assert.Equal(t, "j-3", page[1].JournalID)

	rest, next, err := rm.ListJournals(ctx, "tenant-1", portsrepo.JournalFilter{Limit: 10, NextToken: next})
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	assert.Nil(t, next)

	draft := domain.Draft
	drafts, _, err := rm.ListJournals(ctx, "tenant-1", portsrepo.JournalFilter{Status: &draft})
	require.NoError(t, err)
	assert.Len(t, drafts, 3)

	bad := "%%%"
	_, _, err = rm.ListJournals(ctx, "tenant-1", portsrepo.JournalFilter{NextToken: &bad})
	assert.Error(t, err)
}

func TestAccountReadModel_HierarchyIndex(t *testing.T) {
	ctx := context.Background()
	rm := memory.NewAccountReadModel()

	parent := domain.AccountView{TenantID: "tenant-1", AccountID: "p", Code: "1000", AccountType: domain.Asset, IsActive: true, Version: 1, Balance: decimal.Zero}
	child := domain.AccountView{TenantID: "tenant-1", AccountID: "c", Code: "1100", AccountType: domain.Asset, ParentAccountID: "p", IsActive: true, Version: 1}
	_, err := rm.UpsertAccount(ctx, parent, 0)
	require.NoError(t, err)
	_, err = rm.UpsertAccount(ctx, child, 0)
	require.NoError(t, err)

	children, err := rm.ListChildAccounts(ctx, "tenant-1", "p")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "1100", children[0].Code)
	assert.True(t, children[0].IsActive)

	child.IsActive = false
	child.Version = 2
	applied, err := rm.UpsertAccount(ctx, child, 1)
	require.NoError(t, err)
	require.True(t, applied)

	children, err = rm.ListChildAccounts(ctx, "tenant-1", "p")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.False(t, children[0].IsActive, "the index follows the child row")

	byCode, err := rm.FindAccountByCode(ctx, "tenant-1", "1000")
	require.NoError(t, err)
	assert.Equal(t, "p", byCode.AccountID)

	page, next, err := rm.ListAccounts(ctx, "tenant-1", portsrepo.AccountFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.NotNil(t, next)
	rest, _, err := rm.ListAccounts(ctx, "tenant-1", portsrepo.AccountFilter{Limit: 1, NextToken: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "1100", rest[0].Code)
}

func TestSequenceAllocator_ConcurrentAllocationsAreDistinct(t *testing.T) {
	ctx := context.Background()
	alloc := memory.NewSequenceAllocator()
	ym := domain.YearMonth{Year: 2024, Month: time.July}

	const n = 1000
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := alloc.NextSequence(ctx, "tenant-1", domain.General, ym)
			assert.NoError(t, err)
			mu.Lock()
			seen[seq] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)

	other, err := alloc.NextSequence(ctx, "tenant-1", domain.Sales, ym)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "each journal type has its own counter")
}

func TestPeriodRepository(t *testing.T) {
	ctx := context.Background()
	periods := memory.NewPeriodRepository()
	date := time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC)

	open, err := periods.IsOpen(ctx, "tenant-1", date)
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, periods.ClosePeriod(ctx, "tenant-1", domain.FiscalPeriodOf(date), "user-1"))
	open, err = periods.IsOpen(ctx, "tenant-1", date)
	require.NoError(t, err)
	assert.False(t, open)

	open, err = periods.IsOpen(ctx, "tenant-2", date)
	require.NoError(t, err)
	assert.True(t, open, "closing is per tenant")

	require.NoError(t, periods.ReopenPeriod(ctx, "tenant-1", domain.FiscalPeriodOf(date)))
	open, err = periods.IsOpen(ctx, "tenant-1", date)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestDeadLetterStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDeadLetterStore()
	evt := domain.Event{EventID: "e-1", TenantID: "tenant-1", Version: 1}

	require.NoError(t, store.Quarantine(ctx, "journals", evt, "boom"))
	require.NoError(t, store.Quarantine(ctx, "journals", evt, "boom again"))

	letters, err := store.ListDeadLetters(ctx, "journals", 10)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, 2, letters[0].Attempts)
	assert.Equal(t, "boom again", letters[0].Reason)

	require.NoError(t, store.Resolve(ctx, letters[0].ID))
	letters, err = store.ListDeadLetters(ctx, "journals", 10)
	require.NoError(t, err)
	assert.Empty(t, letters)
}
