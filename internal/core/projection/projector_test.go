package projection_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/eventsourcing"
	"github.com/SscSPs/mma_ledger/internal/core/projection"
	"github.com/SscSPs/mma_ledger/internal/repositories/memory"
)

const tenant = "tenant-1"

var meta = domain.Metadata{ActorID: "user-1", OccurredAt: time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)}

type fixture struct {
	events      *memory.EventStore
	store       *eventsourcing.Store
	journals    *memory.JournalReadModel
	accounts    *memory.AccountReadModel
	deadLetters *memory.DeadLetterStore
}

func newFixture() *fixture {
	events := memory.NewEventStore()
	return &fixture{
		events:      events,
		store:       eventsourcing.NewStore(events),
		journals:    memory.NewJournalReadModel(),
		accounts:    memory.NewAccountReadModel(),
		deadLetters: memory.NewDeadLetterStore(),
	}
}

func (f *fixture) projector(opts ...projection.ProjectorOption) *projection.Projector {
	opts = append([]projection.ProjectorOption{projection.WithDeadLetters(f.deadLetters)}, opts...)
	return projection.NewProjector(f.journals, f.accounts, nil, opts...)
}

// saveCash persists a cash account with the given debits and returns its stream.
func (f *fixture) saveCash(t *testing.T, id string, debits ...int64) []domain.Event {
	t.Helper()
	acc, err := domain.CreateAccount(domain.NewAccountParams{
		AccountID:   id,
		TenantID:    tenant,
		Code:        "C-" + id,
		Name:        "Cash " + id,
		AccountType: domain.Asset,
	}, meta)
	require.NoError(t, err)
	for i, amount := range debits {
		require.NoError(t, acc.Debit(decimal.NewFromInt(amount), fmt.Sprintf("j-%d", i), meta))
	}
	require.NoError(t, f.store.Save(context.Background(), acc, 0))

	stream, err := f.events.ReadStream(context.Background(), domain.StreamID(tenant, domain.AggregateAccount, id), 1)
	require.NoError(t, err)
	return stream
}

func TestProjector_AppliesEventsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector()
	stream := f.saveCash(t, "acc-1", 100, 50)

	for _, evt := range stream {
		require.NoError(t, p.Handle(ctx, evt))
	}
	// Redelivery of the whole stream is a no-op.
	for _, evt := range stream {
		require.NoError(t, p.Handle(ctx, evt))
	}

	view, err := f.accounts.FindAccountByID(ctx, tenant, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), view.Version)
	assert.True(t, decimal.NewFromInt(150).Equal(view.Balance), "balance %s", view.Balance)
}

func TestProjector_OutOfOrderWithoutStreamReader(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector()
	stream := f.saveCash(t, "acc-1", 100)

	err := p.Handle(ctx, stream[1])
	assert.ErrorIs(t, err, domain.ErrOutOfOrder)

	_, err = f.accounts.FindAccountByID(ctx, tenant, "acc-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	letters, err := f.deadLetters.ListDeadLetters(ctx, projection.Name, 0)
	require.NoError(t, err)
	assert.Empty(t, letters, "out-of-order events are redelivered, not quarantined")
}

func TestProjector_BackfillsGapFromStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector(projection.WithStreamReader(f.events))
	stream := f.saveCash(t, "acc-1", 100, 20, 5)

	require.NoError(t, p.Handle(ctx, stream[2]))

	view, err := f.accounts.FindAccountByID(ctx, tenant, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), view.Version)
	assert.True(t, decimal.NewFromInt(120).Equal(view.Balance), "the gap stops at the delivered version")

	require.NoError(t, p.Handle(ctx, stream[3]))
	view, err = f.accounts.FindAccountByID(ctx, tenant, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), view.Version)
	assert.True(t, decimal.NewFromInt(125).Equal(view.Balance))
}

func TestProjector_QuarantinesUnknownEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector()
	bogus := domain.Event{
		EventID:        "evt-bogus",
		TenantID:       tenant,
		AggregateType:  domain.AggregateAccount,
		AggregateID:    "acc-9",
		Version:        1,
		Type:           domain.EventType("AccountMerged"),
		GlobalPosition: 7,
	}

	require.NoError(t, p.Handle(ctx, bogus))
	require.NoError(t, p.Handle(ctx, bogus))

	letters, err := f.deadLetters.ListDeadLetters(ctx, projection.Name, 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "evt-bogus", letters[0].Event.EventID)
	assert.Equal(t, 2, letters[0].Attempts)
	assert.Contains(t, letters[0].Reason, string(domain.CodeUnknownEvent))

	err = p.Apply(ctx, domain.Event{EventID: "x", TenantID: tenant, AggregateType: "invoice", AggregateID: "i-1", Version: 1})
	assert.ErrorIs(t, err, domain.ErrUnknownEvent)
}

func TestProjector_JournalLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector(projection.WithStreamReader(f.events))

	lines := []domain.JournalLine{
		{LineID: "l-1", AccountID: "cash", AccountCode: "1000", DebitAmount: decimal.NewFromInt(500)},
		{LineID: "l-2", AccountID: "sales", AccountCode: "4000", CreditAmount: decimal.NewFromInt(500)},
	}
	j, err := domain.CreateJournal(domain.NewJournalParams{
		JournalID:     "j-1",
		TenantID:      tenant,
		JournalNumber: "GJ-2024-07-000001",
		JournalDate:   meta.OccurredAt,
		JournalType:   domain.General,
		Description:   "Cash sale",
		Lines:         lines,
		AutoPost:      true,
	}, meta)
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, j, 0))

	feed, err := f.events.ReadAll(ctx, 0, 100)
	require.NoError(t, err)
	for _, evt := range feed {
		require.NoError(t, p.Handle(ctx, evt))
	}

	view, err := f.journals.FindJournalByNumber(ctx, tenant, "GJ-2024-07-000001")
	require.NoError(t, err)
	assert.Equal(t, domain.Posted, view.Status)
	assert.Equal(t, "FY2024-2025-P01", view.FiscalPeriod)
	assert.True(t, decimal.NewFromInt(500).Equal(view.TotalDebit))
	assert.True(t, view.TotalDebit.Equal(view.TotalCredit))
	assert.Equal(t, int64(2), view.Version)
	assert.Equal(t, j.View().Lines, view.Lines)
}

type failingJournals struct {
	*memory.JournalReadModel
}

func (failingJournals) FindJournalByID(context.Context, string, string) (*domain.JournalView, error) {
	return nil, errors.New("connection reset")
}

func TestProjector_InfrastructureErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := projection.NewProjector(failingJournals{f.journals}, f.accounts, nil, projection.WithDeadLetters(f.deadLetters))

	evt, err := domain.NewEvent(tenant, domain.AggregateJournal, "j-1", 1, domain.EventJournalCancelled, domain.JournalCancelled{}, meta)
	require.NoError(t, err)

	err = p.Handle(ctx, evt)
	require.Error(t, err)
	assert.True(t, apperrors.IsInfrastructure(err))
	letters, err := f.deadLetters.ListDeadLetters(ctx, projection.Name, 0)
	require.NoError(t, err)
	assert.Empty(t, letters)
}

func TestDeadLetterRetrier_ResolvesRecoveredEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p := f.projector()
	stream := f.saveCash(t, "acc-1")
	require.NoError(t, f.deadLetters.Quarantine(ctx, projection.Name, stream[0], "read model was down"))
	bogus := domain.Event{EventID: "evt-bogus", TenantID: tenant, AggregateType: domain.AggregateAccount, AggregateID: "acc-9", Version: 1, Type: "AccountMerged"}
	require.NoError(t, f.deadLetters.Quarantine(ctx, projection.Name, bogus, "unknown"))

	retrier := projection.NewDeadLetterRetrier(f.deadLetters, p, nil)
	resolved, err := retrier.RetryOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	_, err = f.accounts.FindAccountByID(ctx, tenant, "acc-1")
	require.NoError(t, err)
	letters, err := f.deadLetters.ListDeadLetters(ctx, projection.Name, 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "evt-bogus", letters[0].Event.EventID)
	assert.Equal(t, 2, letters[0].Attempts)
}
