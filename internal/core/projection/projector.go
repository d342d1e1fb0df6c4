// Package projection folds persisted events into the journal and account read models.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

// Name identifies this projection in dead letters and checkpoints.
const Name = "ledger_read_model"

// maxUpsertAttempts bounds re-reads when another feed moves a row between our read and write.
const maxUpsertAttempts = 3

// Projector applies events to the read models exactly once per (aggregate, version).
type Projector struct {
	journals    portsrepo.JournalReadModelFacade
	accounts    portsrepo.AccountReadModelFacade
	streams     portsrepo.EventStreamReader
	deadLetters portsrepo.DeadLetterStore
	logger      *slog.Logger
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithStreamReader lets the projector back-fill version gaps from the event store.
func WithStreamReader(r portsrepo.EventStreamReader) ProjectorOption {
	return func(p *Projector) { p.streams = r }
}

// WithDeadLetters quarantines events that cannot be applied.
func WithDeadLetters(s portsrepo.DeadLetterStore) ProjectorOption {
	return func(p *Projector) { p.deadLetters = s }
}

// NewProjector creates a Projector over the two read models.
func NewProjector(journals portsrepo.JournalReadModelFacade, accounts portsrepo.AccountReadModelFacade, logger *slog.Logger, opts ...ProjectorOption) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Projector{
		journals: journals,
		accounts: accounts,
		logger:   logger.With(slog.String("component", "projector")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ messaging.EventHandler = (*Projector)(nil)

// Handle applies evt. Infrastructure errors and out-of-order deliveries are returned so the
// feed redelivers; any other failure is quarantined and reported as handled.
func (p *Projector) Handle(ctx context.Context, evt domain.Event) error {
	err := p.Apply(ctx, evt)
	if err == nil || apperrors.IsInfrastructure(err) || errors.Is(err, domain.ErrOutOfOrder) {
		return err
	}
	if p.deadLetters == nil {
		return err
	}
	p.logger.Warn("Quarantining event",
		slog.String("event_id", evt.EventID),
		slog.String("stream_id", evt.StreamID()),
		slog.Int64("version", evt.Version),
		slog.String("error", err.Error()))
	if qErr := p.deadLetters.Quarantine(ctx, Name, evt, err.Error()); qErr != nil {
		return apperrors.NewInfraError("dead_letter.quarantine", evt.TenantID, evt.AggregateID, qErr)
	}
	return nil
}

// Apply folds evt into its read-model row without quarantining failures.
func (p *Projector) Apply(ctx context.Context, evt domain.Event) error {
	switch evt.AggregateType {
	case domain.AggregateJournal:
		return p.applyJournal(ctx, evt)
	case domain.AggregateAccount:
		return p.applyAccount(ctx, evt)
	case domain.AggregateAccountCode:
		// Code reservations have no read-model row.
		if _, err := domain.DecodePayload(evt); err != nil {
			return err
		}
		return nil
	default:
		return domain.Errorf(domain.ErrUnknownEvent, "unknown aggregate type %q on stream %s", evt.AggregateType, evt.StreamID())
	}
}

func (p *Projector) applyJournal(ctx context.Context, evt domain.Event) error {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		view, err := p.journals.FindJournalByID(ctx, evt.TenantID, evt.AggregateID)
		var journal *domain.Journal
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			journal = domain.NewJournal(evt.TenantID, evt.AggregateID)
		case err != nil:
			return apperrors.NewInfraError("read_model.find_journal", evt.TenantID, evt.AggregateID, err)
		default:
			journal = domain.JournalFromView(*view)
		}

		current := journal.Version()
		if evt.Version <= current {
			return nil
		}
		if err := p.fold(ctx, journal, current, evt); err != nil {
			return err
		}
		applied, err := p.journals.UpsertJournal(ctx, journal.View(), current)
		if err != nil {
			return apperrors.NewInfraError("read_model.upsert_journal", evt.TenantID, evt.AggregateID, err)
		}
		if applied {
			return nil
		}
	}
	return apperrors.NewInfraError("read_model.upsert_journal", evt.TenantID, evt.AggregateID,
		fmt.Errorf("row kept moving after %d attempts", maxUpsertAttempts))
}

func (p *Projector) applyAccount(ctx context.Context, evt domain.Event) error {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		view, err := p.accounts.FindAccountByID(ctx, evt.TenantID, evt.AggregateID)
		var account *domain.Account
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			account = domain.NewAccount(evt.TenantID, evt.AggregateID)
		case err != nil:
			return apperrors.NewInfraError("read_model.find_account", evt.TenantID, evt.AggregateID, err)
		default:
			account = domain.AccountFromView(*view)
		}

		current := account.Version()
		if evt.Version <= current {
			return nil
		}
		if err := p.fold(ctx, account, current, evt); err != nil {
			return err
		}
		applied, err := p.accounts.UpsertAccount(ctx, account.View(), current)
		if err != nil {
			return apperrors.NewInfraError("read_model.upsert_account", evt.TenantID, evt.AggregateID, err)
		}
		if applied {
			return nil
		}
	}
	return apperrors.NewInfraError("read_model.upsert_account", evt.TenantID, evt.AggregateID,
		fmt.Errorf("row kept moving after %d attempts", maxUpsertAttempts))
}

// fold applies evt to agg, first back-filling any versions between current and evt.
func (p *Projector) fold(ctx context.Context, agg domain.Aggregate, current int64, evt domain.Event) error {
	if evt.Version == current+1 {
		return agg.Apply(evt)
	}
	if p.streams == nil {
		return domain.Errorf(domain.ErrOutOfOrder, "stream %s is at version %d, got %d", evt.StreamID(), current, evt.Version)
	}

	missing, err := p.streams.ReadStream(ctx, evt.StreamID(), current+1)
	if err != nil {
		return apperrors.NewInfraError("event_store.read_stream", evt.TenantID, evt.AggregateID, err)
	}
	for _, e := range missing {
		if e.Version > evt.Version {
			break
		}
		if err := agg.Apply(e); err != nil {
			return err
		}
	}
	if agg.Version() < evt.Version {
		// The store has not caught up with the delivery yet.
		return domain.Errorf(domain.ErrOutOfOrder, "stream %s stops at version %d, got %d", evt.StreamID(), agg.Version(), evt.Version)
	}
	p.logger.Debug("Back-filled stream gap",
		slog.String("stream_id", evt.StreamID()),
		slog.Int64("from_version", current+1),
		slog.Int64("to_version", evt.Version))
	return nil
}
