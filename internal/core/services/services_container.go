package services

import (
	"github.com/SscSPs/mma_ledger/internal/core/eventsourcing"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// publisher may be nil, in which case the read model is only fed by the catch-up poller.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, publisher messaging.EventPublisher) *portssvc.ServiceContainer {
	opts := []eventsourcing.Option{eventsourcing.WithTimeout(cfg.StoreTimeout)}
	if publisher != nil {
		opts = append(opts, eventsourcing.WithPublisher(publisher))
	}
	if repos.Snapshots != nil {
		opts = append(opts, eventsourcing.WithSnapshots(repos.Snapshots, cfg.SnapshotEvery))
	}
	store := eventsourcing.NewStore(repos.EventStore, opts...)

	return &portssvc.ServiceContainer{
		Journal: NewJournalService(store, repos.Sequences, repos.Periods, repos.JournalRead, cfg.CommandMaxRetries),
		Account: NewAccountService(store, repos.AccountRead),
		Period:  NewPeriodService(repos.Periods),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.JournalSvcFacade = (*journalService)(nil)
	_ portssvc.AccountSvcFacade = (*accountService)(nil)
	_ portssvc.PeriodSvc        = (*periodService)(nil)
)
