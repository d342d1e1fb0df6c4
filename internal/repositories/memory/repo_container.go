package memory

import (
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

// NewRepositoryProvider creates a provider with every repository held in memory.
func NewRepositoryProvider() *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		EventStore:  NewEventStore(),
		JournalRead: NewJournalReadModel(),
		AccountRead: NewAccountReadModel(),
		Sequences:   NewSequenceAllocator(),
		Periods:     NewPeriodRepository(),
		DeadLetters: NewDeadLetterStore(),
		Checkpoints: NewCheckpointStore(),
		Snapshots:   NewSnapshotCache(),
		Leases:      NewLeaseLocker(),
	}
}
