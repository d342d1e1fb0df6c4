package pgsql

import (
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every ledger repository onto one pool.
// Snapshots stay nil; they are cached in redis when configured.
func NewRepositoryProvider(dbPool *pgxpool.Pool) *portsrepo.RepositoryProvider {
	return &portsrepo.RepositoryProvider{
		EventStore:  newPgxEventStore(dbPool),
		JournalRead: newPgxJournalReadModel(dbPool),
		AccountRead: newPgxAccountReadModel(dbPool),
		Sequences:   newPgxSequenceAllocator(dbPool),
		Periods:     newPgxPeriodRepository(dbPool),
		DeadLetters: newPgxDeadLetterStore(dbPool),
		Checkpoints: newPgxCheckpointStore(dbPool),
		Leases:      newPgxLeaseLocker(dbPool),
	}
}
