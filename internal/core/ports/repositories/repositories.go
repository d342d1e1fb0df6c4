package repositories

// RepositoryProvider holds all repository interfaces needed by services and the projection.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	EventStore  EventStoreFacade
	JournalRead JournalReadModelFacade
	AccountRead AccountReadModelFacade
	Sequences   SequenceAllocator
	Periods     PeriodRepositoryFacade
	DeadLetters DeadLetterStore
	Checkpoints CheckpointStore
	Snapshots   SnapshotCache // optional
	Leases      LeaseLocker   // optional
}
