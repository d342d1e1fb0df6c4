package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// SequenceAllocator hands out journal-number sequences. Allocation is serialized per
// (tenant, journal type, month) and never returns the same value twice for a key.
type SequenceAllocator interface {
	NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error)
}

// PeriodStatusChecker tells whether postings dated on a day are still allowed.
type PeriodStatusChecker interface {
	IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error)
}

// PeriodCloser closes and reopens fiscal periods.
type PeriodCloser interface {
	ClosePeriod(ctx context.Context, tenantID, fiscalPeriod, actorID string) error
	ReopenPeriod(ctx context.Context, tenantID, fiscalPeriod string) error
}

// PeriodRepositoryFacade combines the period interfaces.
type PeriodRepositoryFacade interface {
	PeriodStatusChecker
	PeriodCloser
}

// Snapshot is a serialized aggregate state at Version.
type Snapshot struct {
	StreamID string
	Version  int64
	State    []byte
}

// SnapshotCache stores aggregate snapshots. A miss is (nil, nil).
type SnapshotCache interface {
	LoadSnapshot(ctx context.Context, streamID string) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// DeadLetter is an event the projection could not apply.
type DeadLetter struct {
	ID            string
	Projection    string
	Event         domain.Event
	Reason        string
	Attempts      int
	FirstFailedAt time.Time
	LastFailedAt  time.Time
}

// DeadLetterStore quarantines failed projection events until a retry succeeds.
type DeadLetterStore interface {
	// Quarantine records evt. Quarantining the same event again only bumps the attempt count.
	Quarantine(ctx context.Context, projection string, evt domain.Event, reason string) error
	ListDeadLetters(ctx context.Context, projection string, limit int) ([]DeadLetter, error)
	RecordFailure(ctx context.Context, id string, reason string) error
	Resolve(ctx context.Context, id string) error
}

// CheckpointStore persists the last processed global position of a feed consumer.
type CheckpointStore interface {
	LoadCheckpoint(ctx context.Context, name string) (int64, error)
	SaveCheckpoint(ctx context.Context, name string, position int64) error
}

// LeaseLocker grants short exclusive leases so only one catch-up poller works a partition at a time.
// ok is false when another holder owns the lease.
type LeaseLocker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
