package repositories

import (
	"context"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
)

// StreamBatch is the set of events appended to one stream as part of an atomic write.
type StreamBatch struct {
	StreamID        string
	ExpectedVersion int64
	Events          []domain.Event
}

// EventStreamReader reads a single aggregate stream.
type EventStreamReader interface {
	// ReadStream returns the events of streamID with version >= fromVersion, in version order.
	// A missing stream yields an empty slice.
	ReadStream(ctx context.Context, streamID string, fromVersion int64) ([]domain.Event, error)
}

// EventFeedReader reads the global, position-ordered feed across all streams.
type EventFeedReader interface {
	// ReadAll returns at most limit events with GlobalPosition > afterPosition.
	ReadAll(ctx context.Context, afterPosition int64, limit int) ([]domain.Event, error)
}

// EventAppender appends events under optimistic concurrency.
type EventAppender interface {
	// Append adds events to streamID if its current version equals expectedVersion,
	// otherwise it returns an *apperrors.ConcurrencyError. The returned events carry their global positions.
	Append(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) ([]domain.Event, error)

	// AppendStreams appends every batch or none of them.
	AppendStreams(ctx context.Context, batches ...StreamBatch) ([]domain.Event, error)
}

// EventStoreFacade combines all event store interfaces.
type EventStoreFacade interface {
	EventStreamReader
	EventFeedReader
	EventAppender
}
