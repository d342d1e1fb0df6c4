package projection

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
)

// ErrDispatcherStopped is returned by Publish once the dispatcher has shut down.
var ErrDispatcherStopped = errors.New("projection dispatcher stopped")

const defaultPartitionBuffer = 256

// PartitionOf maps a stream to one of n partitions. Every event of a stream lands on the same
// partition, which keeps per-aggregate delivery ordered.
func PartitionOf(streamID string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(streamID))
	return int(h.Sum32() % uint32(n))
}

// Dispatcher fans published events out to one goroutine per partition.
type Dispatcher struct {
	handler    messaging.EventHandler
	logger     *slog.Logger
	partitions []chan domain.Event

	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

// NewDispatcher creates a dispatcher with the given number of partitions.
func NewDispatcher(handler messaging.EventHandler, partitions int, logger *slog.Logger) *Dispatcher {
	if partitions <= 0 {
		partitions = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handler:    handler,
		logger:     logger.With(slog.String("component", "projection_dispatcher")),
		partitions: make([]chan domain.Event, partitions),
		done:       make(chan struct{}),
	}
	for i := range d.partitions {
		d.partitions[i] = make(chan domain.Event, defaultPartitionBuffer)
	}
	return d
}

var _ messaging.EventPublisher = (*Dispatcher)(nil)

// Publish enqueues events on their partitions. It blocks while a partition is full.
func (d *Dispatcher) Publish(ctx context.Context, events []domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	for _, evt := range events {
		ch := d.partitions[PartitionOf(evt.StreamID(), len(d.partitions))]
		select {
		case ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run processes partitions until ctx is cancelled, then drains what was already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, ch := range d.partitions {
		wg.Add(1)
		go func(partition int, ch <-chan domain.Event) {
			defer wg.Done()
			d.work(ctx, partition, ch)
		}(i, ch)
	}

	<-ctx.Done()
	d.mu.Lock()
	d.stopped = true
	for _, ch := range d.partitions {
		close(ch)
	}
	d.mu.Unlock()
	wg.Wait()
	close(d.done)
	return nil
}

// Done is closed after Run has drained every partition.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) work(ctx context.Context, partition int, ch <-chan domain.Event) {
	// Queued events are still applied after shutdown starts.
	handleCtx := context.WithoutCancel(ctx)
	for evt := range ch {
		if err := d.handler.Handle(handleCtx, evt); err != nil {
			// The catch-up poller redelivers from the event store.
			d.logger.Warn("Failed to project event",
				slog.Int("partition", partition),
				slog.String("event_id", evt.EventID),
				slog.String("stream_id", evt.StreamID()),
				slog.Int64("version", evt.Version),
				slog.String("error", err.Error()))
		}
	}
}
