package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/ports/messaging"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

// PollerConfig configures a CatchUpPoller.
type PollerConfig struct {
	// Partition and Partitions restrict the poller to the streams PartitionOf assigns to it.
	Partition  int
	Partitions int
	BatchSize  int
	Interval   time.Duration
	// LeaseTTL is how long one pass may hold the partition lease.
	LeaseTTL time.Duration
}

// CatchUpPoller reads the global feed from a persisted checkpoint and hands every event to a
// handler. It repairs whatever the push feeds dropped.
type CatchUpPoller struct {
	feed        portsrepo.EventFeedReader
	checkpoints portsrepo.CheckpointStore
	leases      portsrepo.LeaseLocker
	handler     messaging.EventHandler
	cfg         PollerConfig
	logger      *slog.Logger
}

// NewCatchUpPoller creates a poller. leases may be nil when a single process runs the projection.
func NewCatchUpPoller(feed portsrepo.EventFeedReader, checkpoints portsrepo.CheckpointStore, leases portsrepo.LeaseLocker, handler messaging.EventHandler, cfg PollerConfig, logger *slog.Logger) *CatchUpPoller {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatchUpPoller{
		feed:        feed,
		checkpoints: checkpoints,
		leases:      leases,
		handler:     handler,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "catch_up_poller"), slog.Int("partition", cfg.Partition)),
	}
}

// CheckpointName is the checkpoint key of this poller's partition.
func (p *CatchUpPoller) CheckpointName() string {
	return fmt.Sprintf("%s/partition-%d-of-%d", Name, p.cfg.Partition, p.cfg.Partitions)
}

// Run polls until ctx is cancelled.
func (p *CatchUpPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("Catch-up pass failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs passes until the feed is exhausted and returns the number of events handled.
// A pass that cannot take the partition lease does nothing.
func (p *CatchUpPoller) Poll(ctx context.Context) (int, error) {
	if p.leases != nil {
		release, ok, err := p.leases.TryAcquire(ctx, "lease/"+p.CheckpointName(), p.cfg.LeaseTTL)
		if err != nil {
			return 0, apperrors.NewInfraError("lease.acquire", "", p.CheckpointName(), err)
		}
		if !ok {
			p.logger.Debug("Partition lease held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				p.logger.Warn("Failed to release partition lease", slog.String("error", err.Error()))
			}
		}()
	}

	total := 0
	for {
		n, more, err := p.pass(ctx)
		total += n
		if err != nil || !more {
			return total, err
		}
	}
}

// pass handles one batch. more reports whether the batch was full.
func (p *CatchUpPoller) pass(ctx context.Context) (handled int, more bool, err error) {
	name := p.CheckpointName()
	position, err := p.checkpoints.LoadCheckpoint(ctx, name)
	if err != nil {
		return 0, false, apperrors.NewInfraError("checkpoint.load", "", name, err)
	}
	events, err := p.feed.ReadAll(ctx, position, p.cfg.BatchSize)
	if err != nil {
		return 0, false, apperrors.NewInfraError("event_store.read_all", "", name, err)
	}
	if len(events) == 0 {
		return 0, false, nil
	}

	last := position
	defer func() {
		if last == position {
			return
		}
		if saveErr := p.checkpoints.SaveCheckpoint(context.WithoutCancel(ctx), name, last); saveErr != nil && err == nil {
			err = apperrors.NewInfraError("checkpoint.save", "", name, saveErr)
		}
	}()

	for _, evt := range events {
		if PartitionOf(evt.StreamID(), p.cfg.Partitions) == p.cfg.Partition {
			if err := p.handler.Handle(ctx, evt); err != nil {
				return handled, false, err
			}
			handled++
		}
		last = evt.GlobalPosition
	}
	return handled, len(events) == p.cfg.BatchSize, nil
}
