package projection

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

const defaultRetryBatch = 100

// DeadLetterRetrier re-applies quarantined events.
type DeadLetterRetrier struct {
	store     portsrepo.DeadLetterStore
	projector *Projector
	batch     int
	logger    *slog.Logger
}

// NewDeadLetterRetrier creates a retrier for the projector's dead letters.
func NewDeadLetterRetrier(store portsrepo.DeadLetterStore, projector *Projector, logger *slog.Logger) *DeadLetterRetrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeadLetterRetrier{
		store:     store,
		projector: projector,
		batch:     defaultRetryBatch,
		logger:    logger.With(slog.String("component", "dead_letter_retrier")),
	}
}

// RetryOnce re-applies one batch of dead letters, oldest first. Successes are resolved,
// failures get their attempt count bumped.
func (r *DeadLetterRetrier) RetryOnce(ctx context.Context) (resolved int, err error) {
	letters, err := r.store.ListDeadLetters(ctx, Name, r.batch)
	if err != nil {
		return 0, apperrors.NewInfraError("dead_letter.list", "", Name, err)
	}
	for _, dl := range letters {
		applyErr := r.projector.Apply(ctx, dl.Event)
		if applyErr != nil {
			r.logger.Warn("Dead letter still failing",
				slog.String("dead_letter_id", dl.ID),
				slog.String("event_id", dl.Event.EventID),
				slog.Int("attempts", dl.Attempts+1),
				slog.String("error", applyErr.Error()))
			if err := r.store.RecordFailure(ctx, dl.ID, applyErr.Error()); err != nil {
				return resolved, apperrors.NewInfraError("dead_letter.record_failure", dl.Event.TenantID, dl.Event.AggregateID, err)
			}
			continue
		}
		if err := r.store.Resolve(ctx, dl.ID); err != nil {
			return resolved, apperrors.NewInfraError("dead_letter.resolve", dl.Event.TenantID, dl.Event.AggregateID, err)
		}
		resolved++
	}
	if resolved > 0 {
		r.logger.Info("Resolved dead letters", slog.Int("count", resolved))
	}
	return resolved, nil
}

// Schedule registers RetryOnce on c. The job runs under ctx.
func (r *DeadLetterRetrier) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if _, err := r.RetryOnce(ctx); err != nil {
			r.logger.Error("Dead letter retry failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return 0, err
	}
	r.logger.Info("Scheduled dead letter retry", slog.String("schedule", spec))
	return id, nil
}
