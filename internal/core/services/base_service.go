package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/middleware"
)

// DefaultMaxRetries is the number of attempts for commands that retry on a concurrency conflict.
const DefaultMaxRetries = 3

// BaseService provides common functionality for all services
type BaseService struct {
	validate   *validator.Validate
	maxRetries int
	now        func() time.Time
}

// newBaseService creates a BaseService. The validator reads the same `binding` tags gin uses,
// so requests arriving through other transports get the same checks.
func newBaseService(maxRetries int) BaseService {
	v := validator.New()
	v.SetTagName("binding")
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return BaseService{
		validate:   v,
		maxRetries: maxRetries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		// Return a default logger if not found in context
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// ValidateRequest checks the struct tags of a request DTO.
func (s *BaseService) ValidateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
}

// meta stamps a command with its actor and the service clock.
func (s *BaseService) meta(actorID string) domain.Metadata {
	return domain.Metadata{ActorID: actorID, OccurredAt: s.now()}
}

// retryOnConflict runs attempt until it succeeds, fails with anything but a concurrency
// conflict, or the attempts are used up. Each attempt must reload its aggregates.
func (s *BaseService) retryOnConflict(ctx context.Context, op string, attempt func() error) error {
	var err error
	for i := 1; i <= s.maxRetries; i++ {
		if err = attempt(); err == nil || !errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return err
		}
		s.LogDebug(ctx, "Concurrency conflict, retrying", slog.String("operation", op), slog.Int("attempt", i))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}
	}
	s.GetLogger(ctx).Warn("Giving up after repeated concurrency conflicts", slog.String("operation", op), slog.Int("attempts", s.maxRetries))
	return err
}

func requireTenant(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return domain.ErrTenantRequired
	}
	return nil
}
