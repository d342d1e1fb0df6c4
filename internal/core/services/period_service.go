package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
)

var fiscalPeriodPattern = regexp.MustCompile(`^FY(\d{4})-(\d{4})-P(0[1-9]|1[0-2])$`)

// periodService exposes the accounting-period status collaborator.
type periodService struct {
	BaseService
	periods portsrepo.PeriodRepositoryFacade
}

// NewPeriodService creates a new PeriodService.
func NewPeriodService(periods portsrepo.PeriodRepositoryFacade) portssvc.PeriodSvc {
	return &periodService{BaseService: newBaseService(0), periods: periods}
}

var _ portssvc.PeriodSvc = (*periodService)(nil)

func (s *periodService) IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	if err := requireTenant(tenantID); err != nil {
		return false, err
	}
	open, err := s.periods.IsOpen(ctx, tenantID, date)
	if err != nil {
		return false, apperrors.NewInfraError("period.is_open", tenantID, "", err)
	}
	return open, nil
}

func (s *periodService) ClosePeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	fiscalPeriod, err := parseFiscalPeriod(fiscalPeriod)
	if err != nil {
		return err
	}
	if err := s.periods.ClosePeriod(ctx, tenantID, fiscalPeriod, actorID); err != nil {
		return apperrors.NewInfraError("period.close", tenantID, fiscalPeriod, err)
	}
	s.LogInfo(ctx, "Fiscal period closed", slog.String("fiscal_period", fiscalPeriod), slog.String("actor_id", actorID))
	return nil
}

func (s *periodService) ReopenPeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	fiscalPeriod, err := parseFiscalPeriod(fiscalPeriod)
	if err != nil {
		return err
	}
	if err := s.periods.ReopenPeriod(ctx, tenantID, fiscalPeriod); err != nil {
		return apperrors.NewInfraError("period.reopen", tenantID, fiscalPeriod, err)
	}
	s.LogInfo(ctx, "Fiscal period reopened", slog.String("fiscal_period", fiscalPeriod), slog.String("actor_id", actorID))
	return nil
}

// parseFiscalPeriod accepts labels like FY2024-2025-P01.
func parseFiscalPeriod(label string) (string, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	m := fiscalPeriodPattern.FindStringSubmatch(label)
	if m == nil {
		return "", fmt.Errorf("%w: invalid fiscal period %q", apperrors.ErrValidation, label)
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("%w: invalid fiscal period %q: %v", apperrors.ErrValidation, label, err)
	}
	end, err := strconv.Atoi(m[2])
	if err != nil {
		return "", fmt.Errorf("%w: invalid fiscal period %q: %v", apperrors.ErrValidation, label, err)
	}
	if end != start+1 {
		return "", fmt.Errorf("%w: invalid fiscal period %q", apperrors.ErrValidation, label)
	}
	return label, nil
}
