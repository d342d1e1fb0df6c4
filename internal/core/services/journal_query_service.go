package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// Query handlers read only the journal read model, never the event streams.

func (s *journalService) GetJournal(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	view, err := s.readModel.FindJournalByID(ctx, tenantID, journalID)
	if err != nil {
		return nil, journalReadError(err, "read_model.find_journal", tenantID, journalID)
	}
	return view, nil
}

func (s *journalService) GetJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	view, err := s.readModel.FindJournalByNumber(ctx, tenantID, strings.TrimSpace(journalNumber))
	if err != nil {
		return nil, journalReadError(err, "read_model.find_journal_by_number", tenantID, journalNumber)
	}
	return view, nil
}

func (s *journalService) ListJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	filter, err := s.journalFilter(params)
	if err != nil {
		return nil, err
	}
	return s.listJournals(ctx, tenantID, filter)
}

// ListJournalsByPeriod lists the journals of one fiscal period, e.g. FY2024-2025-P01.
func (s *journalService) ListJournalsByPeriod(ctx context.Context, tenantID, fiscalPeriod string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	fiscalPeriod = strings.TrimSpace(fiscalPeriod)
	if fiscalPeriod == "" {
		return nil, fmt.Errorf("%w: fiscal period is required", apperrors.ErrValidation)
	}
	filter, err := s.journalFilter(params)
	if err != nil {
		return nil, err
	}
	filter.FiscalPeriod = fiscalPeriod
	return s.listJournals(ctx, tenantID, filter)
}

// ListUnpostedJournals lists DRAFT journals.
func (s *journalService) ListUnpostedJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	filter, err := s.journalFilter(params)
	if err != nil {
		return nil, err
	}
	draft := domain.Draft
	filter.Status = &draft
	return s.listJournals(ctx, tenantID, filter)
}

func (s *journalService) listJournals(ctx context.Context, tenantID string, filter portsrepo.JournalFilter) (*dto.ListJournalsResponse, error) {
	views, nextToken, err := s.readModel.ListJournals(ctx, tenantID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journals")
		return nil, apperrors.NewInfraError("read_model.list_journals", tenantID, "", err)
	}
	return &dto.ListJournalsResponse{
		Journals:  dto.ToJournalResponses(views),
		NextToken: nextToken,
	}, nil
}

func (s *journalService) journalFilter(params dto.ListJournalsParams) (portsrepo.JournalFilter, error) {
	if err := s.ValidateRequest(params); err != nil {
		return portsrepo.JournalFilter{}, err
	}
	filter := portsrepo.JournalFilter{
		FiscalPeriod: strings.TrimSpace(params.FiscalPeriod),
		DateFrom:     params.DateFrom,
		DateTo:       params.DateTo,
		Limit:        params.Limit,
		NextToken:    params.NextToken,
	}
	if params.Status != "" {
		status := domain.JournalStatus(params.Status)
		filter.Status = &status
	}
	if params.JournalType != "" {
		journalType, err := domain.ParseJournalType(params.JournalType)
		if err != nil {
			return portsrepo.JournalFilter{}, err
		}
		filter.JournalType = &journalType
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return portsrepo.JournalFilter{}, fmt.Errorf("%w: dateTo is before dateFrom", apperrors.ErrValidation)
	}
	return filter, nil
}

func journalReadError(err error, op, tenantID, key string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.Errorf(domain.ErrJournalNotFound, "journal %s not found", key)
	}
	return apperrors.NewInfraError(op, tenantID, key, err)
}
