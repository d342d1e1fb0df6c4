package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/eventsourcing"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
)

// journalService handles journal commands against the event store and journal queries against the read model.
type journalService struct {
	BaseService
	aggregates aggregateRepositories
	sequences  portsrepo.SequenceAllocator
	periods    portsrepo.PeriodStatusChecker
	readModel  portsrepo.JournalReadModelReader
}

// NewJournalService creates a new JournalService.
func NewJournalService(store *eventsourcing.Store, sequences portsrepo.SequenceAllocator, periods portsrepo.PeriodStatusChecker, readModel portsrepo.JournalReadModelReader, maxRetries int) portssvc.JournalSvcFacade {
	return &journalService{
		BaseService: newBaseService(maxRetries),
		aggregates:  newAggregateRepositories(store),
		sequences:   sequences,
		periods:     periods,
		readModel:   readModel,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

// dateOnly keeps the calendar day the caller wrote, in whatever zone, as midnight UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lineFromRequest(req dto.JournalLineRequest) domain.JournalLine {
	return domain.JournalLine{
		LineID:       uuid.NewString(),
		AccountID:    strings.TrimSpace(req.AccountID),
		DebitAmount:  req.DebitAmount,
		CreditAmount: req.CreditAmount,
		Description:  req.Description,
		CostCenter:   req.CostCenter,
		Project:      req.Project,
	}
}

// denormalize copies the account code and name into the line and rejects inactive accounts.
func denormalize(line domain.JournalLine, acc *domain.Account) (domain.JournalLine, error) {
	if !acc.IsActive {
		return line, domain.Errorf(domain.ErrAccountInactive, "account %s is inactive", acc.Code)
	}
	line.AccountCode = acc.Code
	line.AccountName = acc.Name
	return line, nil
}

// nextJournalNumber allocates the next number for the journal type in the month of date.
// A number is lost only when the command fails after this call.
func (s *journalService) nextJournalNumber(ctx context.Context, tenantID string, journalType domain.JournalType, date time.Time) (string, error) {
	ym := domain.YearMonthOf(date)
	seq, err := s.sequences.NextSequence(ctx, tenantID, journalType, ym)
	if err != nil {
		return "", apperrors.NewInfraError("sequence.next", tenantID, domain.SequenceKey(tenantID, journalType, ym), err)
	}
	return domain.FormatJournalNumber(journalType, ym, seq), nil
}

// CreateJournal validates and persists a new journal.
// Implements portssvc.JournalSvcFacade
func (s *journalService) CreateJournal(ctx context.Context, tenantID, actorID string, req dto.CreateJournalRequest) (*domain.JournalView, error) {
	logger := s.GetLogger(ctx)
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}
	journalType, err := domain.ParseJournalType(req.JournalType)
	if err != nil {
		return nil, err
	}
	if journalType == domain.Reversing {
		return nil, domain.Errorf(domain.ErrInvalidJournalType, "reversing journals are only created by reversing a posted journal")
	}

	lines := make([]domain.JournalLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = lineFromRequest(l)
	}
	// Reject bad input before a journal number is spent on it.
	if err := domain.ValidateJournalLines(lines); err != nil {
		return nil, err
	}

	journalID := uuid.NewString()
	journalDate := dateOnly(req.JournalDate)
	var (
		journalNumber string
		created       *domain.Journal
	)
	err = s.retryOnConflict(ctx, "create_journal", func() error {
		accounts, ordered, err := s.aggregates.loadLineAccounts(ctx, tenantID, lines)
		if err != nil {
			return err
		}
		entryLines := make([]domain.JournalLine, len(lines))
		for i, line := range lines {
			if entryLines[i], err = denormalize(line, accounts[line.AccountID]); err != nil {
				return err
			}
		}

		if journalNumber == "" {
			if journalNumber, err = s.nextJournalNumber(ctx, tenantID, journalType, journalDate); err != nil {
				return err
			}
		}

		meta := s.meta(actorID)
		j, err := domain.CreateJournal(domain.NewJournalParams{
			JournalID:     journalID,
			TenantID:      tenantID,
			JournalNumber: journalNumber,
			JournalDate:   journalDate,
			JournalType:   journalType,
			Description:   strings.TrimSpace(req.Description),
			Reference:     strings.TrimSpace(req.Reference),
			Lines:         entryLines,
			AutoPost:      req.AutoPost,
		}, meta)
		if err != nil {
			return err
		}

		if req.AutoPost {
			if err := applyLines(accounts, j.Lines, j.JournalID, meta); err != nil {
				return err
			}
			if err := s.aggregates.store.SaveAll(ctx, asAggregates([]domain.Aggregate{j}, ordered)...); err != nil {
				return err
			}
		} else if err := s.aggregates.journals.Save(ctx, j, 0); err != nil {
			return err
		}
		created = j
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create journal", slog.String("tenant_id", tenantID), slog.String("journal_number", journalNumber))
		return nil, err
	}

	logger.Info("Journal created successfully",
		slog.String("journal_id", created.JournalID),
		slog.String("journal_number", created.JournalNumber),
		slog.String("status", string(created.Status)))
	view := created.View()
	return &view, nil
}

// AddJournalLine appends a line to a draft journal.
func (s *journalService) AddJournalLine(ctx context.Context, tenantID, actorID, journalID string, req dto.JournalLineRequest) (*domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}

	j, err := s.aggregates.loadJournal(ctx, tenantID, journalID)
	if err != nil {
		return nil, err
	}
	if j.Status != domain.Draft {
		return nil, domain.Errorf(domain.ErrNotDraft, "journal %s is %s", j.JournalNumber, j.Status)
	}
	line := lineFromRequest(req)
	if err := domain.ValidateJournalLine(line); err != nil {
		return nil, err
	}
	acc, err := s.aggregates.loadAccount(ctx, tenantID, line.AccountID)
	if err != nil {
		return nil, err
	}
	if line, err = denormalize(line, acc); err != nil {
		return nil, err
	}

	if err := j.AddLine(line, s.meta(actorID)); err != nil {
		return nil, err
	}
	if err := s.aggregates.journals.Save(ctx, j, j.OriginalVersion()); err != nil {
		s.LogError(ctx, err, "Failed to add journal line", slog.String("journal_id", journalID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal line added", slog.String("journal_id", journalID), slog.String("line_id", line.LineID))
	view := j.View()
	return &view, nil
}

// PostJournal posts a draft journal and moves the balances of its accounts in the same append.
func (s *journalService) PostJournal(ctx context.Context, tenantID, actorID, journalID string) (*domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	var posted *domain.Journal
	err := s.retryOnConflict(ctx, "post_journal", func() error {
		j, err := s.aggregates.loadJournal(ctx, tenantID, journalID)
		if err != nil {
			return err
		}
		meta := s.meta(actorID)
		if err := j.Post(meta); err != nil {
			return err
		}
		accounts, ordered, err := s.aggregates.loadLineAccounts(ctx, tenantID, j.Lines)
		if err != nil {
			return err
		}
		if err := applyLines(accounts, j.Lines, j.JournalID, meta); err != nil {
			return err
		}
		if err := s.aggregates.store.SaveAll(ctx, asAggregates([]domain.Aggregate{j}, ordered)...); err != nil {
			return err
		}
		posted = j
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to post journal", slog.String("journal_id", journalID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal posted", slog.String("journal_id", journalID), slog.String("journal_number", posted.JournalNumber))
	view := posted.View()
	return &view, nil
}

// ReverseJournal creates and posts the reversing journal and marks the original REVERSED,
// appending both journals and the touched accounts atomically.
func (s *journalService) ReverseJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.ReverseJournalRequest) (*domain.JournalView, *domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, nil, err
	}
	reversingDate := dateOnly(s.now())
	if req.ReversingDate != nil && !req.ReversingDate.IsZero() {
		reversingDate = dateOnly(*req.ReversingDate)
	}

	reversingID := uuid.NewString()
	var (
		journalNumber       string
		original, reversing *domain.Journal
	)
	err := s.retryOnConflict(ctx, "reverse_journal", func() error {
		j, err := s.aggregates.loadJournal(ctx, tenantID, journalID)
		if err != nil {
			return err
		}
		if err := j.CanReverse(); err != nil {
			return err
		}
		open, err := s.periods.IsOpen(ctx, tenantID, reversingDate)
		if err != nil {
			return apperrors.NewInfraError("period.is_open", tenantID, journalID, err)
		}
		if open && journalNumber == "" {
			if journalNumber, err = s.nextJournalNumber(ctx, tenantID, domain.Reversing, reversingDate); err != nil {
				return err
			}
		}

		meta := s.meta(actorID)
		rev, err := j.Reverse(domain.ReverseParams{
			ReversingJournalID: reversingID,
			JournalNumber:      journalNumber,
			Date:               reversingDate,
			PeriodOpen:         open,
		}, meta)
		if err != nil {
			return err
		}
		accounts, ordered, err := s.aggregates.loadLineAccounts(ctx, tenantID, rev.Lines)
		if err != nil {
			return err
		}
		if err := applyLines(accounts, rev.Lines, rev.JournalID, meta); err != nil {
			return err
		}
		if err := s.aggregates.store.SaveAll(ctx, asAggregates([]domain.Aggregate{j, rev}, ordered)...); err != nil {
			return err
		}
		original, reversing = j, rev
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reverse journal", slog.String("journal_id", journalID))
		return nil, nil, err
	}

	s.LogInfo(ctx, "Journal reversed",
		slog.String("journal_id", journalID),
		slog.String("reversing_journal_id", reversing.JournalID),
		slog.String("reversing_journal_number", reversing.JournalNumber))
	originalView, reversingView := original.View(), reversing.View()
	return &originalView, &reversingView, nil
}

// CancelJournal cancels a draft journal. Balances are untouched since drafts never moved them.
func (s *journalService) CancelJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.CancelJournalRequest) (*domain.JournalView, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := s.ValidateRequest(req); err != nil {
		return nil, err
	}

	j, err := s.aggregates.loadJournal(ctx, tenantID, journalID)
	if err != nil {
		return nil, err
	}
	if err := j.Cancel(req.Reason, s.meta(actorID)); err != nil {
		return nil, err
	}
	if err := s.aggregates.journals.Save(ctx, j, j.OriginalVersion()); err != nil {
		s.LogError(ctx, err, "Failed to cancel journal", slog.String("journal_id", journalID))
		return nil, err
	}

	s.LogInfo(ctx, "Journal cancelled", slog.String("journal_id", journalID))
	view := j.View()
	return &view, nil
}
