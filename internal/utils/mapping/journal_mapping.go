package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
)

// ToModelJournal converts a journal view to a read-model row
func ToModelJournal(d domain.JournalView) (models.Journal, error) {
	lines := d.Lines
	if lines == nil {
		lines = []domain.JournalLine{}
	}
	rawLines, err := json.Marshal(lines)
	if err != nil {
		return models.Journal{}, fmt.Errorf("failed to marshal lines of journal %s: %w", d.JournalID, err)
	}
	return models.Journal{
		TenantID:           d.TenantID,
		JournalID:          d.JournalID,
		JournalNumber:      d.JournalNumber,
		JournalDate:        d.JournalDate.UTC(),
		JournalType:        string(d.JournalType),
		Description:        d.Description,
		Reference:          nullString(d.Reference),
		Status:             string(d.Status),
		FiscalPeriod:       d.FiscalPeriod,
		IsReversing:        d.IsReversing,
		OriginalJournalID:  nullString(d.OriginalJournalID),
		ReversingJournalID: nullString(d.ReversingJournalID),
		Lines:              rawLines,
		TotalDebit:         d.TotalDebit,
		TotalCredit:        d.TotalCredit,
		PostedAt:           nullTime(d.PostedAt),
		PostedBy:           nullString(d.PostedBy),
		CancelReason:       nullString(d.CancelReason),
		Version:            d.Version,
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainJournal converts a read-model row to a journal view
func ToDomainJournal(m models.Journal) (domain.JournalView, error) {
	lines := make([]domain.JournalLine, 0)
	if len(m.Lines) > 0 {
		if err := json.Unmarshal(m.Lines, &lines); err != nil {
			return domain.JournalView{}, fmt.Errorf("failed to decode lines of journal %s: %w", m.JournalID, err)
		}
	}
	return domain.JournalView{
		TenantID:           m.TenantID,
		JournalID:          m.JournalID,
		JournalNumber:      m.JournalNumber,
		JournalDate:        m.JournalDate.UTC(),
		JournalType:        domain.JournalType(m.JournalType),
		Description:        m.Description,
		Reference:          m.Reference.String,
		Status:             domain.JournalStatus(m.Status),
		FiscalPeriod:       m.FiscalPeriod,
		IsReversing:        m.IsReversing,
		OriginalJournalID:  m.OriginalJournalID.String,
		ReversingJournalID: m.ReversingJournalID.String,
		Lines:              lines,
		TotalDebit:         m.TotalDebit,
		TotalCredit:        m.TotalCredit,
		PostedAt:           timePtr(m.PostedAt),
		PostedBy:           m.PostedBy.String,
		CancelReason:       m.CancelReason.String,
		Version:            m.Version,
		AuditFields:        ToDomainAuditFields(m.AuditFields),
	}, nil
}
