package handlers_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func journalView(status domain.JournalStatus) *domain.JournalView {
	date := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	return &domain.JournalView{
		TenantID:      testTenant,
		JournalID:     uuid.NewString(),
		JournalNumber: "GJ-2024-07-000001",
		JournalDate:   date,
		JournalType:   domain.General,
		Description:   "Office rent",
		Status:        status,
		FiscalPeriod:  domain.FiscalPeriodOf(date),
		TotalDebit:    decimal.NewFromInt(100),
		TotalCredit:   decimal.NewFromInt(100),
		Version:       1,
	}
}

func (s *HandlerTestSuite) TestCreateJournal_Success() {
	req := dto.CreateJournalRequest{
		JournalDate: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		JournalType: "GENERAL",
		Description: "Office rent",
		Lines: []dto.JournalLineRequest{
			{AccountID: "rent", DebitAmount: decimal.NewFromInt(100)},
			{AccountID: "cash", CreditAmount: decimal.NewFromInt(100)},
		},
		AutoPost: true,
	}
	created := journalView(domain.Posted)
	s.journals.On("CreateJournal", mock.Anything, testTenant, s.requestUser, mock.MatchedBy(func(r dto.CreateJournalRequest) bool {
		return r.AutoPost && len(r.Lines) == 2 && r.Lines[0].DebitAmount.Equal(decimal.NewFromInt(100))
	})).Return(created, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/journals", req)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.JournalResponse
	s.decode(w, &resp)
	s.Equal("GJ-2024-07-000001", resp.JournalNumber)
	s.Equal(domain.Posted, resp.Status)
	s.journals.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCreateJournal_RuleViolations() {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  domain.ErrorCode
	}{
		{"unbalanced", domain.ErrUnbalancedJournal, http.StatusBadRequest, domain.CodeUnbalancedJournal},
		{"period closed", domain.Errorf(domain.ErrPeriodClosed, "period %s is closed", "FY2024-2025-P01"), http.StatusConflict, domain.CodePeriodClosed},
		{"concurrency", apperrors.NewConcurrencyError("tenant/tenant-1/account/cash", 3, 4), http.StatusConflict, ""},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.journals.On("CreateJournal", mock.Anything, testTenant, s.requestUser, mock.Anything).Return(nil, tt.err).Once()

			w := s.do(http.MethodPost, "/api/v1/journals", dto.CreateJournalRequest{
				JournalDate: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
				Description: "Office rent",
			})

			s.Equal(tt.wantCode, w.Code)
			if tt.wantErr != "" {
				var body map[string]string
				s.decode(w, &body)
				s.Equal(string(tt.wantErr), body["code"])
			}
		})
	}
}

func (s *HandlerTestSuite) TestCreateJournal_RejectsUnknownType() {
	w := s.do(http.MethodPost, "/api/v1/journals", map[string]any{
		"journalDate": "2024-07-15T00:00:00Z",
		"journalType": "PAYROLL",
		"description": "x",
	})

	s.Equal(http.StatusBadRequest, w.Code)
	s.journals.AssertNotCalled(s.T(), "CreateJournal")
}

func (s *HandlerTestSuite) TestGetJournal_NotFound() {
	s.journals.On("GetJournal", mock.Anything, testTenant, "missing").Return(nil, domain.ErrJournalNotFound).Once()

	w := s.do(http.MethodGet, "/api/v1/journals/missing", nil)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestGetJournalByNumber() {
	view := journalView(domain.Posted)
	s.journals.On("GetJournalByNumber", mock.Anything, testTenant, view.JournalNumber).Return(view, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/journals/by-number/"+view.JournalNumber, nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.JournalResponse
	s.decode(w, &resp)
	s.Equal(view.JournalID, resp.JournalID)
}

func (s *HandlerTestSuite) TestPostJournal() {
	view := journalView(domain.Posted)
	s.journals.On("PostJournal", mock.Anything, testTenant, s.requestUser, view.JournalID).Return(view, nil).Once()
	s.journals.On("PostJournal", mock.Anything, testTenant, s.requestUser, "posted-already").Return(nil, domain.ErrNotDraft).Once()

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/v1/journals/"+view.JournalID+"/post", nil).Code)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/api/v1/journals/posted-already/post", nil).Code)
}

func (s *HandlerTestSuite) TestReverseJournal_EmptyBody() {
	original := journalView(domain.Reversed)
	reversing := journalView(domain.Posted)
	reversing.IsReversing = true
	reversing.OriginalJournalID = original.JournalID
	s.journals.On("ReverseJournal", mock.Anything, testTenant, s.requestUser, original.JournalID, dto.ReverseJournalRequest{}).
		Return(original, reversing, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/journals/"+original.JournalID+"/reverse", nil)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.ReverseJournalResponse
	s.decode(w, &resp)
	s.Equal(domain.Reversed, resp.Original.Status)
	s.Equal(original.JournalID, resp.Reversing.OriginalJournalID)
	s.journals.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCancelJournal_WithReason() {
	view := journalView(domain.Cancelled)
	s.journals.On("CancelJournal", mock.Anything, testTenant, s.requestUser, view.JournalID, dto.CancelJournalRequest{Reason: "duplicate"}).
		Return(view, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/journals/"+view.JournalID+"/cancel", dto.CancelJournalRequest{Reason: "duplicate"})

	s.Equal(http.StatusOK, w.Code)
	s.journals.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestListJournals_Filters() {
	next := "token-2"
	s.journals.On("ListJournals", mock.Anything, testTenant, mock.MatchedBy(func(p dto.ListJournalsParams) bool {
		return p.Status == "POSTED" && p.Limit == 5 && p.DateFrom != nil && p.DateFrom.Day() == 1
	})).Return(&dto.ListJournalsResponse{
		Journals:  dto.ToJournalResponses([]domain.JournalView{*journalView(domain.Posted)}),
		NextToken: &next,
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/journals?status=POSTED&limit=5&dateFrom=2024-07-01", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.ListJournalsResponse
	s.decode(w, &resp)
	s.Len(resp.Journals, 1)
	s.Require().NotNil(resp.NextToken)
	s.Equal(next, *resp.NextToken)
}

func (s *HandlerTestSuite) TestListJournals_BadStatus() {
	w := s.do(http.MethodGet, "/api/v1/journals?status=OPEN", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.journals.AssertNotCalled(s.T(), "ListJournals")
}

func (s *HandlerTestSuite) TestListUnpostedAndByPeriod() {
	s.journals.On("ListUnpostedJournals", mock.Anything, testTenant, mock.Anything).
		Return(&dto.ListJournalsResponse{Journals: []dto.JournalResponse{}}, nil).Once()
	s.journals.On("ListJournalsByPeriod", mock.Anything, testTenant, "FY2024-2025-P01", mock.Anything).
		Return(&dto.ListJournalsResponse{Journals: []dto.JournalResponse{}}, nil).Once()

	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/v1/journals/unposted", nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/v1/periods/FY2024-2025-P01/journals", nil).Code)
	s.journals.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestPeriodStatus() {
	date := time.Date(2024, 8, 3, 0, 0, 0, 0, time.UTC)
	s.periods.On("IsOpen", mock.Anything, testTenant, date).Return(false, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/periods/status?date=2024-08-03", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.PeriodStatusResponse
	s.decode(w, &resp)
	s.Equal("FY2024-2025-P02", resp.FiscalPeriod)
	s.False(resp.Open)
}

func (s *HandlerTestSuite) TestPeriodStatus_BadDate() {
	w := s.do(http.MethodGet, "/api/v1/periods/status?date=03/08/2024", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.periods.AssertNotCalled(s.T(), "IsOpen")
}

func (s *HandlerTestSuite) TestCloseAndReopenPeriod() {
	s.periods.On("ClosePeriod", mock.Anything, testTenant, s.requestUser, "FY2024-2025-P01").Return(nil).Once()
	s.periods.On("ReopenPeriod", mock.Anything, testTenant, s.requestUser, "bogus").
		Return(fmt.Errorf("%w: invalid fiscal period %q", apperrors.ErrValidation, "BOGUS")).Once()

	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/api/v1/periods/FY2024-2025-P01/close", nil).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/periods/bogus/reopen", nil).Code)
	s.periods.AssertExpectations(s.T())
}
