package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/handlers"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock AccountService ---
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, tenantID, actorID string, req dto.CreateAccountRequest) (*domain.AccountView, error) {
	args := m.Called(ctx, tenantID, actorID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountView), args.Error(1)
}
func (m *MockAccountService) RenameAccount(ctx context.Context, tenantID, actorID, accountID string, req dto.RenameAccountRequest) (*domain.AccountView, error) {
	args := m.Called(ctx, tenantID, actorID, accountID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountView), args.Error(1)
}
func (m *MockAccountService) DeactivateAccount(ctx context.Context, tenantID, actorID, accountID string) (*domain.AccountView, error) {
	args := m.Called(ctx, tenantID, actorID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountView), args.Error(1)
}
func (m *MockAccountService) GetAccount(ctx context.Context, tenantID, accountID string) (*domain.AccountView, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountView), args.Error(1)
}
func (m *MockAccountService) ListAccounts(ctx context.Context, tenantID string, params dto.ListAccountsParams) (*dto.ListAccountsResponse, error) {
	args := m.Called(ctx, tenantID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListAccountsResponse), args.Error(1)
}
func (m *MockAccountService) ListChildAccounts(ctx context.Context, tenantID, parentID string) ([]domain.AccountView, error) {
	args := m.Called(ctx, tenantID, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountView), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.AccountSvcFacade = (*MockAccountService)(nil)

// --- Mock JournalService ---
type MockJournalService struct {
	mock.Mock
}

func (m *MockJournalService) journal(args mock.Arguments) (*domain.JournalView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JournalView), args.Error(1)
}

func (m *MockJournalService) page(args mock.Arguments) (*dto.ListJournalsResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListJournalsResponse), args.Error(1)
}

func (m *MockJournalService) CreateJournal(ctx context.Context, tenantID, actorID string, req dto.CreateJournalRequest) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, actorID, req))
}
func (m *MockJournalService) AddJournalLine(ctx context.Context, tenantID, actorID, journalID string, req dto.JournalLineRequest) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, actorID, journalID, req))
}
func (m *MockJournalService) PostJournal(ctx context.Context, tenantID, actorID, journalID string) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, actorID, journalID))
}
func (m *MockJournalService) ReverseJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.ReverseJournalRequest) (*domain.JournalView, *domain.JournalView, error) {
	args := m.Called(ctx, tenantID, actorID, journalID, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.JournalView), args.Get(1).(*domain.JournalView), args.Error(2)
}
func (m *MockJournalService) CancelJournal(ctx context.Context, tenantID, actorID, journalID string, req dto.CancelJournalRequest) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, actorID, journalID, req))
}
func (m *MockJournalService) GetJournal(ctx context.Context, tenantID, journalID string) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, journalID))
}
func (m *MockJournalService) GetJournalByNumber(ctx context.Context, tenantID, journalNumber string) (*domain.JournalView, error) {
	return m.journal(m.Called(ctx, tenantID, journalNumber))
}
func (m *MockJournalService) ListJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	return m.page(m.Called(ctx, tenantID, params))
}
func (m *MockJournalService) ListJournalsByPeriod(ctx context.Context, tenantID, fiscalPeriod string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	return m.page(m.Called(ctx, tenantID, fiscalPeriod, params))
}
func (m *MockJournalService) ListUnpostedJournals(ctx context.Context, tenantID string, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error) {
	return m.page(m.Called(ctx, tenantID, params))
}

// Ensure mock implements the interface
var _ portssvc.JournalSvcFacade = (*MockJournalService)(nil)

// --- Mock PeriodService ---
type MockPeriodService struct {
	mock.Mock
}

func (m *MockPeriodService) IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, date)
	return args.Bool(0), args.Error(1)
}
func (m *MockPeriodService) ClosePeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error {
	return m.Called(ctx, tenantID, actorID, fiscalPeriod).Error(0)
}
func (m *MockPeriodService) ReopenPeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error {
	return m.Called(ctx, tenantID, actorID, fiscalPeriod).Error(0)
}

var _ portssvc.PeriodSvc = (*MockPeriodService)(nil)

// --- Test Suite ---

const (
	testTenant = "tenant-1"
	testIssuer = "ledger-test"
)

// HandlerTestSuite drives the full router with mocked services.
type HandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	accounts    *MockAccountService
	journals    *MockJournalService
	periods     *MockPeriodService
	healthErr   error
	jwtSecret   string
	requestUser string
}

// generateTestToken creates a signed JWT for userID. An empty tenant leaves the claim out.
func (s *HandlerTestSuite) generateTestToken(userID, tenantID string) string {
	claims := middleware.LedgerClaims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		s.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.jwtSecret = "test-secret-key-that-is-long-enough"
	s.requestUser = uuid.NewString()
	s.healthErr = nil

	s.accounts = new(MockAccountService)
	s.journals = new(MockJournalService)
	s.periods = new(MockPeriodService)

	cfg := &config.Config{JWTSecret: s.jwtSecret, JWTIssuer: testIssuer}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = gin.New()
	s.router.Use(middleware.StructuredLoggingMiddleware(logger))
	handlers.RegisterRoutes(s.router, cfg,
		&portssvc.ServiceContainer{Journal: s.journals, Account: s.accounts, Period: s.periods},
		nil,
		handlers.HealthCheck{Name: "store", Check: func(context.Context) error { return s.healthErr }},
	)
}

// do serves one request authenticated as the suite user of testTenant.
func (s *HandlerTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	return s.doAs(method, url, body, s.generateTestToken(s.requestUser, testTenant))
}

func (s *HandlerTestSuite) doAs(method, url string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func accountView(code, name string) *domain.AccountView {
	return &domain.AccountView{
		TenantID:    testTenant,
		AccountID:   uuid.NewString(),
		Code:        code,
		Name:        name,
		AccountType: domain.Asset,
		Balance:     decimal.NewFromInt(250),
		IsActive:    true,
		Version:     1,
	}
}

// --- Test Cases ---

func (s *HandlerTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: "ASSET"}
	created := accountView("1000", "Cash")
	s.accounts.On("CreateAccount", mock.Anything, testTenant, s.requestUser, req).Return(created, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", req)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.AccountResponse
	s.decode(w, &resp)
	s.Equal(created.AccountID, resp.AccountID)
	s.True(resp.Balance.Equal(decimal.NewFromInt(250)))
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestCreateAccount_DuplicateCode() {
	req := dto.CreateAccountRequest{Code: "1000", Name: "Cash", AccountType: "ASSET"}
	s.accounts.On("CreateAccount", mock.Anything, testTenant, s.requestUser, req).
		Return(nil, domain.Errorf(domain.ErrDuplicateCode, "account code %q already exists", "1000")).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", req)

	s.Equal(http.StatusConflict, w.Code)
	var body map[string]string
	s.decode(w, &body)
	s.Equal(string(domain.CodeDuplicateCode), body["code"])
	s.Contains(body["error"], "1000")
}

func (s *HandlerTestSuite) TestCreateAccount_InvalidBody() {
	w := s.do(http.MethodPost, "/api/v1/accounts", map[string]string{"name": "Cash"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.accounts.AssertNotCalled(s.T(), "CreateAccount")
}

func (s *HandlerTestSuite) TestRequiresToken() {
	w := s.doAs(http.MethodGet, "/api/v1/accounts", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.doAs(http.MethodGet, "/api/v1/accounts", nil, "not-a-jwt")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.accounts.AssertNotCalled(s.T(), "ListAccounts")
}

func (s *HandlerTestSuite) TestTenantHeaderFallback() {
	view := accountView("1000", "Cash")
	s.accounts.On("GetAccount", mock.Anything, "tenant-from-header", view.AccountID).Return(view, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts/"+view.AccountID, nil)
	req.Header.Set("Authorization", "Bearer "+s.generateTestToken(s.requestUser, ""))
	req.Header.Set(middleware.TenantHeader, "tenant-from-header")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestGetAccount_NotFound() {
	s.accounts.On("GetAccount", mock.Anything, testTenant, "missing").
		Return(nil, fmt.Errorf("account missing: %w", apperrors.ErrNotFound)).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/missing", nil)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestListAccounts_PassesFilters() {
	resp := &dto.ListAccountsResponse{Accounts: []dto.AccountResponse{dto.ToAccountResponse(accountView("1000", "Cash"))}}
	s.accounts.On("ListAccounts", mock.Anything, testTenant, mock.MatchedBy(func(p dto.ListAccountsParams) bool {
		return p.AccountType == "ASSET" && p.ActiveOnly && p.Limit == 10
	})).Return(resp, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts?accountType=ASSET&activeOnly=true&limit=10", nil)

	s.Equal(http.StatusOK, w.Code)
	var body dto.ListAccountsResponse
	s.decode(w, &body)
	s.Len(body.Accounts, 1)
	s.accounts.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestListChildAccounts() {
	child := accountView("1100", "Petty cash")
	s.accounts.On("ListChildAccounts", mock.Anything, testTenant, "parent-1").Return([]domain.AccountView{*child}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/parent-1/children", nil)

	s.Equal(http.StatusOK, w.Code)
	var body dto.ListAccountsResponse
	s.decode(w, &body)
	s.Require().Len(body.Accounts, 1)
	s.Equal("1100", body.Accounts[0].Code)
}

func (s *HandlerTestSuite) TestRenameAccount() {
	renamed := accountView("1000", "Cash at bank")
	s.accounts.On("RenameAccount", mock.Anything, testTenant, s.requestUser, renamed.AccountID, dto.RenameAccountRequest{Name: "Cash at bank"}).
		Return(renamed, nil).Once()

	w := s.do(http.MethodPut, "/api/v1/accounts/"+renamed.AccountID, dto.RenameAccountRequest{Name: "Cash at bank"})

	s.Equal(http.StatusOK, w.Code)
	var body dto.AccountResponse
	s.decode(w, &body)
	s.Equal("Cash at bank", body.Name)
}

func (s *HandlerTestSuite) TestDeactivateAccount_States() {
	s.accounts.On("DeactivateAccount", mock.Anything, testTenant, s.requestUser, "acc-1").Return(accountView("1000", "Cash"), nil).Once()
	s.accounts.On("DeactivateAccount", mock.Anything, testTenant, s.requestUser, "acc-2").Return(nil, domain.ErrNonZeroBalance).Once()

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/accounts/acc-1", nil).Code)

	w := s.do(http.MethodDelete, "/api/v1/accounts/acc-2", nil)
	s.Equal(http.StatusConflict, w.Code)
	var body map[string]string
	s.decode(w, &body)
	s.Equal(string(domain.CodeNonZeroBalance), body["code"])
}

func (s *HandlerTestSuite) TestInfrastructureErrorIsHidden() {
	s.accounts.On("GetAccount", mock.Anything, testTenant, "acc-1").
		Return(nil, apperrors.NewInfraError("read_model.find", testTenant, "acc-1", errors.New("connection refused"))).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/acc-1", nil)

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.NotContains(w.Body.String(), "connection refused")
}

func (s *HandlerTestSuite) TestHealth() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	s.healthErr = errors.New("store down")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Contains(w.Body.String(), "degraded")
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
