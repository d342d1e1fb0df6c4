package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/core/projection"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/platform/config"
	"github.com/SscSPs/mma_ledger/internal/repositories/memory"
)

const (
	tenantID = "tenant-1"
	actorID  = "user-1"
)

var july15 = time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{StoreTimeout: time.Second, CommandMaxRetries: 3}
}

// inlineProjection projects every appended event before the command returns,
// so query assertions need no waiting.
type inlineProjection struct {
	projector *projection.Projector
}

func (p inlineProjection) Publish(ctx context.Context, events []domain.Event) error {
	for _, evt := range events {
		if err := p.projector.Handle(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func newProjector(repos *portsrepo.RepositoryProvider) *projection.Projector {
	return projection.NewProjector(repos.JournalRead, repos.AccountRead, nil,
		projection.WithStreamReader(repos.EventStore),
		projection.WithDeadLetters(repos.DeadLetters))
}

// LedgerSuite wires the services over in-memory repositories with an inline projection.
type LedgerSuite struct {
	suite.Suite
	ctx   context.Context
	repos *portsrepo.RepositoryProvider
	svc   *portssvc.ServiceContainer

	cash    *domain.AccountView
	equity  *domain.AccountView
	revenue *domain.AccountView
	expense *domain.AccountView
}

func (s *LedgerSuite) SetupTest() {
	s.ctx = context.Background()
	s.repos = memory.NewRepositoryProvider()
	s.svc = services.NewServiceContainer(testConfig(), *s.repos, inlineProjection{newProjector(s.repos)})

	s.cash = s.createAccount(tenantID, "1000", "Cash", "ASSET", nil)
	s.equity = s.createAccount(tenantID, "3000", "Owner Equity", "EQUITY", nil)
	s.revenue = s.createAccount(tenantID, "4000", "Sales", "REVENUE", nil)
	s.expense = s.createAccount(tenantID, "5000", "Rent", "EXPENSE", nil)
}

func (s *LedgerSuite) createAccount(tenant, code, name, accountType string, parentID *string) *domain.AccountView {
	acc, err := s.svc.Account.CreateAccount(s.ctx, tenant, actorID, dto.CreateAccountRequest{
		Code:            code,
		Name:            name,
		AccountType:     accountType,
		ParentAccountID: parentID,
	})
	s.Require().NoError(err)
	return acc
}

func debit(accountID string, amount int64) dto.JournalLineRequest {
	return dto.JournalLineRequest{AccountID: accountID, DebitAmount: decimal.NewFromInt(amount)}
}

func credit(accountID string, amount int64) dto.JournalLineRequest {
	return dto.JournalLineRequest{AccountID: accountID, CreditAmount: decimal.NewFromInt(amount)}
}

// postOpening funds cash from equity.
func (s *LedgerSuite) postOpening(amount int64) *domain.JournalView {
	j, err := s.svc.Journal.CreateJournal(s.ctx, tenantID, actorID, dto.CreateJournalRequest{
		JournalDate: july15,
		JournalType: "OPENING",
		Description: "Opening balance",
		Lines:       []dto.JournalLineRequest{debit(s.cash.AccountID, amount), credit(s.equity.AccountID, amount)},
		AutoPost:    true,
	})
	s.Require().NoError(err)
	return j
}

func (s *LedgerSuite) balance(accountID string) decimal.Decimal {
	acc, err := s.svc.Account.GetAccount(s.ctx, tenantID, accountID)
	s.Require().NoError(err)
	return acc.Balance
}

// MockSequenceAllocator is a mock type for the SequenceAllocator interface
type MockSequenceAllocator struct {
	mock.Mock
}

func (m *MockSequenceAllocator) NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error) {
	args := m.Called(ctx, tenantID, journalType, ym)
	return args.Get(0).(int64), args.Error(1)
}

// MockPeriodChecker is a mock type for the PeriodStatusChecker interface
type MockPeriodChecker struct {
	mock.Mock
}

func (m *MockPeriodChecker) IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, date)
	return args.Bool(0), args.Error(1)
}
