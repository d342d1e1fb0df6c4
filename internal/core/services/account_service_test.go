package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/core/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/repositories/memory"
)

type AccountServiceTestSuite struct {
	LedgerSuite
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (s *AccountServiceTestSuite) TestCreateAccount_Success() {
	acc := s.createAccount(tenantID, " 1100 ", "Bank", "asset", nil)

	s.NotEmpty(acc.AccountID)
	s.Equal("1100", acc.Code)
	s.Equal(domain.Asset, acc.AccountType)
	s.True(acc.IsActive)
	s.True(acc.Balance.IsZero())
	s.Equal(actorID, acc.CreatedBy)
	s.Equal(int64(1), acc.Version)

	stored, err := s.svc.Account.GetAccount(s.ctx, tenantID, acc.AccountID)
	s.Require().NoError(err)
	s.Equal(acc.Code, stored.Code)
	s.Equal(acc.Name, stored.Name)
}

func (s *AccountServiceTestSuite) TestCreateAccount_DuplicateCode() {
	_, err := s.svc.Account.CreateAccount(s.ctx, tenantID, actorID, dto.CreateAccountRequest{
		Code: "1000", Name: "Petty cash", AccountType: "ASSET",
	})
	s.ErrorIs(err, domain.ErrDuplicateCode)

	// Codes are unique per tenant only.
	other := s.createAccount("tenant-2", "1000", "Cash", "ASSET", nil)
	s.NotEqual(s.cash.AccountID, other.AccountID)
}

func (s *AccountServiceTestSuite) TestCreateAccount_Validation() {
	_, err := s.svc.Account.CreateAccount(s.ctx, tenantID, actorID, dto.CreateAccountRequest{Code: "9", AccountType: "ASSET"})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Account.CreateAccount(s.ctx, tenantID, actorID, dto.CreateAccountRequest{Code: "9", Name: "X", AccountType: "LIABILITIES"})
	s.ErrorIs(err, domain.ErrInvalidAccountType)

	_, err = s.svc.Account.CreateAccount(s.ctx, "", actorID, dto.CreateAccountRequest{Code: "9", Name: "X", AccountType: "ASSET"})
	s.ErrorIs(err, domain.ErrTenantRequired)
}

func (s *AccountServiceTestSuite) TestCreateAccount_Parent() {
	child := s.createAccount(tenantID, "1010", "Cash drawer", "ASSET", &s.cash.AccountID)
	s.Equal(s.cash.AccountID, child.ParentAccountID)

	missing := "nope"
	_, err := s.svc.Account.CreateAccount(s.ctx, tenantID, actorID, dto.CreateAccountRequest{
		Code: "1020", Name: "Orphan", AccountType: "ASSET", ParentAccountID: &missing,
	})
	s.ErrorIs(err, domain.ErrInvalidParent)

	_, err = s.svc.Account.CreateAccount(s.ctx, tenantID, actorID, dto.CreateAccountRequest{
		Code: "1030", Name: "Wrong type", AccountType: "EXPENSE", ParentAccountID: &s.cash.AccountID,
	})
	s.ErrorIs(err, domain.ErrInvalidParent)

	_, err = s.svc.Account.CreateAccount(s.ctx, "tenant-2", actorID, dto.CreateAccountRequest{
		Code: "1040", Name: "Foreign parent", AccountType: "ASSET", ParentAccountID: &s.cash.AccountID,
	})
	s.ErrorIs(err, domain.ErrInvalidParent)

	children, err := s.svc.Account.ListChildAccounts(s.ctx, tenantID, s.cash.AccountID)
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal(child.AccountID, children[0].AccountID)

	_, err = s.svc.Account.ListChildAccounts(s.ctx, tenantID, "nope")
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *AccountServiceTestSuite) TestRenameAccount() {
	renamed, err := s.svc.Account.RenameAccount(s.ctx, tenantID, actorID, s.cash.AccountID, dto.RenameAccountRequest{Name: "Cash on hand"})
	s.Require().NoError(err)
	s.Equal("Cash on hand", renamed.Name)
	s.Equal(int64(2), renamed.Version)

	same, err := s.svc.Account.RenameAccount(s.ctx, tenantID, actorID, s.cash.AccountID, dto.RenameAccountRequest{Name: "Cash on hand"})
	s.Require().NoError(err)
	s.Equal(int64(2), same.Version, "renaming to the current name appends nothing")

	_, err = s.svc.Account.RenameAccount(s.ctx, tenantID, actorID, "nope", dto.RenameAccountRequest{Name: "X"})
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *AccountServiceTestSuite) TestDeactivateAccount() {
	s.postOpening(100)
	_, err := s.svc.Account.DeactivateAccount(s.ctx, tenantID, actorID, s.cash.AccountID)
	s.ErrorIs(err, domain.ErrNonZeroBalance)

	parent := s.createAccount(tenantID, "6000", "Utilities", "EXPENSE", nil)
	child := s.createAccount(tenantID, "6010", "Power", "EXPENSE", &parent.AccountID)
	_, err = s.svc.Account.DeactivateAccount(s.ctx, tenantID, actorID, parent.AccountID)
	s.ErrorIs(err, domain.ErrHasActiveChildren)

	deactivated, err := s.svc.Account.DeactivateAccount(s.ctx, tenantID, actorID, child.AccountID)
	s.Require().NoError(err)
	s.False(deactivated.IsActive)
	deactivated, err = s.svc.Account.DeactivateAccount(s.ctx, tenantID, actorID, parent.AccountID)
	s.Require().NoError(err)
	s.False(deactivated.IsActive)

	_, err = s.svc.Account.DeactivateAccount(s.ctx, tenantID, actorID, parent.AccountID)
	s.ErrorIs(err, domain.ErrAccountInactive)

	active, err := s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{ActiveOnly: true})
	s.Require().NoError(err)
	for _, acc := range active.Accounts {
		s.NotEqual(parent.AccountID, acc.AccountID)
		s.NotEqual(child.AccountID, acc.AccountID)
	}
}

func (s *AccountServiceTestSuite) TestListAccounts() {
	all, err := s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{})
	s.Require().NoError(err)
	s.Require().Len(all.Accounts, 4)
	s.Equal("1000", all.Accounts[0].Code)
	s.Equal("5000", all.Accounts[3].Code)

	expenses, err := s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{AccountType: "EXPENSE"})
	s.Require().NoError(err)
	s.Require().Len(expenses.Accounts, 1)
	s.Equal(s.expense.AccountID, expenses.Accounts[0].AccountID)

	page, err := s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{Limit: 3})
	s.Require().NoError(err)
	s.Len(page.Accounts, 3)
	s.Require().NotNil(page.NextToken)
	rest, err := s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{Limit: 3, NextToken: page.NextToken})
	s.Require().NoError(err)
	s.Require().Len(rest.Accounts, 1)
	s.Equal("5000", rest.Accounts[0].Code)

	_, err = s.svc.Account.ListAccounts(s.ctx, tenantID, dto.ListAccountsParams{AccountType: "BOGUS"})
	s.ErrorIs(err, domain.ErrInvalidAccountType)
	_, err = s.svc.Account.GetAccount(s.ctx, "tenant-2", s.cash.AccountID)
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *AccountServiceTestSuite) TestPeriods() {
	open, err := s.svc.Period.IsOpen(s.ctx, tenantID, july15)
	s.Require().NoError(err)
	s.True(open)

	s.Require().NoError(s.svc.Period.ClosePeriod(s.ctx, tenantID, actorID, "fy2024-2025-p01"))
	open, err = s.svc.Period.IsOpen(s.ctx, tenantID, july15)
	s.Require().NoError(err)
	s.False(open)
	open, err = s.svc.Period.IsOpen(s.ctx, "tenant-2", july15)
	s.Require().NoError(err)
	s.True(open, "closing is per tenant")

	s.Require().NoError(s.svc.Period.ReopenPeriod(s.ctx, tenantID, actorID, "FY2024-2025-P01"))
	open, err = s.svc.Period.IsOpen(s.ctx, tenantID, july15)
	s.Require().NoError(err)
	s.True(open)

	for _, bad := range []string{"FY2024-2026-P01", "FY2024-2025-P13", "2024-07", ""} {
		s.ErrorIs(s.svc.Period.ClosePeriod(s.ctx, tenantID, actorID, bad), apperrors.ErrValidation, bad)
	}
}

// Without a projection the read model never sees the child, so the check has to come
// from the event streams.
func TestDeactivateAccount_ChildrenCountedBeforeProjection(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()
	container := services.NewServiceContainer(testConfig(), *repos, nil)

	parent, err := container.Account.CreateAccount(ctx, tenantID, actorID, dto.CreateAccountRequest{Code: "6000", Name: "Utilities", AccountType: "EXPENSE"})
	require.NoError(t, err)
	child, err := container.Account.CreateAccount(ctx, tenantID, actorID, dto.CreateAccountRequest{
		Code: "6010", Name: "Power", AccountType: "EXPENSE", ParentAccountID: &parent.AccountID,
	})
	require.NoError(t, err)

	_, err = container.Account.DeactivateAccount(ctx, tenantID, actorID, parent.AccountID)
	assert.ErrorIs(t, err, domain.ErrHasActiveChildren)
	assert.Equal(t, apperrors.KindState, apperrors.KindOf(err))

	_, err = container.Account.DeactivateAccount(ctx, tenantID, actorID, child.AccountID)
	require.NoError(t, err)
	deactivated, err := container.Account.DeactivateAccount(ctx, tenantID, actorID, parent.AccountID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	assert.Equal(t, int64(4), deactivated.Version, "created, child added, child removed, deactivated")
}
