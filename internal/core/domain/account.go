package domain

import (
	"strings"
	"time"

	"github.com/SscSPs/mma_ledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// DebitNormal reports whether a debit increases the balance of an account of this type.
func (t AccountType) DebitNormal() bool {
	return t == Asset || t == Expense
}

// ParseAccountType normalizes and validates an account type.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Errorf(ErrInvalidAccountType, "unknown account type %q", s)
	}
	return t, nil
}

// Account is the chart-of-accounts aggregate.
type Account struct {
	aggregateBase
	AccountID       string          `json:"accountID"`
	Tenant          string          `json:"tenantID"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"`
	ParentAccountID string          `json:"parentAccountID,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	IsActive        bool            `json:"isActive"`
	// ActiveChildren counts direct children that are still active.
	ActiveChildren int `json:"activeChildren"`
	AuditFields
}

// Account events.
type (
	AccountCreated struct {
		AccountID       string      `json:"accountID"`
		Code            string      `json:"code"`
		Name            string      `json:"name"`
		AccountType     AccountType `json:"accountType"`
		ParentAccountID string      `json:"parentAccountID,omitempty"`
	}
	AccountRenamed struct {
		Name string `json:"name"`
	}
	AccountDebited struct {
		Amount    decimal.Decimal `json:"amount"`
		JournalID string          `json:"journalID,omitempty"`
		Balance   decimal.Decimal `json:"balance"`
	}
	AccountCredited struct {
		Amount    decimal.Decimal `json:"amount"`
		JournalID string          `json:"journalID,omitempty"`
		Balance   decimal.Decimal `json:"balance"`
	}
	AccountDeactivated struct{}
	// AccountChildAdded and AccountChildRemoved land on the parent stream in the
	// same append as the child's AccountCreated or AccountDeactivated.
	AccountChildAdded struct {
		ChildAccountID string `json:"childAccountID"`
	}
	AccountChildRemoved struct {
		ChildAccountID string `json:"childAccountID"`
	}
)

var _ Aggregate = (*Account)(nil)

func (a *Account) AggregateID() string          { return a.AccountID }
func (a *Account) TenantID() string             { return a.Tenant }
func (a *Account) AggregateType() AggregateType { return AggregateAccount }

// NewAccount returns an empty account ready to be replayed.
func NewAccount(tenantID, accountID string) *Account {
	return &Account{AccountID: accountID, Tenant: tenantID}
}

// NewAccountParams carries the inputs of CreateAccount.
type NewAccountParams struct {
	AccountID   string
	TenantID    string
	Code        string
	Name        string
	AccountType AccountType
	// Parent is the loaded parent account, nil for a root account.
	Parent *Account
}

// CreateAccount validates the inputs and raises AccountCreated, plus AccountChildAdded on
// the parent when there is one. The caller saves both streams together.
// Code uniqueness is enforced by the caller through the code registry stream.
func CreateAccount(p NewAccountParams, meta Metadata) (*Account, error) {
	if p.TenantID == "" {
		return nil, ErrTenantRequired
	}
	code := strings.TrimSpace(p.Code)
	name := strings.TrimSpace(p.Name)
	if code == "" || name == "" {
		return nil, ErrInvalidAccount
	}
	if !p.AccountType.Valid() {
		return nil, Errorf(ErrInvalidAccountType, "unknown account type %q", p.AccountType)
	}

	parentID := ""
	if p.Parent != nil {
		switch {
		case p.Parent.Tenant != p.TenantID:
			return nil, Errorf(ErrInvalidParent, "parent account %s belongs to another tenant", p.Parent.AccountID)
		case !p.Parent.IsActive:
			return nil, Errorf(ErrInvalidParent, "parent account %s is inactive", p.Parent.AccountID)
		case p.Parent.AccountType != p.AccountType:
			return nil, Errorf(ErrInvalidParent, "parent account %s is %s, child is %s", p.Parent.AccountID, p.Parent.AccountType, p.AccountType)
		case p.Parent.AccountID == p.AccountID:
			return nil, Errorf(ErrInvalidParent, "account cannot be its own parent")
		}
		parentID = p.Parent.AccountID
	}

	acc := NewAccount(p.TenantID, p.AccountID)
	err := raise(acc, &acc.aggregateBase, EventAccountCreated, AccountCreated{
		AccountID:       p.AccountID,
		Code:            code,
		Name:            name,
		AccountType:     p.AccountType,
		ParentAccountID: parentID,
	}, meta)
	if err != nil {
		return nil, err
	}
	if p.Parent != nil {
		if err := raise(p.Parent, &p.Parent.aggregateBase, EventAccountChildAdded, AccountChildAdded{ChildAccountID: p.AccountID}, meta); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Debit records a debit movement and applies the sign rule of the account type.
func (a *Account) Debit(amount decimal.Decimal, journalID string, meta Metadata) error {
	balance, err := a.nextBalance(amount, decimal.Zero)
	if err != nil {
		return err
	}
	return raise(a, &a.aggregateBase, EventAccountDebited, AccountDebited{Amount: amount, JournalID: journalID, Balance: balance}, meta)
}

// Credit records a credit movement and applies the sign rule of the account type.
func (a *Account) Credit(amount decimal.Decimal, journalID string, meta Metadata) error {
	balance, err := a.nextBalance(decimal.Zero, amount)
	if err != nil {
		return err
	}
	return raise(a, &a.aggregateBase, EventAccountCredited, AccountCredited{Amount: amount, JournalID: journalID, Balance: balance}, meta)
}

// ApplyLine debits or credits the account with the amounts of a journal line.
func (a *Account) ApplyLine(line JournalLine, journalID string, meta Metadata) error {
	if line.DebitAmount.IsPositive() {
		return a.Debit(line.DebitAmount, journalID, meta)
	}
	return a.Credit(line.CreditAmount, journalID, meta)
}

func (a *Account) nextBalance(debit, credit decimal.Decimal) (decimal.Decimal, error) {
	amount := debit.Add(credit)
	if !amount.IsPositive() {
		return decimal.Zero, Errorf(ErrInvalidAmount, "amount must be positive, got %s", amount)
	}
	if !a.IsActive {
		return decimal.Zero, Errorf(ErrAccountInactive, "account %s is inactive", a.Code)
	}
	balance := a.Balance.Add(accounting.SignedMovement(a.AccountType.DebitNormal(), debit, credit))
	// Only asset accounts are held to a non-negative balance.
	if a.AccountType == Asset && balance.IsNegative() {
		return decimal.Zero, Errorf(ErrInsufficientBalance, "account %s balance %s cannot cover %s", a.Code, a.Balance, amount)
	}
	return balance, nil
}

// Rename changes the display name.
func (a *Account) Rename(name string, meta Metadata) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidAccount
	}
	if !a.IsActive {
		return Errorf(ErrAccountInactive, "account %s is inactive", a.Code)
	}
	if name == a.Name {
		return nil
	}
	return raise(a, &a.aggregateBase, EventAccountRenamed, AccountRenamed{Name: name}, meta)
}

// Deactivate closes the account. When the account has a parent, parent is that loaded account
// and receives AccountChildRemoved; the caller saves both streams together.
func (a *Account) Deactivate(parent *Account, meta Metadata) error {
	if !a.IsActive {
		return Errorf(ErrAccountInactive, "account %s is already inactive", a.Code)
	}
	if !a.Balance.IsZero() {
		return Errorf(ErrNonZeroBalance, "account %s has balance %s", a.Code, a.Balance)
	}
	if a.ActiveChildren > 0 {
		return Errorf(ErrHasActiveChildren, "account %s has %d active child accounts", a.Code, a.ActiveChildren)
	}
	if a.ParentAccountID != "" && (parent == nil || parent.AccountID != a.ParentAccountID) {
		return Errorf(ErrInvalidParent, "account %s needs its parent %s loaded to deactivate", a.Code, a.ParentAccountID)
	}
	if err := raise(a, &a.aggregateBase, EventAccountDeactivated, AccountDeactivated{}, meta); err != nil {
		return err
	}
	if a.ParentAccountID == "" {
		return nil
	}
	return raise(parent, &parent.aggregateBase, EventAccountChildRemoved, AccountChildRemoved{ChildAccountID: a.AccountID}, meta)
}

// Apply folds one account event.
func (a *Account) Apply(evt Event) error {
	if err := a.checkNext(evt); err != nil {
		return err
	}
	payload, err := DecodePayload(evt)
	if err != nil {
		return err
	}
	switch p := payload.(type) {
	case *AccountCreated:
		a.AccountID = p.AccountID
		a.Tenant = evt.TenantID
		a.Code = p.Code
		a.Name = p.Name
		a.AccountType = p.AccountType
		a.ParentAccountID = p.ParentAccountID
		a.Balance = decimal.Zero
		a.IsActive = true
		a.CreatedAt = evt.OccurredAt
		a.CreatedBy = evt.ActorID
	case *AccountRenamed:
		a.Name = p.Name
	case *AccountDebited:
		a.Balance = p.Balance
	case *AccountCredited:
		a.Balance = p.Balance
	case *AccountDeactivated:
		a.IsActive = false
	case *AccountChildAdded:
		a.ActiveChildren++
	case *AccountChildRemoved:
		// Rows rebuilt from the read model start the count at zero.
		if a.ActiveChildren > 0 {
			a.ActiveChildren--
		}
	default:
		return Errorf(ErrUnknownEvent, "account cannot apply %s", evt.Type)
	}
	a.touch(evt.OccurredAt, evt.ActorID)
	a.version = evt.Version
	return nil
}

// AccountCode reserves one account code inside a tenant. Its stream only ever holds
// a single event, so appending at expected version 0 fails once the code is taken.
type AccountCode struct {
	aggregateBase
	Tenant    string
	Code      string
	AccountID string
}

// AccountCodeReserved is the only event of an AccountCode stream.
type AccountCodeReserved struct {
	Code      string `json:"code"`
	AccountID string `json:"accountID"`
}

var _ Aggregate = (*AccountCode)(nil)

func (c *AccountCode) AggregateID() string          { return c.Code }
func (c *AccountCode) TenantID() string             { return c.Tenant }
func (c *AccountCode) AggregateType() AggregateType { return AggregateAccountCode }

// ReserveAccountCode raises AccountCodeReserved for a fresh code stream.
func ReserveAccountCode(tenantID, code, accountID string, meta Metadata) (*AccountCode, error) {
	c := &AccountCode{Tenant: tenantID, Code: strings.TrimSpace(code)}
	if err := raise(c, &c.aggregateBase, EventAccountCodeReserved, AccountCodeReserved{Code: c.Code, AccountID: accountID}, meta); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AccountCode) Apply(evt Event) error {
	if err := c.checkNext(evt); err != nil {
		return err
	}
	payload, err := DecodePayload(evt)
	if err != nil {
		return err
	}
	p, ok := payload.(*AccountCodeReserved)
	if !ok {
		return Errorf(ErrUnknownEvent, "account code cannot apply %s", evt.Type)
	}
	c.Code = p.Code
	c.AccountID = p.AccountID
	c.version = evt.Version
	return nil
}

func (f *AuditFields) touch(at time.Time, actorID string) {
	f.LastUpdatedAt = at
	f.LastUpdatedBy = actorID
}
