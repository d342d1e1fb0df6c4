package domain

import (
	"fmt"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
)

// ErrorCode identifies a ledger rule violation independent of its message.
type ErrorCode string

const (
	CodeTenantRequired      ErrorCode = "TENANT_REQUIRED"
	CodeTenantMismatch      ErrorCode = "TENANT_MISMATCH"
	CodeEmptyJournal        ErrorCode = "EMPTY_JOURNAL"
	CodeInvalidLine         ErrorCode = "INVALID_LINE"
	CodeUnbalancedJournal   ErrorCode = "UNBALANCED_JOURNAL"
	CodeInvalidJournalType  ErrorCode = "INVALID_JOURNAL_TYPE"
	CodeNotDraft            ErrorCode = "NOT_DRAFT"
	CodeNotPosted           ErrorCode = "NOT_POSTED"
	CodePeriodClosed        ErrorCode = "PERIOD_CLOSED"
	CodeAlreadyReversal     ErrorCode = "ALREADY_REVERSAL"
	CodeJournalNotFound     ErrorCode = "JOURNAL_NOT_FOUND"
	CodeDuplicateCode       ErrorCode = "DUPLICATE_CODE"
	CodeInvalidParent       ErrorCode = "INVALID_PARENT"
	CodeInvalidAccountType  ErrorCode = "INVALID_ACCOUNT_TYPE"
	CodeInvalidAccount      ErrorCode = "INVALID_ACCOUNT"
	CodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeNonZeroBalance      ErrorCode = "NON_ZERO_BALANCE"
	CodeHasActiveChildren   ErrorCode = "HAS_ACTIVE_CHILDREN"
	CodeAccountInactive     ErrorCode = "ACCOUNT_INACTIVE"
	CodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeUnknownEvent        ErrorCode = "UNKNOWN_EVENT"
	CodeOutOfOrder          ErrorCode = "OUT_OF_ORDER"
)

// Error is a typed ledger rule violation. Two errors match under errors.Is when their codes match,
// so callers compare against the sentinels below regardless of the message detail.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Kind places the error in the shared error taxonomy.
func (e *Error) Kind() apperrors.Kind {
	switch e.Code {
	case CodeTenantRequired, CodeTenantMismatch, CodeEmptyJournal, CodeInvalidLine, CodeUnbalancedJournal,
		CodeInvalidJournalType, CodeInvalidParent, CodeInvalidAccountType, CodeInvalidAccount, CodeInvalidAmount:
		return apperrors.KindValidation
	case CodeNotDraft, CodeNotPosted, CodePeriodClosed, CodeAlreadyReversal, CodeDuplicateCode,
		CodeInsufficientBalance, CodeNonZeroBalance, CodeHasActiveChildren, CodeAccountInactive, CodeOutOfOrder:
		return apperrors.KindState
	case CodeJournalNotFound, CodeAccountNotFound:
		return apperrors.KindNotFound
	default:
		return apperrors.KindUnknown
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrTenantRequired      = &Error{Code: CodeTenantRequired, Message: "tenant id is required"}
	ErrTenantMismatch      = &Error{Code: CodeTenantMismatch, Message: "event tenant does not match stream tenant"}
	ErrEmptyJournal        = &Error{Code: CodeEmptyJournal, Message: "journal must have at least two lines"}
	ErrInvalidLine         = &Error{Code: CodeInvalidLine, Message: "journal line must carry exactly one positive debit or credit amount"}
	ErrUnbalancedJournal   = &Error{Code: CodeUnbalancedJournal, Message: "journal debits and credits do not balance"}
	ErrInvalidJournalType  = &Error{Code: CodeInvalidJournalType, Message: "unknown journal type"}
	ErrNotDraft            = &Error{Code: CodeNotDraft, Message: "journal is not in DRAFT status"}
	ErrNotPosted           = &Error{Code: CodeNotPosted, Message: "journal is not in POSTED status"}
	ErrPeriodClosed        = &Error{Code: CodePeriodClosed, Message: "accounting period is closed"}
	ErrAlreadyReversal     = &Error{Code: CodeAlreadyReversal, Message: "a reversing journal cannot be reversed"}
	ErrJournalNotFound     = &Error{Code: CodeJournalNotFound, Message: "journal not found"}
	ErrDuplicateCode       = &Error{Code: CodeDuplicateCode, Message: "account code already exists"}
	ErrInvalidParent       = &Error{Code: CodeInvalidParent, Message: "parent account is invalid"}
	ErrInvalidAccountType  = &Error{Code: CodeInvalidAccountType, Message: "unknown account type"}
	ErrInvalidAccount      = &Error{Code: CodeInvalidAccount, Message: "account code and name are required"}
	ErrInvalidAmount       = &Error{Code: CodeInvalidAmount, Message: "amount must be positive"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrNonZeroBalance      = &Error{Code: CodeNonZeroBalance, Message: "account balance is not zero"}
	ErrHasActiveChildren   = &Error{Code: CodeHasActiveChildren, Message: "account has active child accounts"}
	ErrAccountInactive     = &Error{Code: CodeAccountInactive, Message: "account is inactive"}
	ErrAccountNotFound     = &Error{Code: CodeAccountNotFound, Message: "account not found"}
	ErrUnknownEvent        = &Error{Code: CodeUnknownEvent, Message: "unknown event type"}
	ErrOutOfOrder          = &Error{Code: CodeOutOfOrder, Message: "event delivered out of order"}
)

// Errorf returns a copy of base with a more specific message.
func Errorf(base *Error, format string, args ...any) *Error {
	return &Error{Code: base.Code, Message: fmt.Sprintf(format, args...)}
}
