package domain

import (
	"fmt"
	"strings"
	"time"
)

// JournalType classifies a journal. Each type has a fixed number prefix.
type JournalType string

const (
	General     JournalType = "GENERAL"
	Sales       JournalType = "SALES"
	Purchase    JournalType = "PURCHASE"
	CashReceipt JournalType = "CASH_RECEIPT"
	CashPayment JournalType = "CASH_PAYMENT"
	Adjustment  JournalType = "ADJUSTMENT"
	Reversing   JournalType = "REVERSING"
	Closing     JournalType = "CLOSING"
	Opening     JournalType = "OPENING"
)

var journalTypeCodes = map[JournalType]string{
	General:     "GJ",
	Sales:       "SJ",
	Purchase:    "PJ",
	CashReceipt: "CR",
	CashPayment: "CP",
	Adjustment:  "AJ",
	Reversing:   "RJ",
	Closing:     "CJ",
	Opening:     "OJ",
}

// Code returns the two-letter prefix used in journal numbers, or "" for an unknown type.
func (t JournalType) Code() string {
	return journalTypeCodes[t]
}

func (t JournalType) Valid() bool {
	_, ok := journalTypeCodes[t]
	return ok
}

// ParseJournalType normalizes and validates a journal type, defaulting to GENERAL when empty.
func ParseJournalType(s string) (JournalType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return General, nil
	}
	t := JournalType(s)
	if !t.Valid() {
		return "", Errorf(ErrInvalidJournalType, "unknown journal type %q", s)
	}
	return t, nil
}

// YearMonth scopes journal number sequences.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the calendar month of t.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// FormatJournalNumber renders {CODE}-{YYYY}-{MM}-{NNNNNN}.
func FormatJournalNumber(journalType JournalType, ym YearMonth, sequence int64) string {
	return fmt.Sprintf("%s-%04d-%02d-%06d", journalType.Code(), ym.Year, int(ym.Month), sequence)
}

// SequenceKey identifies one journal-number counter.
func SequenceKey(tenantID string, journalType JournalType, ym YearMonth) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, journalType.Code(), ym)
}
