package dto

// PeriodStatusResponse reports whether a fiscal period accepts postings.
type PeriodStatusResponse struct {
	FiscalPeriod string `json:"fiscalPeriod"`
	Open         bool   `json:"open"`
}
