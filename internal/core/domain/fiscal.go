package domain

import (
	"fmt"
	"time"
)

// FiscalYearStartMonth is the first month of the July-June fiscal year.
const FiscalYearStartMonth = time.July

// FiscalPeriodOf derives the fiscal period label of a date:
// July is P01 and June is P12 of the year that started the previous July.
func FiscalPeriodOf(date time.Time) string {
	startYear, period := FiscalYearAndPeriod(date)
	return fmt.Sprintf("FY%d-%d-P%02d", startYear, startYear+1, period)
}

// FiscalYearAndPeriod returns the starting calendar year of the fiscal year and the 1-based period.
func FiscalYearAndPeriod(date time.Time) (startYear int, period int) {
	month := int(date.Month())
	start := int(FiscalYearStartMonth)
	if month >= start {
		return date.Year(), month - start + 1
	}
	return date.Year() - 1, month + (12 - start + 1)
}
