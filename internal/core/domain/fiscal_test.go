package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestFiscalPeriodOf(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "FY2024-2025-P01"},
		{time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC), "FY2024-2025-P12"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "FY2024-2025-P06"},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "FY2024-2025-P07"},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), "FY2023-2024-P12"},
		{time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC), "FY2024-2025-P03"},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.FiscalPeriodOf(tt.date))
		})
	}
}

func TestFiscalYearAndPeriodCoversEveryMonth(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		startYear, period := domain.FiscalYearAndPeriod(time.Date(2030, month, 1, 0, 0, 0, 0, time.UTC))
		assert.GreaterOrEqual(t, period, 1)
		assert.LessOrEqual(t, period, 12)
		if month >= time.July {
			assert.Equal(t, 2030, startYear)
			assert.Equal(t, int(month)-6, period)
		} else {
			assert.Equal(t, 2029, startYear)
			assert.Equal(t, int(month)+6, period)
		}
	}
}
