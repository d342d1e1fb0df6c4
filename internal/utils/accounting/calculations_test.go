package accounting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsBalanced(t *testing.T) {
	tests := []struct {
		name   string
		debit  string
		credit string
		want   bool
	}{
		{"exact", "150000", "150000", true},
		{"within tolerance", "100.00", "100.01", true},
		{"within tolerance other side", "100.01", "100.00", true},
		{"just outside tolerance", "100.00", "100.02", false},
		{"zero", "0", "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsBalanced(decimal.RequireFromString(tt.debit), decimal.RequireFromString(tt.credit))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignedMovement(t *testing.T) {
	hundred := decimal.NewFromInt(100)

	assert.True(t, SignedMovement(true, hundred, decimal.Zero).Equal(hundred), "debit on debit-normal account increases")
	assert.True(t, SignedMovement(true, decimal.Zero, hundred).Equal(hundred.Neg()), "credit on debit-normal account decreases")
	assert.True(t, SignedMovement(false, decimal.Zero, hundred).Equal(hundred), "credit on credit-normal account increases")
	assert.True(t, SignedMovement(false, hundred, decimal.Zero).Equal(hundred.Neg()), "debit on credit-normal account decreases")
}

func TestSum(t *testing.T) {
	got := Sum(decimal.RequireFromString("1.10"), decimal.RequireFromString("2.20"), decimal.RequireFromString("3.30"))
	assert.True(t, got.Equal(decimal.RequireFromString("6.60")))
	assert.True(t, Sum().IsZero())
}
