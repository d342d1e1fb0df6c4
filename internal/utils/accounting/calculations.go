package accounting

import (
	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest debit/credit difference still treated as balanced
// (one minor currency unit of rounding).
var BalanceTolerance = decimal.NewFromFloat(0.01)

// IsBalanced reports whether the debit and credit totals agree within BalanceTolerance.
func IsBalanced(totalDebit, totalCredit decimal.Decimal) bool {
	return totalDebit.Sub(totalCredit).Abs().LessThanOrEqual(BalanceTolerance)
}

// SignedMovement returns the effect of a debit/credit pair on an account balance.
// debitNormal is true for accounts whose balance grows with debits.
//
// DEBIT to ASSET/EXPENSE -> Positive (+)
// CREDIT to ASSET/EXPENSE -> Negative (-)
// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
func SignedMovement(debitNormal bool, debit, credit decimal.Decimal) decimal.Decimal {
	if debitNormal {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Sum adds up the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
