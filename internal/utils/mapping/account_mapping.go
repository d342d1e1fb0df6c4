package mapping

import (
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
)

// ToModelAccount converts an account view to a read-model row
func ToModelAccount(d domain.AccountView) models.Account {
	return models.Account{
		TenantID:        d.TenantID,
		AccountID:       d.AccountID,
		Code:            d.Code,
		Name:            d.Name,
		AccountType:     string(d.AccountType),
		ParentAccountID: nullString(d.ParentAccountID),
		Balance:         d.Balance,
		IsActive:        d.IsActive,
		Version:         d.Version,
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a read-model row to an account view
func ToDomainAccount(m models.Account) domain.AccountView {
	return domain.AccountView{
		TenantID:        m.TenantID,
		AccountID:       m.AccountID,
		Code:            m.Code,
		Name:            m.Name,
		AccountType:     domain.AccountType(m.AccountType),
		ParentAccountID: m.ParentAccountID.String,
		Balance:         m.Balance,
		IsActive:        m.IsActive,
		Version:         m.Version,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainAccountSlice converts a slice of rows to account views
func ToDomainAccountSlice(ms []models.Account) []domain.AccountView {
	ds := make([]domain.AccountView, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainAccount(m)
	}
	return ds
}
