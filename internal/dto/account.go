package dto

import (
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code            string  `json:"code" binding:"required,max=50"`
	Name            string  `json:"name" binding:"required,max=255"`
	AccountType     string  `json:"accountType" binding:"required"`
	ParentAccountID *string `json:"parentAccountID"` // Optional, use pointer for nullability
}

// RenameAccountRequest defines the data allowed for renaming an account.
type RenameAccountRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// ListAccountsParams defines the query parameters for listing accounts.
type ListAccountsParams struct {
	AccountType string  `form:"accountType"`
	ActiveOnly  bool    `form:"activeOnly"`
	Limit       int     `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken   *string `form:"nextToken"`
}

// AccountResponse defines the data returned for an account.
// Mirrors domain.AccountView.
type AccountResponse struct {
	AccountID       string             `json:"accountID"`
	Code            string             `json:"code"`
	Name            string             `json:"name"`
	AccountType     domain.AccountType `json:"accountType"`
	ParentAccountID string             `json:"parentAccountID"` // Note: Empty string for root accounts
	Balance         decimal.Decimal    `json:"balance"`
	IsActive        bool               `json:"isActive"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"createdAt"`
	CreatedBy       string             `json:"createdBy"`
	LastUpdatedAt   time.Time          `json:"lastUpdatedAt"`
	LastUpdatedBy   string             `json:"lastUpdatedBy"`
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts  []AccountResponse `json:"accounts"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ToAccountResponse converts a domain.AccountView to AccountResponse DTO
func ToAccountResponse(v *domain.AccountView) AccountResponse {
	return AccountResponse{
		AccountID:       v.AccountID,
		Code:            v.Code,
		Name:            v.Name,
		AccountType:     v.AccountType,
		ParentAccountID: v.ParentAccountID,
		Balance:         v.Balance,
		IsActive:        v.IsActive,
		Version:         v.Version,
		CreatedAt:       v.CreatedAt,
		CreatedBy:       v.CreatedBy,
		LastUpdatedAt:   v.LastUpdatedAt,
		LastUpdatedBy:   v.LastUpdatedBy,
	}
}

// ToAccountResponses converts a slice of domain.AccountView to []AccountResponse.
func ToAccountResponses(views []domain.AccountView) []AccountResponse {
	responses := make([]AccountResponse, len(views))
	for i := range views {
		responses[i] = ToAccountResponse(&views[i])
	}
	return responses
}
