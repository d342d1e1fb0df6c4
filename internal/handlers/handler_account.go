package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(as portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{
		accountService: as,
	}
}

// registerAccountRoutes registers routes related to the chart of accounts.
func registerAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/:id/children", h.listChildAccounts)
		accounts.PUT("/:id", h.renameAccount)
		accounts.DELETE("/:id", h.deactivateAccount)
	}
}

// createAccount creates an account and reserves its code within the tenant.
// Answers 201, or 409 with code DUPLICATE_CODE when the code is taken.
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to create account", slog.String("code", req.Code), slog.String("account_type", req.AccountType))
	account, err := h.accountService.CreateAccount(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, logger, err, "create account")
		return
	}

	logger.Info("Account created successfully", slog.String("account_id", account.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("target_account_id", c.Param("id")))
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// listAccounts answers one page of accounts ordered by code.
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	resp, err := h.accountService.ListAccounts(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, logger, err, "list accounts")
		return
	}
	logger.Info("Accounts listed successfully", slog.Int("count", len(resp.Accounts)))
	c.JSON(http.StatusOK, resp)
}

func (h *accountHandler) listChildAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("parent_account_id", c.Param("id")))
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	children, err := h.accountService.ListChildAccounts(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "list child accounts")
		return
	}
	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToAccountResponses(children)})
}

func (h *accountHandler) renameAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("target_account_id", c.Param("id")))
	var req dto.RenameAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RenameAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	account, err := h.accountService.RenameAccount(c.Request.Context(), tenantID, userID, c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "rename account")
		return
	}
	logger.Info("Account renamed successfully")
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// deactivateAccount marks an account inactive. Answers 204.
func (h *accountHandler) deactivateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("target_account_id", c.Param("id")))
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	if _, err := h.accountService.DeactivateAccount(c.Request.Context(), tenantID, userID, c.Param("id")); err != nil {
		respondError(c, logger, err, "deactivate account")
		return
	}
	logger.Info("Account deactivated successfully")
	c.Status(http.StatusNoContent)
}
