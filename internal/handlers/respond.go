package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// caller returns the tenant and user the request acts for. It answers 401 and returns false
// when the user is missing. An empty tenant is left for the services to reject.
func caller(c *gin.Context, logger *slog.Logger) (tenantID, userID string, ok bool) {
	userID, ok = middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	tenantID, _ = middleware.GetTenantIDFromContext(c)
	return tenantID, userID, true
}

// respondError writes err with the status its kind maps to. Ledger rule violations carry their code.
// Server-side failures are logged and answered with a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error, action string) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}

	logger.Warn("Rejected request to "+action, slog.Int("status", status), slog.String("error", err.Error()))
	body := gin.H{"error": err.Error()}
	var ledgerErr *domain.Error
	if errors.As(err, &ledgerErr) {
		body["error"] = ledgerErr.Message
		body["code"] = ledgerErr.Code
	}
	c.JSON(status, body)
}

// bindOptionalJSON binds the body into dst unless the body is empty.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
