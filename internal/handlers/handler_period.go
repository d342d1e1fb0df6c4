package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// periodHandler handles HTTP requests related to fiscal periods.
type periodHandler struct {
	periodService portssvc.PeriodSvc
}

func registerPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.PeriodSvc) {
	h := &periodHandler{periodService: periodService}

	periods := rg.Group("/periods")
	{
		periods.GET("/status", h.periodStatus)
		periods.POST("/:period/close", h.closePeriod)
		periods.POST("/:period/reopen", h.reopenPeriod)
	}
}

// periodStatus reports whether the period containing ?date=YYYY-MM-DD (default today) accepts postings.
func (h *periodHandler) periodStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			logger.Warn("Invalid date for period status", slog.String("date", raw))
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
			return
		}
		date = parsed
	}
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	open, err := h.periodService.IsOpen(c.Request.Context(), tenantID, date)
	if err != nil {
		respondError(c, logger, err, "read period status")
		return
	}
	c.JSON(http.StatusOK, dto.PeriodStatusResponse{FiscalPeriod: domain.FiscalPeriodOf(date), Open: open})
}

func (h *periodHandler) closePeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("fiscal_period", c.Param("period")))
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	if err := h.periodService.ClosePeriod(c.Request.Context(), tenantID, userID, c.Param("period")); err != nil {
		respondError(c, logger, err, "close period")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *periodHandler) reopenPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("fiscal_period", c.Param("period")))
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	if err := h.periodService.ReopenPeriod(c.Request.Context(), tenantID, userID, c.Param("period")); err != nil {
		respondError(c, logger, err, "reopen period")
		return
	}
	c.Status(http.StatusNoContent)
}
