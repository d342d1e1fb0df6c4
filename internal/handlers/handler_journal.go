package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/mma_ledger/internal/core/ports/services"
	"github.com/SscSPs/mma_ledger/internal/dto"
	"github.com/SscSPs/mma_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// journalHandler handles HTTP requests related to journals.
type journalHandler struct {
	journalService portssvc.JournalSvcFacade
}

// newJournalHandler creates a new journalHandler.
func newJournalHandler(journalService portssvc.JournalSvcFacade) *journalHandler {
	return &journalHandler{
		journalService: journalService,
	}
}

// registerJournalRoutes registers the journal command and query routes.
func registerJournalRoutes(rg *gin.RouterGroup, journalService portssvc.JournalSvcFacade) {
	h := newJournalHandler(journalService)

	journals := rg.Group("/journals")
	{
		journals.POST("", h.createJournal)
		journals.GET("", h.listJournals)
		journals.GET("/unposted", h.listUnpostedJournals)
		journals.GET("/by-number/:number", h.getJournalByNumber)
		journals.GET("/:id", h.getJournal)
		journals.POST("/:id/lines", h.addJournalLine)
		journals.POST("/:id/post", h.postJournal)
		journals.POST("/:id/reverse", h.reverseJournal)
		journals.POST("/:id/cancel", h.cancelJournal)
	}
	rg.GET("/periods/:period/journals", h.listJournalsByPeriod)
}

// createJournal creates a journal, posting it as well when autoPost is set.
// Answers 201 with the journal.
func (h *journalHandler) createJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	logger.Info("Received request to create journal", slog.String("journal_type", req.JournalType), slog.Int("lines", len(req.Lines)), slog.Bool("auto_post", req.AutoPost))
	journal, err := h.journalService.CreateJournal(c.Request.Context(), tenantID, userID, req)
	if err != nil {
		respondError(c, logger, err, "create journal")
		return
	}

	logger.Info("Journal created successfully", slog.String("journal_id", journal.JournalID), slog.String("journal_number", journal.JournalNumber))
	c.JSON(http.StatusCreated, dto.ToJournalResponse(journal))
}

func (h *journalHandler) addJournalLine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", c.Param("id")))
	var req dto.JournalLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddJournalLine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	journal, err := h.journalService.AddJournalLine(c.Request.Context(), tenantID, userID, c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "add journal line")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

func (h *journalHandler) postJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", c.Param("id")))
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	journal, err := h.journalService.PostJournal(c.Request.Context(), tenantID, userID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "post journal")
		return
	}
	logger.Info("Journal posted successfully")
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

// reverseJournal posts the reversing journal of a posted journal.
// Answers 201 with both the original and the reversing journal.
func (h *journalHandler) reverseJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", c.Param("id")))
	var req dto.ReverseJournalRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("Failed to bind JSON for ReverseJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	original, reversing, err := h.journalService.ReverseJournal(c.Request.Context(), tenantID, userID, c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "reverse journal")
		return
	}
	logger.Info("Journal reversed successfully", slog.String("reversing_journal_id", reversing.JournalID))
	c.JSON(http.StatusCreated, dto.ReverseJournalResponse{
		Original:  dto.ToJournalResponse(original),
		Reversing: dto.ToJournalResponse(reversing),
	})
}

func (h *journalHandler) cancelJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", c.Param("id")))
	var req dto.CancelJournalRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("Failed to bind JSON for CancelJournal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	tenantID, userID, ok := caller(c, logger)
	if !ok {
		return
	}

	journal, err := h.journalService.CancelJournal(c.Request.Context(), tenantID, userID, c.Param("id"), req)
	if err != nil {
		respondError(c, logger, err, "cancel journal")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

func (h *journalHandler) getJournal(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_id", c.Param("id")))
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	journal, err := h.journalService.GetJournal(c.Request.Context(), tenantID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "retrieve journal")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

func (h *journalHandler) getJournalByNumber(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("journal_number", c.Param("number")))
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	journal, err := h.journalService.GetJournalByNumber(c.Request.Context(), tenantID, c.Param("number"))
	if err != nil {
		respondError(c, logger, err, "retrieve journal")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalResponse(journal))
}

// listJournals answers one page of journals, newest first. Filters come from the query string.
func (h *journalHandler) listJournals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params, ok := bindListParams(c, logger)
	if !ok {
		return
	}
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	resp, err := h.journalService.ListJournals(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, logger, err, "list journals")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *journalHandler) listUnpostedJournals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	params, ok := bindListParams(c, logger)
	if !ok {
		return
	}
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	resp, err := h.journalService.ListUnpostedJournals(c.Request.Context(), tenantID, params)
	if err != nil {
		respondError(c, logger, err, "list unposted journals")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *journalHandler) listJournalsByPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("fiscal_period", c.Param("period")))
	params, ok := bindListParams(c, logger)
	if !ok {
		return
	}
	tenantID, _, ok := caller(c, logger)
	if !ok {
		return
	}

	resp, err := h.journalService.ListJournalsByPeriod(c.Request.Context(), tenantID, c.Param("period"), params)
	if err != nil {
		respondError(c, logger, err, "list journals by period")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func bindListParams(c *gin.Context, logger *slog.Logger) (dto.ListJournalsParams, bool) {
	var params dto.ListJournalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for journal list", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return params, false
	}
	return params, true
}
