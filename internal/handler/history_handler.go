package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fluentpath/detprep-backend/internal/history"
	"github.com/fluentpath/detprep-backend/internal/middleware"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/repository"
	"github.com/fluentpath/detprep-backend/internal/response"
)

// HistoryHandler serves the bounded result history and its aggregates.
type HistoryHandler struct {
	history    *history.History
	resultRepo *repository.ResultRepository
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(hist *history.History, resultRepo *repository.ResultRepository) *HistoryHandler {
	return &HistoryHandler{history: hist, resultRepo: resultRepo}
}

// List godoc
// GET /api/v1/history?limit=N
// Returns the learner's recent results, most recent first. The bounded
// history answers up to its cap; larger limits fall through to the archive.
func (h *HistoryHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}

	if limit <= history.MaxEntries {
		entries := h.history.List(c.Request.Context(), claims.UserID, limit)
		response.Success(c, http.StatusOK, gin.H{"results": entries})
		return
	}

	entries, err := h.resultRepo.ListByUser(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": entries})
}

// Latest godoc
// GET /api/v1/history/latest
// Returns the most recent result with its CEFR level, or null data.
func (h *HistoryHandler) Latest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	latest := h.history.Latest(c.Request.Context(), claims.UserID)
	if latest == nil {
		response.Success(c, http.StatusOK, gin.H{"result": nil})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result": latest,
		"level":  model.LevelForScore(latest.Score.Overall),
	})
}

// Stats godoc
// GET /api/v1/history/stats
// Returns aggregates over the bounded history: averages, practice hours,
// and the score range across the last three attempts.
func (h *HistoryHandler) Stats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stats := h.history.Stats(c.Request.Context(), claims.UserID)
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// Clear godoc
// DELETE /api/v1/history
// Empties the learner's bounded history. The archive is untouched.
func (h *HistoryHandler) Clear(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.history.Clear(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
