// Package handler exposes the moderation dashboard API: report review,
// user statistics and the live vote feed over WebSocket.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"modguard/backend/internal/events"
	"modguard/backend/internal/models"
	"modguard/backend/internal/moderr"
	"modguard/backend/internal/report"
	"modguard/backend/internal/reputation"
	"modguard/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Storage    storage.Storage
	Reports    *report.Queue
	Ledger     *reputation.Ledger
	Dispatcher *events.Dispatcher
}

func NewHandler(s storage.Storage, reports *report.Queue, ledger *reputation.Ledger, d *events.Dispatcher) *Handler {
	return &Handler{Storage: s, Reports: reports, Ledger: ledger, Dispatcher: d}
}

// GetReports lists reports, filtered by status when ?status= is given.
func (h *Handler) GetReports(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	reports, err := h.Storage.ListReports(status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

type resolveReportRequest struct {
	Status     string `json:"status" binding:"required"`
	Resolution string `json:"resolution"`
}

// ResolveReport moves a pending report into a terminal state.
func (h *Handler) ResolveReport(c *gin.Context) {
	reportID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	var req resolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moderatorID := c.GetInt64(ctxModeratorID)
	r, err := h.Reports.Resolve(uint(reportID), req.Status, moderatorID, req.Resolution)
	switch {
	case errors.Is(err, moderr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case errors.Is(err, moderr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "report already resolved"})
	case errors.Is(err, moderr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve report"})
	default:
		c.JSON(http.StatusOK, gin.H{"report": r})
	}
}

// GetUserStats returns the reputation snapshot plus top reactions.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	snap, err := h.Ledger.Snapshot(userID)
	if errors.Is(err, moderr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshot"})
		return
	}

	top, err := h.Ledger.TopReactions(userID, 5)
	if err != nil {
		top = nil
	}

	c.JSON(http.StatusOK, gin.H{"snapshot": snap, "top_reactions": top})
}

// GetActiveVotes lists the votes still in the open state.
func (h *Handler) GetActiveVotes(c *gin.Context) {
	votes, err := h.Storage.ActiveVotes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list votes"})
		return
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
