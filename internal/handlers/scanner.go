package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"telegram-lead-scanner-go/internal/models"
)

// StartScanning starts the recurring scan loop
func (h *Handlers) StartScanning(c *gin.Context) {
	var req models.StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}

	if err := h.scanner.Start(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": h.scanner.Status()})
}

// StopScanning stops the recurring scan loop
func (h *Handlers) StopScanning(c *gin.Context) {
	if err := h.scanner.Stop(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ScanOnce runs a single manual scan
func (h *Handlers) ScanOnce(c *gin.Context) {
	var req models.StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}

	if err := h.scanner.ScanNow(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": h.scanner.Status()})
}

// GetScannerStatus returns the scanner state snapshot. It never errors,
// a fresh process simply reports an idle scanner.
func (h *Handlers) GetScannerStatus(c *gin.Context) {
	pending := h.scanner.PendingAnalyses()
	c.JSON(http.StatusOK, gin.H{
		"status":          h.scanner.Status(),
		"pendingAnalyses": pending,
		"pendingCount":    len(pending),
	})
}

// GetScanHistory returns recent scan records
func (h *Handlers) GetScanHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(c, models.NewValidationError("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	c.JSON(http.StatusOK, gin.H{"history": h.scanner.History(limit)})
}

// TriggerAnalysis runs the deferred analysis immediately
func (h *Handlers) TriggerAnalysis(c *gin.Context) {
	if err := h.scanner.TriggerAnalysis(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAISettings reports whether analysis is configured. The API key is
// never echoed back.
func (h *Handlers) GetAISettings(c *gin.Context) {
	current := h.settings.Load()
	c.JSON(http.StatusOK, gin.H{
		"hasApiKey":    current.OpenRouterAPIKey != "",
		"leadCriteria": current.LeadCriteria,
		"configured":   current.HasAISettings(),
	})
}

// UpdateAISettings stores new analysis settings
func (h *Handlers) UpdateAISettings(c *gin.Context) {
	var req models.LeadAnalysisSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}

	current := h.settings.Load()
	if req.OpenRouterAPIKey != "" {
		current.OpenRouterAPIKey = req.OpenRouterAPIKey
	}
	if req.LeadCriteria != "" {
		current.LeadCriteria = req.LeadCriteria
	}
	if err := h.settings.Save(current); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "configured": current.HasAISettings()})
}
