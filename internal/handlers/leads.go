package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"telegram-lead-scanner-go/internal/models"
)

// GetLeads returns every stored lead
func (h *Handlers) GetLeads(c *gin.Context) {
	leads := h.store.ListAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"leads": leads, "total": len(leads)})
}

// ClearLeads wipes the lead store
func (h *Handlers) ClearLeads(c *gin.Context) {
	h.store.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpdateLeadSent flips the sent flag on one lead. The lead is addressed
// by stable ID, with a numeric positional index accepted for older
// clients.
func (h *Handlers) UpdateLeadSent(c *gin.Context) {
	var req models.UpdateSentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}

	var id string
	if err := json.Unmarshal(req.LeadID, &id); err == nil && id != "" {
		if _, err := h.store.MarkSentByID(id, req.Sent); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	var index int
	if err := json.Unmarshal(req.LeadID, &index); err != nil {
		writeError(c, models.NewValidationError("leadId must be a lead ID or a numeric index"))
		return
	}
	if err := h.store.MarkSentByIndex(index, req.Sent); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLeadStats summarizes the store contents
func (h *Handlers) GetLeadStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats(c.Request.Context()))
}
