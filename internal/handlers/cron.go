package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartCron starts the dispatch schedule
func (h *Handlers) StartCron(c *gin.Context) {
	if err := h.dispatcher.Start(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": h.dispatcher.Status()})
}

// StopCron stops the dispatch schedule
func (h *Handlers) StopCron(c *gin.Context) {
	if err := h.dispatcher.Stop(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetCronStatus returns the dispatch schedule state. Never errors on a
// fresh process.
func (h *Handlers) GetCronStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.Status())
}

// SendNewLeads runs one dispatch cycle immediately
func (h *Handlers) SendNewLeads(c *gin.Context) {
	sent, err := h.dispatcher.DispatchCycle(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sentCount": sent})
}
