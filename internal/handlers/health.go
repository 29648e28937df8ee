package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	components := make(map[string]string)

	if h.scanner.Status().IsRunning {
		components["scanner"] = "running"
	} else {
		components["scanner"] = "stopped"
	}
	if h.dispatcher.IsRunning() {
		components["dispatcher"] = "running"
	} else {
		components["dispatcher"] = "stopped"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"timestamp":  time.Now(),
		"components": components,
	})
}
