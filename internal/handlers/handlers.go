package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"telegram-lead-scanner-go/internal/dispatch"
	"telegram-lead-scanner-go/internal/metrics"
	"telegram-lead-scanner-go/internal/models"
	"telegram-lead-scanner-go/internal/scanner"
	"telegram-lead-scanner-go/internal/settings"
	"telegram-lead-scanner-go/internal/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	scanner    *scanner.Scanner
	dispatcher *dispatch.Dispatcher
	store      *store.LeadStore
	settings   *settings.Store
	metrics    *metrics.Metrics
}

// NewHandlers creates new HTTP handlers
func NewHandlers(sc *scanner.Scanner, d *dispatch.Dispatcher, st *store.LeadStore, se *settings.Store, m *metrics.Metrics) *Handlers {
	return &Handlers{scanner: sc, dispatcher: d, store: st, settings: se, metrics: m}
}

// SetupRoutes registers all routes on the router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		sc := api.Group("/scanner")
		{
			sc.POST("/start", h.StartScanning)
			sc.POST("/stop", h.StopScanning)
			sc.POST("/scan", h.ScanOnce)
			sc.GET("/status", h.GetScannerStatus)
			sc.GET("/history", h.GetScanHistory)
			sc.POST("/trigger-analysis", h.TriggerAnalysis)
			sc.GET("/ai-settings", h.GetAISettings)
			sc.POST("/ai-settings", h.UpdateAISettings)
		}

		cr := api.Group("/cron")
		{
			cr.POST("/start", h.StartCron)
			cr.POST("/stop", h.StopCron)
			cr.GET("/status", h.GetCronStatus)
			cr.POST("/send-new-leads", h.SendNewLeads)
		}

		leads := api.Group("/leads")
		{
			leads.GET("", h.GetLeads)
			leads.DELETE("", h.ClearLeads)
			leads.POST("/update-sent", h.UpdateLeadSent)
			leads.GET("/stats", h.GetLeadStats)
		}
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError

	var validationErr *models.ValidationError
	var notFoundErr *models.LeadNotFoundError
	switch {
	case errors.As(err, &validationErr):
		code = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		code = http.StatusNotFound
	}

	c.JSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
		Code:    code,
	})
}
