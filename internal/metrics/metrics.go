package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	ScanCount       prometheus.Counter
	MessagesFetched prometheus.Counter
	AnalysisRuns    prometheus.Counter
	LeadsFound      prometheus.Counter
	DispatchSent    prometheus.Counter
	DispatchFailed  prometheus.Counter
	ScanDuration    prometheus.Histogram
	PendingAnalyses prometheus.Gauge
	UnsentLeads     prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ScanCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_scan_count",
			Help: "Total number of chat scan operations",
		}),
		MessagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_messages_fetched",
			Help: "Total number of messages fetched from chats",
		}),
		AnalysisRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_analysis_runs",
			Help: "Total number of lead analysis runs",
		}),
		LeadsFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_leads_found",
			Help: "Total number of leads produced by analysis",
		}),
		DispatchSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_dispatch_sent",
			Help: "Total number of leads delivered to the channel",
		}),
		DispatchFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "telegram_lead_scanner_dispatch_failed",
			Help: "Total number of lead deliveries that gave up after retries",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_lead_scanner_scan_duration_seconds",
			Help:    "Time spent scanning chats",
			Buckets: prometheus.DefBuckets,
		}),
		PendingAnalyses: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_lead_scanner_pending_analyses",
			Help: "Number of armed deferred analysis timers",
		}),
		UnsentLeads: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_lead_scanner_unsent_leads",
			Help: "Number of stored leads not yet dispatched",
		}),
	}
}
