package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/metrics"
	"telegram-lead-scanner-go/internal/models"
	"telegram-lead-scanner-go/internal/settings"
	"telegram-lead-scanner-go/internal/source"
	"telegram-lead-scanner-go/internal/store"
)

// Analyzer classifies scanned messages into leads.
type Analyzer interface {
	Analyze(ctx context.Context, msgs []models.Message, criteria, apiKey string) ([]models.Lead, error)
}

// Mirror is the slice of the sheet mirror the scanner writes to.
type Mirror interface {
	Initialize(creds models.SheetsCredentials) error
	AppendMessages(ctx context.Context, spreadsheetID string, messages []models.Message) error
	AppendLeads(ctx context.Context, spreadsheetID string, leads []models.Lead) error
}

// Scanner owns the scan loop: pulling chat history on an interval,
// mirroring messages to the sheet, and arming a deferred analysis
// after every scan. All scanner state lives here, guarded by one
// mutex, so concurrent HTTP handlers see a consistent snapshot.
type Scanner struct {
	cfg        *config.ScannerConfig
	factory    source.Factory
	mirror     Mirror
	classifier Analyzer
	settings   *settings.Store
	store      *store.LeadStore
	metrics    *metrics.Metrics

	mu            sync.Mutex
	isRunning     bool
	interval      time.Duration
	chats         []string
	stopCh        chan struct{}
	lastScan      time.Time
	nextScan      time.Time
	totalScans    int
	totalMessages int
	scanErrors    []string
	history       []models.ScanRecord
	lastMessages  []models.Message
	pending       map[int64]models.PendingAnalysis
	nextTimerID   int64

	wg sync.WaitGroup

	// now and afterFunc are replaceable in tests
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewScanner creates a scanner. The loop is not started.
func NewScanner(cfg *config.ScannerConfig, factory source.Factory, mirror Mirror, classifier Analyzer, st *settings.Store, leads *store.LeadStore, m *metrics.Metrics) *Scanner {
	return &Scanner{
		cfg:        cfg,
		factory:    factory,
		mirror:     mirror,
		classifier: classifier,
		settings:   st,
		store:      leads,
		metrics:    m,
		pending:    make(map[int64]models.PendingAnalysis),
		now:        time.Now,
		afterFunc:  time.AfterFunc,
	}
}

// Start validates the request, persists its settings and begins the
// scan loop with an immediate first scan. A running loop is replaced,
// so repeated starts reconfigure instead of stacking intervals.
func (s *Scanner) Start(ctx context.Context, req models.StartScanRequest) error {
	if len(req.SelectedChats) == 0 {
		return models.NewValidationError("at least one chat must be selected")
	}

	interval := ParseScanInterval(req.ScanInterval.Raw, s.cfg.DefaultInterval)
	if err := s.applySettings(req); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		close(s.stopCh)
		logrus.Infof("Restarting scan loop with new parameters")
	}
	s.interval = interval
	s.chats = append([]string(nil), req.SelectedChats...)
	s.stopCh = make(chan struct{})
	s.isRunning = true
	stopCh := s.stopCh
	chats := s.chats
	s.mu.Unlock()

	logrus.Infof("Starting scanner: %d chats, interval %s", len(chats), interval)

	// First scan runs synchronously so the caller sees its errors.
	s.scan(ctx, chats, interval, false)

	s.wg.Add(1)
	go s.loop(stopCh, chats, interval)

	return nil
}

func (s *Scanner) loop(stopCh chan struct{}, chats []string, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.scan(context.Background(), chats, interval, false)
		case <-stopCh:
			return
		}
	}
}

// Stop halts the recurring loop. Armed analysis timers and an
// in-flight scan are left to finish on their own.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return fmt.Errorf("scanner is not running")
	}

	close(s.stopCh)
	s.isRunning = false
	s.nextScan = time.Time{}

	logrus.Infof("Scanner stopped; %d deferred analyses still pending", len(s.pending))
	return nil
}

// ScanNow runs a single manual scan over the given chats without
// touching the recurring loop. Manual scans skip the time window
// filter so the full fetched history is kept.
func (s *Scanner) ScanNow(ctx context.Context, req models.StartScanRequest) error {
	if len(req.SelectedChats) == 0 {
		return models.NewValidationError("at least one chat must be selected")
	}
	if err := s.applySettings(req); err != nil {
		return err
	}

	interval := ParseScanInterval(req.ScanInterval.Raw, s.cfg.DefaultInterval)
	s.scan(ctx, req.SelectedChats, interval, true)
	return nil
}

// Status returns a cheap snapshot of the scanner state.
func (s *Scanner) Status() models.ScannerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := models.ScannerStatus{
		IsRunning:     s.isRunning,
		TotalScans:    s.totalScans,
		TotalMessages: s.totalMessages,
		Errors:        append([]string(nil), s.scanErrors...),
	}
	if !s.lastScan.IsZero() {
		t := s.lastScan
		status.LastScan = &t
	}
	if s.isRunning && !s.nextScan.IsZero() {
		t := s.nextScan
		status.NextScan = &t
	}
	return status
}

// PendingAnalyses lists the armed deferred-analysis timers, oldest
// first.
func (s *Scanner) PendingAnalyses() []models.PendingAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PendingAnalysis, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns the most recent scan records, newest last. A limit
// of zero returns everything retained.
func (s *Scanner) History(limit int) []models.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.history
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return append([]models.ScanRecord(nil), records...)
}

// LastMessages returns a copy of the latest scan's message buffer.
func (s *Scanner) LastMessages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.lastMessages...)
}

// Wait blocks until the scan loop goroutine has exited.
func (s *Scanner) Wait() {
	s.wg.Wait()
}

// applySettings merges request-supplied settings into the persisted
// blob and brings the sheet mirror up when credentials arrive.
func (s *Scanner) applySettings(req models.StartScanRequest) error {
	current := s.settings.Load()

	if req.SpreadsheetID != "" {
		current.SpreadsheetID = req.SpreadsheetID
	}
	if req.SheetsConfig != nil {
		current.SheetsConfig = req.SheetsConfig
	}
	if req.LeadAnalysisSettings != nil {
		if req.LeadAnalysisSettings.OpenRouterAPIKey != "" {
			current.OpenRouterAPIKey = req.LeadAnalysisSettings.OpenRouterAPIKey
		}
		if req.LeadAnalysisSettings.LeadCriteria != "" {
			current.LeadCriteria = req.LeadAnalysisSettings.LeadCriteria
		}
	}

	if err := s.settings.Save(current); err != nil {
		logrus.Warnf("Failed to persist settings: %v", err)
	}

	if req.SheetsConfig != nil {
		if err := s.mirror.Initialize(*req.SheetsConfig); err != nil {
			return fmt.Errorf("failed to initialize sheets client: %w", err)
		}
	}
	return nil
}

func (s *Scanner) spreadsheetID() string {
	return s.settings.Load().SpreadsheetID
}
