package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
	"telegram-lead-scanner-go/internal/source"
)

// scan pulls history for every chat sequentially. A failing chat is
// recorded and skipped; the scan itself always completes and always
// arms a deferred analysis so leads are produced even from a partial
// pull.
func (s *Scanner) scan(ctx context.Context, chats []string, interval time.Duration, manual bool) {
	started := s.now()
	since := started.Add(-interval)

	logrus.Infof("Scanning %d chats (manual=%v)", len(chats), manual)

	client := s.connect(ctx)
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Warnf("Failed to close message source: %v", err)
		}
	}()

	var messages []models.Message
	var scanErrors []string
	processed := 0

	for _, chatID := range chats {
		chatMessages, err := s.scanChat(ctx, client, chatID, since, manual)
		if err != nil {
			logrus.Errorf("Failed to scan chat %s: %v", chatID, err)
			scanErrors = append(scanErrors, fmt.Sprintf("chat %s: %v", chatID, err))
			continue
		}
		messages = append(messages, chatMessages...)
		processed++
	}

	s.metrics.ScanCount.Inc()
	s.metrics.MessagesFetched.Add(float64(len(messages)))
	s.metrics.ScanDuration.Observe(s.now().Sub(started).Seconds())

	s.mirrorMessages(ctx, messages)

	record := models.ScanRecord{
		Timestamp:      started,
		Duration:       s.now().Sub(started),
		TotalMessages:  len(messages),
		ChatsProcessed: processed,
		Errors:         len(scanErrors),
		Success:        len(scanErrors) == 0,
	}

	s.mu.Lock()
	s.lastMessages = messages
	s.lastScan = started
	if s.isRunning {
		s.nextScan = started.Add(interval)
	}
	s.totalScans++
	s.totalMessages += len(messages)
	s.scanErrors = scanErrors
	s.history = append(s.history, record)
	if len(s.history) > s.cfg.HistorySize {
		s.history = s.history[len(s.history)-s.cfg.HistorySize:]
	}
	s.mu.Unlock()

	logrus.Infof("Scan complete: %d messages from %d/%d chats in %s", len(messages), processed, len(chats), record.Duration)

	s.armAnalysis()
}

// connect builds a source client, degrading to the mock source when
// the real gateway is unreachable so scheduled scans keep producing
// data.
func (s *Scanner) connect(ctx context.Context) source.Client {
	client := s.factory()
	if err := client.Connect(ctx); err != nil {
		logrus.Warnf("Message source unavailable, using mock data: %v", err)
		client.Close()
		client = source.NewMockClient()
		client.Connect(ctx)
	}
	return client
}

func (s *Scanner) scanChat(ctx context.Context, client source.Client, chatID string, since time.Time, manual bool) ([]models.Message, error) {
	title := "Chat " + chatID
	if entity, err := client.GetEntity(ctx, chatID); err == nil && entity.Title != "" {
		title = entity.Title
	} else if err != nil {
		logrus.Warnf("Could not resolve chat %s, keeping fallback title: %v", chatID, err)
	}

	opts := source.FetchOptions{Limit: s.cfg.FetchLimit}
	if !manual {
		opts.OffsetDate = since
	}

	fetched, err := client.GetMessages(ctx, chatID, opts)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(fetched))
	for _, msg := range fetched {
		if !manual && msg.Timestamp.Before(since) {
			continue
		}
		msg.ChatID = chatID
		if msg.ChatTitle == "" {
			msg.ChatTitle = title
		}
		messages = append(messages, msg)
	}

	logrus.Infof("Chat %s (%s): %d messages", chatID, title, len(messages))
	return messages, nil
}

// mirrorMessages writes the scan's messages to the sheet, skipping
// senders without a username. Mirror failures never fail the scan.
func (s *Scanner) mirrorMessages(ctx context.Context, messages []models.Message) {
	spreadsheetID := s.spreadsheetID()
	if spreadsheetID == "" || len(messages) == 0 {
		return
	}

	withUsername := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.HasUsername() {
			withUsername = append(withUsername, msg)
		}
	}
	if len(withUsername) == 0 {
		return
	}

	if err := s.mirror.AppendMessages(ctx, spreadsheetID, withUsername); err != nil {
		logrus.Errorf("Failed to mirror %d messages to sheet: %v", len(withUsername), err)
	}
}

// armAnalysis schedules a deferred analysis of the latest message
// buffer. Every scan arms its own timer; overlapping timers from
// rapid consecutive scans are all left to fire.
func (s *Scanner) armAnalysis() {
	s.mu.Lock()
	s.nextTimerID++
	id := s.nextTimerID
	s.pending[id] = models.PendingAnalysis{
		ID:                id,
		CreatedAt:         s.now(),
		ExpectedTriggerAt: s.now().Add(s.cfg.AnalysisDelay),
	}
	pendingCount := len(s.pending)
	s.mu.Unlock()

	s.metrics.PendingAnalyses.Set(float64(pendingCount))
	logrus.Infof("Deferred analysis %d armed, firing in %s (%d pending)", id, s.cfg.AnalysisDelay, pendingCount)

	s.afterFunc(s.cfg.AnalysisDelay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		remaining := len(s.pending)
		s.mu.Unlock()
		s.metrics.PendingAnalyses.Set(float64(remaining))

		if err := s.runAnalysis(context.Background()); err != nil {
			logrus.Errorf("Deferred analysis %d failed: %v", id, err)
		}
	})
}

// TriggerAnalysis runs the deferred-analysis path immediately.
func (s *Scanner) TriggerAnalysis(ctx context.Context) error {
	current := s.settings.Load()
	if !current.HasAISettings() {
		return models.NewValidationError("AI settings are not configured")
	}
	return s.runAnalysis(ctx)
}

// runAnalysis classifies the latest message buffer and merges the
// results into the lead store and the sheet mirror. Without complete
// AI settings it is a logged no-op so unconfigured deployments still
// scan.
func (s *Scanner) runAnalysis(ctx context.Context) error {
	current := s.settings.Load()
	if !current.HasAISettings() {
		logrus.Infof("Skipping analysis: AI settings are not configured")
		return nil
	}

	messages := s.LastMessages()
	if len(messages) == 0 {
		logrus.Infof("Skipping analysis: no messages in buffer")
		return nil
	}

	logrus.Infof("Analyzing %d messages", len(messages))
	s.metrics.AnalysisRuns.Inc()

	leads, err := s.classifier.Analyze(ctx, messages, current.LeadCriteria, current.OpenRouterAPIKey)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	s.metrics.LeadsFound.Add(float64(len(leads)))
	logrus.Infof("Analysis produced %d leads", len(leads))
	if len(leads) == 0 {
		return nil
	}

	s.store.MergeIncoming(ctx, leads)

	if spreadsheetID := s.spreadsheetID(); spreadsheetID != "" {
		if err := s.mirror.AppendLeads(ctx, spreadsheetID, leads); err != nil {
			logrus.Errorf("Failed to mirror %d leads to sheet: %v", len(leads), err)
		}
	}
	return nil
}
