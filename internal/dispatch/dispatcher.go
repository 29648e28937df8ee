package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/metrics"
	"telegram-lead-scanner-go/internal/models"
	"telegram-lead-scanner-go/internal/store"
)

// SentUpdater mirrors sent flags into the leads sheet.
type SentUpdater interface {
	UpdateLeadSent(ctx context.Context, spreadsheetID string, rowIndex int, sent bool) error
}

// Dispatcher pushes unsent leads to the Telegram channel on a cron
// schedule. Cycles run sequentially; a cycle resolves credentials,
// dedupes the unsent set and sends lead by lead with rate limit
// retries.
type Dispatcher struct {
	cfg           *config.DispatchConfig
	store         *store.LeadStore
	mirror        SentUpdater
	resolver      *Resolver
	notifier      Notifier
	metrics       *metrics.Metrics
	spreadsheetID func() string

	cron    *cron.Cron
	entryID cron.EntryID

	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// NewDispatcher creates a dispatcher. The cron is not started.
func NewDispatcher(cfg *config.DispatchConfig, st *store.LeadStore, mirror SentUpdater, resolver *Resolver, notifier Notifier, m *metrics.Metrics, spreadsheetID func() string) *Dispatcher {
	return &Dispatcher{
		cfg:           cfg,
		store:         st,
		mirror:        mirror,
		resolver:      resolver,
		notifier:      notifier,
		metrics:       m,
		spreadsheetID: spreadsheetID,
		sleep:         time.Sleep,
	}
}

// Start begins the cron schedule.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dispatcher is already running")
	}

	d.cron = cron.New()
	entryID, err := d.cron.AddFunc(d.cfg.Schedule, func() {
		if _, err := d.DispatchCycle(context.Background()); err != nil {
			logrus.Errorf("Dispatch cycle failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid dispatch schedule %q: %w", d.cfg.Schedule, err)
	}
	d.entryID = entryID
	d.cron.Start()
	d.isRunning = true

	logrus.Infof("Dispatcher started with schedule %s", d.cfg.Schedule)
	return nil
}

// Stop halts the cron schedule. An in-flight cycle finishes on its own.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return fmt.Errorf("dispatcher is not running")
	}

	d.cron.Stop()
	d.cron = nil
	d.isRunning = false

	logrus.Infof("Dispatcher stopped")
	return nil
}

// IsRunning reports whether the cron schedule is active.
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isRunning
}

// Status returns the schedule description with last and next run times.
// Zero times are reported as nil so the endpoint never errors on a
// fresh process.
func (d *Dispatcher) Status() models.DispatchStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := models.DispatchStatus{
		Running:  d.isRunning,
		Schedule: d.cfg.Schedule,
	}
	if !d.lastRun.IsZero() {
		t := d.lastRun
		status.LastRun = &t
	}
	if d.isRunning {
		next := d.cron.Entry(d.entryID).Next
		if !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// DispatchCycle runs one delivery pass and returns the number of leads
// sent. Missing credentials abort the whole cycle; individual send
// failures skip only their lead.
func (d *Dispatcher) DispatchCycle(ctx context.Context) (int, error) {
	d.mu.Lock()
	d.lastRun = time.Now()
	d.mu.Unlock()

	creds, err := d.resolver.Resolve(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot dispatch leads: %w", err)
	}

	unsent := d.store.ListUnsent(ctx)
	d.metrics.UnsentLeads.Set(float64(len(unsent)))
	if len(unsent) == 0 {
		logrus.Infof("No unsent leads to dispatch")
		return 0, nil
	}

	unique, duplicates := Partition(unsent)
	if len(duplicates) > 0 {
		logrus.Infof("Skipping %d duplicate leads", len(duplicates))
	}
	logrus.Infof("Dispatching %d leads", len(unique))

	sent := 0
	for i, lead := range unique {
		if err := d.sendWithRetry(ctx, creds, lead); err != nil {
			logrus.Errorf("Giving up on lead %s: %v", lead.ID, err)
			d.metrics.DispatchFailed.Inc()
		} else {
			d.markSent(ctx, lead)
			d.metrics.DispatchSent.Inc()
			sent++
		}

		if i < len(unique)-1 {
			d.sleep(d.cfg.SendDelay)
		}
	}

	d.metrics.UnsentLeads.Set(float64(len(d.store.ListUnsent(ctx))))
	logrus.Infof("Dispatch cycle complete: %d of %d leads sent", sent, len(unique))
	return sent, nil
}

// sendWithRetry retries rate limited sends with growing backoff. Other
// errors fail immediately.
func (d *Dispatcher) sendWithRetry(ctx context.Context, creds Credentials, lead models.Lead) error {
	var err error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * d.cfg.RetryBackoff
			if backoff > d.cfg.MaxBackoff {
				backoff = d.cfg.MaxBackoff
			}
			logrus.Warnf("Rate limited sending lead %s, retry %d/%d in %s", lead.ID, attempt, d.cfg.MaxRetries, backoff)
			d.sleep(backoff)
		}

		err = d.notifier.SendLead(ctx, creds, lead)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrRateLimited) {
			return err
		}
	}
	return err
}

// markSent flips the lead in the store and mirrors the flag to the
// sheet. A sheet failure is logged but the store flag stays set so the
// lead is not delivered twice.
func (d *Dispatcher) markSent(ctx context.Context, lead models.Lead) {
	if _, err := d.store.MarkSentByID(lead.ID, true); err != nil {
		logrus.Errorf("Failed to mark lead %s as sent: %v", lead.ID, err)
		return
	}

	id := d.spreadsheetID()
	if id == "" {
		return
	}
	if err := d.mirror.UpdateLeadSent(ctx, id, lead.OriginalIndex, true); err != nil {
		logrus.Warnf("Failed to mirror sent flag for lead %s: %v", lead.ID, err)
	}
}
