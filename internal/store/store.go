package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
)

// MirrorReader is the slice of the sheet mirror the store needs for its
// lazy initial pull.
type MirrorReader interface {
	ReadLeads(ctx context.Context, spreadsheetID string) ([]models.Lead, error)
}

// LeadStore is the single source of truth for leads within the process
// lifetime. On first read it pulls once from the sheet mirror, then treats
// itself as authoritative until explicitly cleared.
//
// A mutex guards the slice: the scan scheduler's merge path, the dispatch
// cron's mark-sent path and the HTTP surface all run on separate goroutines.
type LeadStore struct {
	mirror        MirrorReader
	spreadsheetID func() string

	mu           sync.RWMutex
	leads        []models.Lead
	initialized  bool
	lastAnalysis *time.Time
}

// NewLeadStore creates a lead store. spreadsheetID resolves the current
// mirror spreadsheet at call time so settings changes take effect without a
// restart.
func NewLeadStore(mirror MirrorReader, spreadsheetID func() string) *LeadStore {
	return &LeadStore{
		mirror:        mirror,
		spreadsheetID: spreadsheetID,
	}
}

// ensureInitialized performs the one-shot lazy pull from the mirror. The
// read happens outside the lock; the merge re-checks the flag after
// resuming so a concurrent initialization is not clobbered.
func (s *LeadStore) ensureInitialized(ctx context.Context) {
	s.mu.RLock()
	done := s.initialized
	s.mu.RUnlock()
	if done || s.mirror == nil {
		return
	}

	sheetLeads, err := s.mirror.ReadLeads(ctx, s.spreadsheetID())
	if err != nil {
		logrus.Warnf("Failed to pull leads from sheet mirror, keeping local state: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}

	// Local status fields win over the mirror's copy
	existing := make(map[string]models.Lead, len(s.leads))
	for _, lead := range s.leads {
		existing[lead.MergeKey()] = lead
	}
	for i := range sheetLeads {
		if local, ok := existing[sheetLeads[i].MergeKey()]; ok {
			sheetLeads[i].ID = local.ID
			sheetLeads[i].Sent = local.Sent
			sheetLeads[i].Contacted = local.Contacted
			sheetLeads[i].ContactDate = local.ContactDate
		}
	}

	s.leads = sheetLeads
	s.initialized = true
	logrus.Infof("Loaded %d leads from sheet mirror", len(sheetLeads))
}

// MergeIncoming reconciles a fresh analysis result against the store.
// Matching leads (same channel, username and message text) keep their
// identity and status fields and only refresh the descriptive ones; new
// leads are appended with status defaults. Existing leads absent from the
// new batch are preserved. The store is never replaced wholesale.
func (s *LeadStore) MergeIncoming(ctx context.Context, incoming []models.Lead) {
	s.ensureInitialized(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]int, len(s.leads))
	for i, lead := range s.leads {
		existing[lead.MergeKey()] = i
	}

	added := 0
	for _, lead := range incoming {
		if i, ok := existing[lead.MergeKey()]; ok {
			current := &s.leads[i]
			current.Reason = lead.Reason
			current.Confidence = lead.Confidence
			current.Timestamp = lead.Timestamp
			current.Name = lead.Name
			continue
		}
		lead.Sent = false
		lead.Contacted = false
		lead.ContactDate = nil
		s.leads = append(s.leads, lead)
		existing[lead.MergeKey()] = len(s.leads) - 1
		added++
	}

	now := time.Now()
	s.lastAnalysis = &now
	logrus.Infof("Merged analysis result: %d incoming, %d new, %d total", len(incoming), added, len(s.leads))
}

// MarkSentByID flips the sent flag for the lead with the given stable ID
// and returns its current positional index for sheet row mapping. Calling
// it twice with the same arguments is a no-op the second time.
func (s *LeadStore) MarkSentByID(id string, sent bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.leads {
		if s.leads[i].ID == id {
			s.leads[i].Sent = sent
			return i, nil
		}
	}
	return 0, &models.LeadNotFoundError{Ref: id}
}

// MarkSentByIndex flips the sent flag by positional index. Indices are only
// valid for the read they were captured on; stale ones fail rather than
// touching the wrong lead silently.
func (s *LeadStore) MarkSentByIndex(index int, sent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.leads) {
		return &models.LeadNotFoundError{Ref: fmt.Sprintf("index %d", index)}
	}
	s.leads[index].Sent = sent
	return nil
}

// ListAll returns a snapshot of all leads with positional indices captured
// at read time.
func (s *LeadStore) ListAll(ctx context.Context) []models.Lead {
	s.ensureInitialized(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Lead, len(s.leads))
	copy(out, s.leads)
	for i := range out {
		out[i].OriginalIndex = i
	}
	return out
}

// ListUnsent returns leads whose sent flag is not set. A lead that never
// had the flag counts as unsent.
func (s *LeadStore) ListUnsent(ctx context.Context) []models.Lead {
	all := s.ListAll(ctx)
	unsent := all[:0:0]
	for _, lead := range all {
		if !lead.Sent {
			unsent = append(unsent, lead)
		}
	}
	return unsent
}

// Stats summarizes the store contents
func (s *LeadStore) Stats(ctx context.Context) models.LeadStats {
	all := s.ListAll(ctx)

	stats := models.LeadStats{
		TotalLeads:          len(all),
		ChannelDistribution: make(map[string]int),
	}
	s.mu.RLock()
	stats.LastAnalysisTime = s.lastAnalysis
	s.mu.RUnlock()

	if len(all) == 0 {
		return stats
	}

	sum := 0
	for _, lead := range all {
		sum += lead.Confidence
		stats.ChannelDistribution[lead.Channel]++
	}
	stats.AverageConfidence = float64(sum) / float64(len(all))
	return stats
}

// Clear resets the store and re-arms the lazy mirror pull
func (s *LeadStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = nil
	s.initialized = false
	s.lastAnalysis = nil
	logrus.Info("Lead store cleared")
}
