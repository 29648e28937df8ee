package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/models"
)

type fakeMirror struct {
	leads []models.Lead
	err   error
	reads int
}

func (f *fakeMirror) ReadLeads(ctx context.Context, spreadsheetID string) ([]models.Lead, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Lead, len(f.leads))
	copy(out, f.leads)
	return out, nil
}

func testLead(id, username, message string) models.Lead {
	return models.Lead{
		ID:         id,
		Channel:    "Test Chat",
		Name:       "Alice",
		Username:   username,
		Message:    message,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Reason:     "asked for a quote",
		Confidence: 70,
	}
}

func noSpreadsheet() string { return "" }

func TestMergeAppendsNewLeads(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()

	s.MergeIncoming(ctx, []models.Lead{testLead("a", "alice", "need a website")})
	s.MergeIncoming(ctx, []models.Lead{testLead("b", "bob", "looking for a developer")})

	all := s.ListAll(ctx)
	assert.Len(t, all, 2)
	assert.Equal(t, 0, all[0].OriginalIndex)
	assert.Equal(t, 1, all[1].OriginalIndex)
}

func TestMergePreservesSentFlag(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()

	s.MergeIncoming(ctx, []models.Lead{testLead("a", "alice", "need a website")})
	_, err := s.MarkSentByID("a", true)
	assert.NoError(t, err)

	// Re-analysis finds the same message with fresh reason and confidence
	update := testLead("different-id", "alice", "need a website")
	update.Reason = "explicit purchase intent"
	update.Confidence = 95
	update.Sent = false
	s.MergeIncoming(ctx, []models.Lead{update})

	all := s.ListAll(ctx)
	assert.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID, "stable ID survives re-analysis")
	assert.True(t, all[0].Sent, "sent flag survives re-analysis")
	assert.Equal(t, "explicit purchase intent", all[0].Reason)
	assert.Equal(t, 95, all[0].Confidence)
}

func TestMarkSentByIDIdempotent(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()
	s.MergeIncoming(ctx, []models.Lead{testLead("a", "alice", "need a website")})

	idx, err := s.MarkSentByID("a", true)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = s.MarkSentByID("a", true)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, s.ListAll(ctx)[0].Sent)
}

func TestMarkSentByIDNotFound(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)

	_, err := s.MarkSentByID("missing", true)
	var notFound *models.LeadNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestMarkSentByIndexBounds(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()
	s.MergeIncoming(ctx, []models.Lead{testLead("a", "alice", "need a website")})

	assert.NoError(t, s.MarkSentByIndex(0, true))
	assert.Error(t, s.MarkSentByIndex(1, true))
	assert.Error(t, s.MarkSentByIndex(-1, true))
}

func TestListUnsent(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()

	s.MergeIncoming(ctx, []models.Lead{
		testLead("a", "alice", "need a website"),
		testLead("b", "bob", "looking for a developer"),
		testLead("c", "carol", "any agencies here?"),
	})
	_, err := s.MarkSentByID("b", true)
	assert.NoError(t, err)

	unsent := s.ListUnsent(ctx)
	assert.Len(t, unsent, 2)
	for _, lead := range unsent {
		assert.False(t, lead.Sent)
	}
	// Positional indices reflect the full list, not the filtered one
	assert.Equal(t, 0, unsent[0].OriginalIndex)
	assert.Equal(t, 2, unsent[1].OriginalIndex)
}

func TestLazyPullFromMirror(t *testing.T) {
	mirror := &fakeMirror{leads: []models.Lead{testLead("sheet-lead-1", "alice", "need a website")}}
	s := NewLeadStore(mirror, noSpreadsheet)
	ctx := context.Background()

	all := s.ListAll(ctx)
	assert.Len(t, all, 1)
	assert.Equal(t, 1, mirror.reads)

	// Subsequent reads do not hit the mirror again
	s.ListAll(ctx)
	assert.Equal(t, 1, mirror.reads)
}

func TestMirrorFailureKeepsLocalState(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("sheet unavailable")}
	s := NewLeadStore(mirror, noSpreadsheet)
	ctx := context.Background()

	s.MergeIncoming(ctx, []models.Lead{testLead("a", "alice", "need a website")})
	assert.Len(t, s.ListAll(ctx), 1)

	// Pull stays armed until it succeeds
	mirror.err = nil
	mirror.leads = []models.Lead{testLead("sheet-lead-1", "bob", "other lead")}
	assert.Len(t, s.ListAll(ctx), 1)
}

func TestClearRearmsMirrorPull(t *testing.T) {
	mirror := &fakeMirror{leads: []models.Lead{testLead("sheet-lead-1", "alice", "need a website")}}
	s := NewLeadStore(mirror, noSpreadsheet)
	ctx := context.Background()

	s.ListAll(ctx)
	s.Clear()
	s.ListAll(ctx)
	assert.Equal(t, 2, mirror.reads)
}

func TestStats(t *testing.T) {
	s := NewLeadStore(nil, noSpreadsheet)
	ctx := context.Background()

	stats := s.Stats(ctx)
	assert.Equal(t, 0, stats.TotalLeads)
	assert.Nil(t, stats.LastAnalysisTime)

	a := testLead("a", "alice", "need a website")
	a.Confidence = 60
	b := testLead("b", "bob", "looking for a developer")
	b.Confidence = 80
	b.Channel = "Other Chat"
	s.MergeIncoming(ctx, []models.Lead{a, b})

	stats = s.Stats(ctx)
	assert.Equal(t, 2, stats.TotalLeads)
	assert.InDelta(t, 70.0, stats.AverageConfidence, 0.001)
	assert.Equal(t, 1, stats.ChannelDistribution["Test Chat"])
	assert.Equal(t, 1, stats.ChannelDistribution["Other Chat"])
	assert.NotNil(t, stats.LastAnalysisTime)
}
