package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/models"
)

func chunkOf(ids ...int64) []models.Message {
	msgs := make([]models.Message, len(ids))
	for i, id := range ids {
		msgs[i] = models.Message{
			ID:        id,
			ChatTitle: "Test Chat",
			Username:  "alice",
			Text:      "need a website built",
			Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return msgs
}

func TestParseResponseHappyPath(t *testing.T) {
	c := New(testConfig())
	content := "Here are the results:\n```json\n" +
		`{"leads": [{"messageId": "7", "reason": "asked for a quote", "confidence": 85}]}` +
		"\n```"

	leads := c.parseResponse(content, chunkOf(7))
	assert.Len(t, leads, 1)
	assert.Equal(t, "Test Chat", leads[0].Channel)
	assert.Equal(t, "alice", leads[0].Username)
	assert.Equal(t, 85, leads[0].Confidence)
	assert.NotEmpty(t, leads[0].ID)
}

func TestParseResponseNumericMessageID(t *testing.T) {
	c := New(testConfig())
	content := `{"leads": [{"messageId": 7, "reason": "asked for a quote", "confidence": 85}]}`

	leads := c.parseResponse(content, chunkOf(7))
	assert.Len(t, leads, 1)
}

func TestParseResponseRepairsTrailingCommas(t *testing.T) {
	c := New(testConfig())
	content := `{"leads": [{"messageId": "7", "reason": "asked for a quote", "confidence": 85,},]}`

	leads := c.parseResponse(content, chunkOf(7))
	assert.Len(t, leads, 1)
}

func TestParseResponseUnknownMessageSkipped(t *testing.T) {
	c := New(testConfig())
	content := `{"leads": [{"messageId": "999", "reason": "asked for a quote", "confidence": 85}]}`

	leads := c.parseResponse(content, chunkOf(7))
	assert.Empty(t, leads)
}

func TestParseResponseGarbageDegradesToEmpty(t *testing.T) {
	c := New(testConfig())
	assert.Empty(t, c.parseResponse("no json here at all", chunkOf(7)))
	assert.Empty(t, c.parseResponse(`{"leads": [{"broken"`, chunkOf(7)))
}

func TestConfidenceDefaultsAndClamping(t *testing.T) {
	c := New(testConfig())

	content := `{"leads": [{"messageId": "7", "reason": "asked for a quote"}]}`
	leads := c.parseResponse(content, chunkOf(7))
	assert.Len(t, leads, 1)
	assert.Equal(t, 50, leads[0].Confidence, "absent confidence defaults to 50")

	content = `{"leads": [{"messageId": "7", "reason": "asked for a quote", "confidence": 150}]}`
	leads = c.parseResponse(content, chunkOf(7))
	assert.Len(t, leads, 1)
	assert.Equal(t, 100, leads[0].Confidence)
}

func TestRelevanceFilter(t *testing.T) {
	c := New(testConfig())

	conf := func(v int) *int { return &v }

	cases := []struct {
		name string
		cand candidateLead
		want bool
	}{
		{"empty reason", candidateLead{Reason: "  "}, false},
		{"irrelevance marker", candidateLead{Reason: "This message is not relevant", Confidence: conf(90)}, false},
		{"no match marker", candidateLead{Reason: "No match with the criteria", Confidence: conf(90)}, false},
		{"below floor", candidateLead{Reason: "weak signal", Confidence: conf(10)}, false},
		{"at floor", candidateLead{Reason: "asked about pricing", Confidence: conf(30)}, true},
		{"absent confidence passes", candidateLead{Reason: "asked about pricing"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.isRelevant(tc.cand))
		})
	}
}
