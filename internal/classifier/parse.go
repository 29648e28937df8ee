package classifier

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
)

var (
	jsonBlockRe     = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// irrelevanceMarkers disqualify a lead whose reason explicitly says the
// message does not match, regardless of confidence.
var irrelevanceMarkers = []string{
	"not relevant",
	"irrelevant",
	"does not match",
	"no match",
}

// flexibleID tolerates both numeric and string message IDs in model output
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type candidateLead struct {
	MessageID  flexibleID `json:"messageId"`
	Reason     string     `json:"reason"`
	Confidence *int       `json:"confidence"`
}

type modelResponse struct {
	Leads []candidateLead `json:"leads"`
}

// parseResponse extracts lead candidates from free-form model output. The
// model is expected to embed a JSON object with a leads array; anything
// unrecoverable degrades to zero leads, never an error.
func (c *Classifier) parseResponse(content string, chunk []models.Message) []models.Lead {
	resp, err := extractLeadsJSON(content)
	if err != nil {
		logrus.Warnf("Failed to parse classifier response: %v", err)
		return nil
	}

	byID := make(map[string]models.Message, len(chunk))
	for _, m := range chunk {
		byID[strconv.FormatInt(m.ID, 10)] = m
	}

	var leads []models.Lead
	for _, cand := range resp.Leads {
		if !c.isRelevant(cand) {
			logrus.Debugf("Filtered out candidate %s (reason %q, confidence %v)", cand.MessageID, cand.Reason, cand.Confidence)
			continue
		}

		src, ok := byID[string(cand.MessageID)]
		if !ok {
			logrus.Warnf("Original message not found for candidate %s", cand.MessageID)
			continue
		}

		confidence := 50
		if cand.Confidence != nil {
			confidence = clamp(*cand.Confidence, 0, 100)
		}

		leads = append(leads, models.Lead{
			ID:         newLeadID(),
			Channel:    src.ChatTitle,
			Name:       src.Author(),
			Username:   src.Username,
			Message:    src.Text,
			Timestamp:  src.Timestamp,
			Reason:     cand.Reason,
			Confidence: confidence,
		})
	}
	return leads
}

// isRelevant applies the soft relevance filter: non-empty reason, no
// explicit irrelevance marker, confidence at or above the floor (absent
// confidence passes).
func (c *Classifier) isRelevant(cand candidateLead) bool {
	reason := strings.TrimSpace(cand.Reason)
	if reason == "" {
		return false
	}

	lowered := strings.ToLower(reason)
	for _, marker := range irrelevanceMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}

	return cand.Confidence == nil || *cand.Confidence >= c.cfg.MinConfidence
}

// extractLeadsJSON pulls the first JSON object out of free text and repairs
// the common model formatting mistakes (trailing commas, stray newlines)
// before unmarshaling.
func extractLeadsJSON(content string) (*modelResponse, error) {
	block := jsonBlockRe.FindString(content)
	if block == "" {
		return nil, &models.ParseError{Msg: "no JSON object in response"}
	}

	cleaned := trailingCommaRe.ReplaceAllString(block, "$1")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	var resp modelResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, &models.ParseError{Msg: "malformed JSON in response: " + err.Error()}
	}
	return &resp, nil
}

func newLeadID() string {
	return "lead_" + uuid.NewString()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
