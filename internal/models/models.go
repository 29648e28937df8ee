package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Message represents a single chat message pulled during a scan
type Message struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chatId"`
	ChatTitle string    `json:"chatTitle"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Author returns the best available display name for the sender.
func (m Message) Author() string {
	if m.Username != "" {
		return m.Username
	}
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name != "" {
		return name
	}
	return "Unknown Author"
}

// HasUsername reports whether the sender's username could be resolved.
// Messages without one (system messages etc.) are tracked but excluded
// from the sheet mirror.
func (m Message) HasUsername() bool {
	return strings.TrimSpace(m.Username) != ""
}

// Lead represents a message classified as a sales opportunity
type Lead struct {
	ID          string     `json:"id"`
	Channel     string     `json:"channel"`
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Message     string     `json:"message"`
	Timestamp   time.Time  `json:"timestamp"`
	Reason      string     `json:"reason"`
	Confidence  int        `json:"confidence"`
	Sent        bool       `json:"sent"`
	Contacted   bool       `json:"contacted"`
	ContactDate *time.Time `json:"contactDate,omitempty"`

	// OriginalIndex is a derived view: the lead's position in the store at
	// the moment it was read. It is recomputed on every read and only used
	// for spreadsheet row mapping; all mutations address leads by ID.
	OriginalIndex int `json:"originalIndex"`
}

// MergeKey identifies the same lead across repeated analysis runs.
// Timestamp is deliberately excluded so a re-analysis of the same message
// reconciles with the stored copy instead of duplicating it.
func (l Lead) MergeKey() string {
	return l.Channel + "_" + l.Username + "_" + l.Message
}

// DedupeKey identifies exact duplicates within one dispatch batch.
func (l Lead) DedupeKey() string {
	return l.Name + "_" + l.Channel + "_" + l.Timestamp.UTC().Format(time.RFC3339) + "_" + l.Message
}

// ScanRecord is one entry of the bounded scan history
type ScanRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	Duration       time.Duration `json:"duration"`
	TotalMessages  int           `json:"totalMessages"`
	ChatsProcessed int           `json:"chatsProcessed"`
	Errors         int           `json:"errors"`
	Success        bool          `json:"success"`
}

// ScannerStatus is the process-wide scanner state snapshot
type ScannerStatus struct {
	IsRunning     bool       `json:"isRunning"`
	LastScan      *time.Time `json:"lastScan"`
	NextScan      *time.Time `json:"nextScan"`
	TotalScans    int        `json:"totalScans"`
	TotalMessages int        `json:"totalMessages"`
	Errors        []string   `json:"errors"`
}

// PendingAnalysis describes one outstanding deferred-analysis timer
type PendingAnalysis struct {
	ID                int64     `json:"id"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpectedTriggerAt time.Time `json:"expectedTriggerAt"`
}

// SheetsCredentials holds the service-account pair for the sheet mirror
type SheetsCredentials struct {
	ServiceAccountEmail string `json:"serviceAccountEmail"`
	PrivateKey          string `json:"privateKey"`
}

// DispatchStatus describes the dispatch cron for the status endpoint
type DispatchStatus struct {
	Running  bool       `json:"running"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"lastRun,omitempty"`
	NextRun  *time.Time `json:"nextRun,omitempty"`
}

// GlobalSettings is the persisted, write-through settings blob
type GlobalSettings struct {
	OpenRouterAPIKey  string             `json:"openrouterApiKey,omitempty"`
	LeadCriteria      string             `json:"leadCriteria,omitempty"`
	SpreadsheetID     string             `json:"spreadsheetId,omitempty"`
	SheetsConfig      *SheetsCredentials `json:"sheetsConfig,omitempty"`
	TelegramBotToken  string             `json:"telegramBotToken,omitempty"`
	TelegramChannelID string             `json:"telegramChannelId,omitempty"`
}

// HasAISettings reports whether automatic analysis can run at all.
func (s GlobalSettings) HasAISettings() bool {
	return s.OpenRouterAPIKey != "" && s.LeadCriteria != ""
}

// ScanInterval accepts either a numeric hour count or a string like
// "1h"/"30m" in JSON requests. Parsing to a duration happens in the
// scanner package; unparsable values silently fall back to one hour.
type ScanInterval struct {
	Raw string
}

// UnmarshalJSON keeps the raw token so both 2 and "2h" survive decoding.
func (s *ScanInterval) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Raw = str
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	s.Raw = strconv.FormatFloat(num, 'f', -1, 64)
	return nil
}

// IsZero reports whether no interval was supplied at all.
func (s ScanInterval) IsZero() bool {
	return s.Raw == ""
}

// LeadAnalysisSettings carries AI settings in scan requests
type LeadAnalysisSettings struct {
	OpenRouterAPIKey string `json:"openrouterApiKey"`
	LeadCriteria     string `json:"leadCriteria"`
}

// StartScanRequest is the payload for starting or running a scan
type StartScanRequest struct {
	ScanInterval         ScanInterval          `json:"scanInterval"`
	SelectedChats        []string              `json:"selectedChats"`
	SheetsConfig         *SheetsCredentials    `json:"sheetsConfig"`
	SpreadsheetID        string                `json:"spreadsheetId"`
	LeadAnalysisSettings *LeadAnalysisSettings `json:"leadAnalysisSettings"`
}

// UpdateSentRequest addresses a lead either by stable ID or by positional
// index captured at read time.
type UpdateSentRequest struct {
	LeadID json.RawMessage `json:"leadId"`
	Sent   bool            `json:"sent"`
}

// LeadStats summarizes the current store contents
type LeadStats struct {
	TotalLeads          int            `json:"totalLeads"`
	LastAnalysisTime    *time.Time     `json:"lastAnalysisTime"`
	AverageConfidence   float64        `json:"averageConfidence"`
	ChannelDistribution map[string]int `json:"channelDistribution"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
