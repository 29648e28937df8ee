package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

const (
	sentMarkerYes = "Yes"
	sentMarkerNo  = "No"
)

var messageHeaders = []interface{}{"Timestamp", "Chat", "Username", "First Name", "Last Name", "User ID", "Message", "Chat ID"}
var leadHeaders = []interface{}{"Timestamp", "Name", "Username", "Channel", "Message", "Reason", "Confidence", "Sent"}

// Mirror is the spreadsheet-backed copy of messages and leads. When no
// usable credentials are configured it runs in mock mode: writes are
// logged and dropped, reads return nothing.
type Mirror struct {
	cfg *config.SheetsConfig

	mu  sync.Mutex
	svc *sheetsapi.Service
}

// NewMirror creates a sheet mirror from static config. The service is built
// lazily so runtime credentials (from the settings sheet or settings store)
// can take over before the first call.
func NewMirror(cfg *config.SheetsConfig) *Mirror {
	m := &Mirror{cfg: cfg}
	if cfg.ServiceAccountEmail != "" && cfg.PrivateKey != "" {
		if err := m.Initialize(models.SheetsCredentials{
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			PrivateKey:          cfg.PrivateKey,
		}); err != nil {
			logrus.Warnf("Sheets mirror init from config failed, staying in mock mode: %v", err)
		}
	}
	return m
}

// Initialize (re)builds the Sheets service from service-account credentials.
// Placeholder credentials leave the mirror in mock mode.
func (m *Mirror) Initialize(creds models.SheetsCredentials) error {
	if isPlaceholderCreds(creds) {
		logrus.Info("Sheets mirror running in mock mode")
		return nil
	}

	conf := &jwt.Config{
		Email:      creds.ServiceAccountEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheetsapi.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	ctx := context.Background()
	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return fmt.Errorf("failed to create sheets service: %w", err)
	}

	m.mu.Lock()
	m.svc = svc
	m.mu.Unlock()
	logrus.Info("Sheets mirror initialized")
	return nil
}

// IsInitialized reports whether real Sheets calls will be made
func (m *Mirror) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.svc != nil
}

func (m *Mirror) service() *sheetsapi.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.svc
}

// AppendMessages appends scanned messages to the messages sheet
func (m *Mirror) AppendMessages(ctx context.Context, spreadsheetID string, messages []models.Message) error {
	svc := m.service()
	if svc == nil || isMockSpreadsheet(spreadsheetID) {
		logrus.Infof("Mock: would append %d messages to sheet %s", len(messages), m.cfg.MessagesSheet)
		return nil
	}

	if err := m.ensureHeaders(ctx, svc, spreadsheetID, m.cfg.MessagesSheet, messageHeaders); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(messages))
	for _, msg := range messages {
		rows = append(rows, []interface{}{
			msg.Timestamp.Format(time.RFC3339),
			msg.ChatTitle,
			msg.Username,
			msg.FirstName,
			msg.LastName,
			msg.UserID,
			msg.Text,
			msg.ChatID,
		})
	}

	return m.append(ctx, svc, spreadsheetID, m.cfg.MessagesSheet, rows)
}

// AppendLeads appends analyzed leads to the leads sheet
func (m *Mirror) AppendLeads(ctx context.Context, spreadsheetID string, leads []models.Lead) error {
	svc := m.service()
	if svc == nil || isMockSpreadsheet(spreadsheetID) {
		logrus.Infof("Mock: would append %d leads to sheet %s", len(leads), m.cfg.LeadsSheet)
		return nil
	}

	if err := m.ensureHeaders(ctx, svc, spreadsheetID, m.cfg.LeadsSheet, leadHeaders); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(leads))
	for _, lead := range leads {
		marker := sentMarkerNo
		if lead.Sent {
			marker = sentMarkerYes
		}
		rows = append(rows, []interface{}{
			lead.Timestamp.Format(time.RFC3339),
			lead.Name,
			lead.Username,
			lead.Channel,
			lead.Message,
			lead.Reason,
			lead.Confidence,
			marker,
		})
	}

	return m.append(ctx, svc, spreadsheetID, m.cfg.LeadsSheet, rows)
}

// ReadLeads reads all leads from the leads sheet. Row 1 is the header.
func (m *Mirror) ReadLeads(ctx context.Context, spreadsheetID string) ([]models.Lead, error) {
	svc := m.service()
	if svc == nil || isMockSpreadsheet(spreadsheetID) {
		return nil, nil
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, m.cfg.LeadsSheet+"!A:H").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read leads sheet: %w", err)
	}
	if len(resp.Values) <= 1 {
		return nil, nil
	}

	leads := make([]models.Lead, 0, len(resp.Values)-1)
	for i, row := range resp.Values[1:] {
		lead := models.Lead{ID: fmt.Sprintf("sheet-lead-%d", i+1)}
		if v := cell(row, 0); v != "" {
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				lead.Timestamp = ts
			}
		}
		lead.Name = cell(row, 1)
		lead.Username = cell(row, 2)
		lead.Channel = cell(row, 3)
		lead.Message = cell(row, 4)
		lead.Reason = cell(row, 5)
		if conf, err := strconv.Atoi(cell(row, 6)); err == nil {
			lead.Confidence = conf
		}
		lead.Sent = cell(row, 7) == sentMarkerYes
		leads = append(leads, lead)
	}
	return leads, nil
}

// UpdateLeadSent writes the sent marker for one lead row. rowIndex is the
// zero-based position in the lead list; +2 accounts for the header row and
// one-based sheet addressing.
func (m *Mirror) UpdateLeadSent(ctx context.Context, spreadsheetID string, rowIndex int, sent bool) error {
	svc := m.service()
	if svc == nil || isMockSpreadsheet(spreadsheetID) {
		logrus.Infof("Mock: would mark lead row %d sent=%t", rowIndex, sent)
		return nil
	}

	marker := sentMarkerNo
	if sent {
		marker = sentMarkerYes
	}

	cellRef := fmt.Sprintf("%s!H%d", m.cfg.LeadsSheet, rowIndex+2)
	_, err := svc.Spreadsheets.Values.Update(spreadsheetID, cellRef, &sheetsapi.ValueRange{
		Values: [][]interface{}{{marker}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update sent marker at %s: %w", cellRef, err)
	}
	return nil
}

// ReadSettings reads the key/value settings sheet used for dispatcher
// credentials. Missing sheet or values are not an error.
func (m *Mirror) ReadSettings(ctx context.Context, spreadsheetID string) (map[string]string, error) {
	svc := m.service()
	if svc == nil || isMockSpreadsheet(spreadsheetID) {
		return nil, nil
	}

	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, m.cfg.SettingsSheet+"!A:B").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings sheet: %w", err)
	}

	settings := make(map[string]string)
	for _, row := range resp.Values {
		key := cell(row, 0)
		if key == "" {
			continue
		}
		settings[key] = cell(row, 1)
	}
	return settings, nil
}

// ensureHeaders checks row 1 and writes headers only when missing. Header
// presence is checked, never assumed.
func (m *Mirror) ensureHeaders(ctx context.Context, svc *sheetsapi.Service, spreadsheetID, sheetName string, headers []interface{}) error {
	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, sheetName+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to check headers on %s: %w", sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	_, err = svc.Spreadsheets.Values.Update(spreadsheetID, sheetName+"!A1", &sheetsapi.ValueRange{
		Values: [][]interface{}{headers},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write headers on %s: %w", sheetName, err)
	}
	logrus.Infof("Added headers to sheet %s", sheetName)
	return nil
}

func (m *Mirror) append(ctx context.Context, svc *sheetsapi.Service, spreadsheetID, sheetName string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := svc.Spreadsheets.Values.Append(spreadsheetID, sheetName+"!A1", &sheetsapi.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append %d rows to %s: %w", len(rows), sheetName, err)
	}
	logrus.Infof("Appended %d rows to %s", len(rows), sheetName)
	return nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	s, _ := row[idx].(string)
	return s
}

func isMockSpreadsheet(id string) bool {
	return id == "" || strings.Contains(id, "mock")
}

func isPlaceholderCreds(creds models.SheetsCredentials) bool {
	if creds.ServiceAccountEmail == "" || creds.PrivateKey == "" {
		return true
	}
	return strings.Contains(creds.ServiceAccountEmail, "mock") || strings.Contains(creds.PrivateKey, "mock")
}
