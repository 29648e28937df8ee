package source

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
)

var (
	mockUsernames  = []string{"alice_user", "bob_chat", "charlie_dev", "diana_admin"}
	mockFirstNames = []string{"Alice", "Bob", "Charlie", "Diana"}
	mockLastNames  = []string{"Smith", "Johnson", "Brown", "Davis"}
	mockTexts      = []string{
		"Hello everyone!",
		"How are you doing today?",
		"Check out this new feature",
		"Meeting at 3 PM",
		"Great work on the project!",
		"Working on new updates",
		"See you tomorrow!",
		"Thanks for the help",
		"Let me know if you need anything",
		"Have a great day!",
	}
)

// MockClient is the degraded message source used when the gateway is
// unreachable or not configured. It generates deterministic sample
// messages spread over the requested window.
type MockClient struct {
	now func() time.Time
}

// NewMockClient creates a mock message source
func NewMockClient() *MockClient {
	return &MockClient{now: time.Now}
}

// Connect is a no-op for the mock source
func (c *MockClient) Connect(ctx context.Context) error {
	return nil
}

// GetEntity returns a synthetic chat entity
func (c *MockClient) GetEntity(ctx context.Context, chatID string) (*Entity, error) {
	return &Entity{ID: chatID, Title: "Test Chat " + chatID}, nil
}

// GetMessages generates sample messages. With an OffsetDate set, messages
// are spread over that window; without one (manual scans), a fixed batch
// spaced 30 minutes apart is returned.
func (c *MockClient) GetMessages(ctx context.Context, chatID string, opts FetchOptions) ([]models.Message, error) {
	now := c.now()

	total := 50
	spacing := 30 * time.Minute
	if !opts.OffsetDate.IsZero() {
		window := now.Sub(opts.OffsetDate)
		total = int(window.Hours()) * 5
		if total < 10 {
			total = 10
		}
		spacing = window / time.Duration(total)
	}
	if opts.Limit > 0 && total > opts.Limit {
		total = opts.Limit
	}

	messages := make([]models.Message, 0, total)
	for i := 0; i < total; i++ {
		ts := now.Add(-time.Duration(i) * spacing)
		if !opts.OffsetDate.IsZero() && ts.Before(opts.OffsetDate) {
			continue
		}
		user := i % len(mockUsernames)
		messages = append(messages, models.Message{
			ID:        now.UnixMilli() + int64(i),
			ChatID:    chatID,
			ChatTitle: "Test Chat " + chatID,
			UserID:    fmt.Sprintf("mock_user_%d", user+1),
			Username:  mockUsernames[user],
			FirstName: mockFirstNames[user],
			LastName:  mockLastNames[user],
			Text:      mockTexts[i%len(mockTexts)],
			Timestamp: ts,
		})
	}

	logrus.Infof("Generated %d mock messages for chat %s", len(messages), chatID)
	return messages, nil
}

// Close is a no-op for the mock source
func (c *MockClient) Close() error {
	return nil
}
