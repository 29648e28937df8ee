package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/config"
)

func TestFactoryPicksGatewayWhenConfigured(t *testing.T) {
	factory := NewFactory(&config.GatewayConfig{
		BaseURL:       "http://localhost:3001",
		SessionString: "1BVtsOH4Brealstring",
	})
	_, ok := factory().(*GatewayClient)
	assert.True(t, ok)
}

func TestFactoryPicksMockOnPlaceholders(t *testing.T) {
	cases := []config.GatewayConfig{
		{},
		{BaseURL: "http://localhost:3001"},
		{BaseURL: "http://localhost:3001", SessionString: "mock"},
		{BaseURL: "http://localhost:3001", SessionString: "your_session_string_here"},
		{BaseURL: "http://localhost:3001", SessionString: "my_mock_session"},
	}
	for _, cfg := range cases {
		_, ok := NewFactory(&cfg)().(*MockClient)
		assert.True(t, ok, "config %+v should select the mock source", cfg)
	}
}

func TestMockMessagesManualScan(t *testing.T) {
	c := NewMockClient()

	msgs, err := c.GetMessages(context.Background(), "1", FetchOptions{})
	assert.NoError(t, err)
	assert.Len(t, msgs, 50)
	assert.Equal(t, "1", msgs[0].ChatID)
	assert.NotEmpty(t, msgs[0].Username)
}

func TestMockMessagesWindowed(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClient()
	c.now = func() time.Time { return now }

	msgs, err := c.GetMessages(context.Background(), "1", FetchOptions{OffsetDate: now.Add(-2 * time.Hour)})
	assert.NoError(t, err)
	assert.Len(t, msgs, 10, "two hours yields the minimum batch")
	for _, m := range msgs {
		assert.False(t, m.Timestamp.Before(now.Add(-2*time.Hour)))
	}

	msgs, err = c.GetMessages(context.Background(), "1", FetchOptions{OffsetDate: now.Add(-10 * time.Hour)})
	assert.NoError(t, err)
	assert.Len(t, msgs, 50, "ten hours at five per hour")
}

func TestMockMessagesHonorLimit(t *testing.T) {
	c := NewMockClient()

	msgs, err := c.GetMessages(context.Background(), "1", FetchOptions{Limit: 7})
	assert.NoError(t, err)
	assert.Len(t, msgs, 7)
}
