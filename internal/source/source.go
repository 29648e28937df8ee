package source

import (
	"context"
	"strings"
	"time"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

// Entity describes a resolved chat
type Entity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// FetchOptions bounds one history request
type FetchOptions struct {
	Limit      int
	OffsetDate time.Time
}

// Client is the narrow interface to the message source. The connection is
// owned by one scan at a time: Connect at scan start, Close at scan end on
// both success and failure paths.
type Client interface {
	Connect(ctx context.Context) error
	GetEntity(ctx context.Context, chatID string) (*Entity, error)
	GetMessages(ctx context.Context, chatID string, opts FetchOptions) ([]models.Message, error)
	Close() error
}

// Factory produces a fresh client per scan
type Factory func() Client

// NewFactory picks the gateway client when the config is complete and the
// degraded mock source otherwise. Placeholder credentials are an explicit
// mock signal, not an error.
func NewFactory(cfg *config.GatewayConfig) Factory {
	if cfg.BaseURL != "" && cfg.SessionString != "" && !isPlaceholder(cfg.SessionString) {
		return func() Client { return NewGatewayClient(cfg) }
	}
	return func() Client { return NewMockClient() }
}

func isPlaceholder(v string) bool {
	lowered := strings.ToLower(v)
	switch lowered {
	case "mock", "test", "test_session", "your_session_string_here", "your_session":
		return true
	}
	return strings.Contains(lowered, "mock")
}
