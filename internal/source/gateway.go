package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

// GatewayClient talks to the MTProto gateway over HTTP. Every call carries
// its own timeout; a failed history fetch degrades to an empty result at
// the caller rather than failing the whole scan.
type GatewayClient struct {
	cfg       *config.GatewayConfig
	http      *http.Client
	connected bool
}

// NewGatewayClient creates a gateway-backed message source client
func NewGatewayClient(cfg *config.GatewayConfig) *GatewayClient {
	return &GatewayClient{
		cfg:  cfg,
		http: &http.Client{},
	}
}

// Connect verifies the gateway session before the scan starts
func (c *GatewayClient) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.EntityTimeout)
	defer cancel()

	var me struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.get(ctx, "/me", nil, &me); err != nil {
		return &models.SourceConnectionError{Err: err}
	}

	c.connected = true
	logrus.Infof("Connected to message source as %s %s", me.FirstName, me.LastName)
	return nil
}

// GetEntity resolves chat metadata. Callers fall back to a synthetic title
// when this fails.
func (c *GatewayClient) GetEntity(ctx context.Context, chatID string) (*Entity, error) {
	if !c.connected {
		return nil, &models.SourceConnectionError{Err: fmt.Errorf("client not connected")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.EntityTimeout)
	defer cancel()

	var entity Entity
	if err := c.get(ctx, "/entity/"+url.PathEscape(chatID), nil, &entity); err != nil {
		return nil, fmt.Errorf("failed to get entity for chat %s: %w", chatID, err)
	}
	return &entity, nil
}

type gatewayMessage struct {
	ID        int64  `json:"id"`
	Date      int64  `json:"date"`
	Message   string `json:"message"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserID    string `json:"userId"`
}

// GetMessages fetches one bounded page of chat history
func (c *GatewayClient) GetMessages(ctx context.Context, chatID string, opts FetchOptions) ([]models.Message, error) {
	if !c.connected {
		return nil, &models.SourceConnectionError{Err: fmt.Errorf("client not connected")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.MessagesTimeout)
	defer cancel()

	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if !opts.OffsetDate.IsZero() {
		params.Set("offset_date", strconv.FormatInt(opts.OffsetDate.Unix(), 10))
	}

	var raw []gatewayMessage
	if err := c.get(ctx, "/messages/"+url.PathEscape(chatID), params, &raw); err != nil {
		return nil, fmt.Errorf("failed to get messages for chat %s: %w", chatID, err)
	}

	messages := make([]models.Message, 0, len(raw))
	for _, m := range raw {
		if m.Message == "" {
			continue
		}
		userID := m.UserID
		if userID == "" {
			// System messages carry no sender
			userID = "system"
		}
		messages = append(messages, models.Message{
			ID:        m.ID,
			ChatID:    chatID,
			UserID:    userID,
			Username:  m.Username,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Text:      m.Message,
			Timestamp: time.Unix(m.Date, 0),
		})
	}
	return messages, nil
}

// Close releases the gateway session
func (c *GatewayClient) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.EntityTimeout)
	defer cancel()
	if err := c.get(ctx, "/disconnect", nil, nil); err != nil {
		return fmt.Errorf("failed to disconnect from gateway: %w", err)
	}
	return nil
}

func (c *GatewayClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Session-String", c.cfg.SessionString)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
