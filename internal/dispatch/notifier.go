package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/models"
)

// Notifier delivers a single lead card to a Telegram channel.
type Notifier interface {
	SendLead(ctx context.Context, creds Credentials, lead models.Lead) error
}

// TelegramNotifier sends lead cards through the Bot API. Bot clients
// are cached per token because constructing one performs a getMe call.
type TelegramNotifier struct {
	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

// NewTelegramNotifier creates a Bot API backed notifier.
func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{bots: make(map[string]*tgbotapi.BotAPI)}
}

// SendLead formats and sends one lead. Placeholder credentials switch
// to a logged no-op so local runs work without a real bot. Rate limit
// responses are wrapped in ErrRateLimited for the retry loop.
func (n *TelegramNotifier) SendLead(ctx context.Context, creds Credentials, lead models.Lead) error {
	if isPlaceholderToken(creds.BotToken) || isPlaceholderChannel(creds.ChannelID) {
		logrus.Infof("Mock dispatch of lead %s to channel %s", lead.ID, creds.ChannelID)
		return nil
	}

	bot, err := n.bot(creds.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot client: %w", err)
	}

	text := FormatLeadMessage(lead)
	var msg tgbotapi.MessageConfig
	if chatID, perr := strconv.ParseInt(creds.ChannelID, 10, 64); perr == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(creds.ChannelID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := bot.Send(msg); err != nil {
		if isRateLimited(err) {
			return fmt.Errorf("%w: %v", models.ErrRateLimited, err)
		}
		return fmt.Errorf("failed to send lead %s: %w", lead.ID, err)
	}
	return nil
}

func (n *TelegramNotifier) bot(token string) (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if bot, ok := n.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	n.bots[token] = bot
	return bot, nil
}

// FormatLeadMessage renders the channel card for a lead.
func FormatLeadMessage(lead models.Lead) string {
	var b strings.Builder
	b.WriteString("<b>New lead</b>\n\n")
	b.WriteString(fmt.Sprintf("<b>Name:</b> %s", escape(lead.Name)))
	if lead.Username != "" {
		b.WriteString(fmt.Sprintf(" (@%s)", escape(lead.Username)))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("<b>Channel:</b> %s\n", escape(lead.Channel)))
	b.WriteString(fmt.Sprintf("<b>Time:</b> %s\n", lead.Timestamp.Format(time.RFC1123)))
	b.WriteString(fmt.Sprintf("<b>Confidence:</b> %d%%\n", lead.Confidence))
	if lead.Reason != "" {
		b.WriteString(fmt.Sprintf("<b>Reason:</b> %s\n", escape(lead.Reason)))
	}
	b.WriteString(fmt.Sprintf("\n<i>%s</i>", escape(lead.Message)))
	return b.String()
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func isRateLimited(err error) bool {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 429 {
		return true
	}
	return strings.Contains(err.Error(), "Too Many Requests")
}

func isPlaceholderToken(token string) bool {
	switch token {
	case "", "test_bot_token", "your_bot_token_here", "mock_bot_token_12345":
		return true
	}
	return strings.Contains(strings.ToLower(token), "mock")
}

func isPlaceholderChannel(channel string) bool {
	switch channel {
	case "", "test_channel", "your_channel_id_here", "@mock_channel":
		return true
	}
	return strings.Contains(strings.ToLower(channel), "mock")
}
