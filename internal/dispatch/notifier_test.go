package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatLeadMessage(t *testing.T) {
	lead := dispatchLead("a", "alice")
	text := FormatLeadMessage(lead)

	assert.Contains(t, text, "Lead alice")
	assert.Contains(t, text, "(@alice)")
	assert.Contains(t, text, "Test Chat")
	assert.Contains(t, text, "80%")
	assert.Contains(t, text, "asked for a quote")
	assert.Contains(t, text, "message from alice")
}

func TestFormatLeadMessageEscapesHTML(t *testing.T) {
	lead := dispatchLead("a", "alice")
	lead.Message = "use <b>tags</b> & such"
	text := FormatLeadMessage(lead)

	assert.NotContains(t, text, "<b>tags</b>")
	assert.Contains(t, text, "&lt;b&gt;tags&lt;/b&gt;")
}

func TestPlaceholderCredentialsShortCircuit(t *testing.T) {
	n := NewTelegramNotifier()

	err := n.SendLead(context.Background(), Credentials{BotToken: "mock_bot_token_12345", ChannelID: "@channel"}, dispatchLead("a", "alice"))
	assert.NoError(t, err, "placeholder token must not hit the Bot API")

	err = n.SendLead(context.Background(), Credentials{BotToken: "real-token", ChannelID: "@mock_channel"}, dispatchLead("a", "alice"))
	assert.NoError(t, err)
}

func TestPlaceholderDetection(t *testing.T) {
	assert.True(t, isPlaceholderToken(""))
	assert.True(t, isPlaceholderToken("your_bot_token_here"))
	assert.True(t, isPlaceholderToken("something-mock-ish"))
	assert.False(t, isPlaceholderToken("123456:AAparticularlyRealToken"))

	assert.True(t, isPlaceholderChannel("@mock_channel"))
	assert.False(t, isPlaceholderChannel("@real_channel"))
}
