package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

type fakeCompleter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, req.Messages[0].Content)

	if call < len(f.errs) && f.errs[call] != nil {
		return openai.ChatCompletionResponse{}, f.errs[call]
	}
	content := `{"leads": []}`
	if call < len(f.responses) {
		content = f.responses[call]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func testConfig() *config.OpenRouterConfig {
	return &config.OpenRouterConfig{
		BaseURL:        "https://openrouter.ai/api/v1",
		Model:          "test-model",
		MaxMessages:    5000,
		ChunkSize:      100,
		MaxPromptChars: 100000,
		ChunkDelay:     time.Millisecond,
		MinConfidence:  30,
		MaxTokens:      8192,
		RequestTimeout: time.Second,
	}
}

func newTestClassifier(cfg *config.OpenRouterConfig, fake *fakeCompleter) *Classifier {
	c := New(cfg)
	c.sleep = func(time.Duration) {}
	c.newCompleter = func(string) completer { return fake }
	return c
}

func testMessages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = models.Message{
			ID:        int64(i + 1),
			ChatTitle: "Test Chat",
			Username:  fmt.Sprintf("user%d", i+1),
			Text:      fmt.Sprintf("message %d", i+1),
			Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
	}
	return msgs
}

func TestAnalyzeRequiresSettings(t *testing.T) {
	c := newTestClassifier(testConfig(), &fakeCompleter{})

	var validationErr *models.ValidationError

	_, err := c.Analyze(context.Background(), testMessages(1), "", "key")
	assert.True(t, errors.As(err, &validationErr))

	_, err = c.Analyze(context.Background(), testMessages(1), "criteria", "")
	assert.True(t, errors.As(err, &validationErr))
}

func TestAnalyzeMockMode(t *testing.T) {
	fake := &fakeCompleter{}
	c := newTestClassifier(testConfig(), fake)

	msgs := testMessages(3)
	leads, err := c.Analyze(context.Background(), msgs, "criteria", MockAPIKey)
	assert.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, "user1", leads[0].Username)
	assert.Equal(t, "message 1", leads[0].Message)
	assert.Empty(t, fake.prompts, "mock mode must not call the model")
}

func TestAnalyzeTruncatesToMostRecent(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessages = 100
	cfg.ChunkSize = 50
	fake := &fakeCompleter{}
	c := newTestClassifier(cfg, fake)

	_, err := c.Analyze(context.Background(), testMessages(150), "criteria", "key")
	assert.NoError(t, err)

	assert.Len(t, fake.prompts, 2, "100 kept messages in chunks of 50")
	assert.Contains(t, fake.prompts[0], "ID: 51", "oldest kept message is 51")
	assert.NotContains(t, fake.prompts[0], "ID: 50\n", "messages before the cutoff are dropped")
	assert.Contains(t, fake.prompts[1], "ID: 150")
}

func TestAnalyzeSkipsInvalidMessages(t *testing.T) {
	fake := &fakeCompleter{}
	c := newTestClassifier(testConfig(), fake)

	msgs := []models.Message{
		{ID: 0, Text: "no id"},
		{ID: 5, Text: "   "},
	}
	leads, err := c.Analyze(context.Background(), msgs, "criteria", "key")
	assert.NoError(t, err)
	assert.Nil(t, leads)
	assert.Empty(t, fake.prompts)
}

func TestAnalyzeChunkErrorsAreIsolated(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 1
	fake := &fakeCompleter{
		errs: []error{errors.New("upstream 502"), nil},
		responses: []string{
			"",
			`{"leads": [{"messageId": "2", "reason": "asked for a quote", "confidence": 90}]}`,
		},
	}
	c := newTestClassifier(cfg, fake)

	leads, err := c.Analyze(context.Background(), testMessages(2), "criteria", "key")
	assert.NoError(t, err)
	assert.Len(t, leads, 1)
	assert.Equal(t, "message 2", leads[0].Message)
}

func TestAnalyzeSplitsOversizedChunk(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPromptChars = 400
	fake := &fakeCompleter{}
	c := newTestClassifier(cfg, fake)

	_, err := c.Analyze(context.Background(), testMessages(8), "criteria", "key")
	assert.NoError(t, err)
	assert.Greater(t, len(fake.prompts), 1, "one oversized chunk must be split")
	for _, prompt := range fake.prompts {
		assert.LessOrEqual(t, len(prompt), 400)
	}
}

func TestBuildPromptPlaceholder(t *testing.T) {
	c := New(testConfig())
	msgs := testMessages(1)

	prompt := c.buildPrompt(msgs, "Find leads in: ${messagesText} Respond with JSON.")
	assert.True(t, strings.HasPrefix(prompt, "Find leads in: Message 1:"))
	assert.True(t, strings.HasSuffix(prompt, "Respond with JSON."))

	prompt = c.buildPrompt(msgs, "Find leads.")
	assert.True(t, strings.HasPrefix(prompt, "Find leads.\n\nMessage 1:"))
}

func TestBuildPromptAnnotatesAuthorContext(t *testing.T) {
	c := New(testConfig())
	msgs := testMessages(2)
	msgs[1].Username = msgs[0].Username

	prompt := c.buildPrompt(msgs, "criteria")
	assert.Contains(t, prompt, "Other messages from this author in this batch:")
}
