package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"telegram-lead-scanner-go/internal/config"
	"telegram-lead-scanner-go/internal/models"
)

// MockAPIKey short-circuits analysis to a canned single-lead response after
// a simulated delay. This is an explicit test hook, not a heuristic.
const MockAPIKey = "mock_key"

type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Classifier turns message batches into lead candidates via the OpenRouter
// chat-completions API, with batching, prompt-size guarding and defensive
// response parsing.
type Classifier struct {
	cfg *config.OpenRouterConfig

	// injectable for deterministic tests
	sleep        func(time.Duration)
	newCompleter func(apiKey string) completer
}

// New creates a classifier with the given policy configuration
func New(cfg *config.OpenRouterConfig) *Classifier {
	c := &Classifier{
		cfg:   cfg,
		sleep: time.Sleep,
	}
	c.newCompleter = func(apiKey string) completer {
		clientCfg := openai.DefaultConfig(apiKey)
		clientCfg.BaseURL = cfg.BaseURL
		return openai.NewClientWithConfig(clientCfg)
	}
	return c
}

// Analyze classifies messages against the criteria string. Per-chunk
// failures are isolated; a fully failed analysis returns the leads found so
// far rather than an error.
func (c *Classifier) Analyze(ctx context.Context, msgs []models.Message, criteria, apiKey string) ([]models.Lead, error) {
	if strings.TrimSpace(criteria) == "" {
		return nil, models.NewValidationError("lead criteria is required")
	}
	if apiKey == "" {
		return nil, models.NewValidationError("OpenRouter API key is required")
	}

	if apiKey == MockAPIKey {
		return c.mockAnalyze(msgs), nil
	}

	msgs = c.truncate(msgs)
	msgs = filterValid(msgs)
	if len(msgs) == 0 {
		logrus.Info("No valid messages to analyze")
		return nil, nil
	}

	logrus.Infof("Starting lead analysis of %d messages", len(msgs))
	start := time.Now()

	client := c.newCompleter(apiKey)
	chunks := splitChunks(msgs, c.cfg.ChunkSize)

	var leads []models.Lead
	for i, chunk := range chunks {
		chunkLeads, err := c.analyzeChunk(ctx, client, chunk, criteria)
		if err != nil {
			logrus.Errorf("Failed to analyze chunk %d/%d: %v", i+1, len(chunks), err)
		} else {
			leads = append(leads, chunkLeads...)
		}

		// Fixed inter-request delay to respect provider rate limits
		if i < len(chunks)-1 {
			c.sleep(c.cfg.ChunkDelay)
		}
	}

	logrus.Infof("Analysis completed in %v: %d leads from %d messages", time.Since(start), len(leads), len(msgs))
	return leads, nil
}

// analyzeChunk renders one chunk into a prompt and calls the model. Chunks
// whose rendered prompt exceeds the size threshold are halved recursively.
func (c *Classifier) analyzeChunk(ctx context.Context, client completer, chunk []models.Message, criteria string) ([]models.Lead, error) {
	prompt := c.buildPrompt(chunk, criteria)
	if len(prompt) > c.cfg.MaxPromptChars && len(chunk) > 1 {
		logrus.Warnf("Prompt too long (%d chars), splitting chunk of %d further", len(prompt), len(chunk))
		mid := len(chunk) / 2
		var leads []models.Lead
		for _, half := range [][]models.Message{chunk[:mid], chunk[mid:]} {
			halfLeads, err := c.analyzeChunk(ctx, client, half, criteria)
			if err != nil {
				return leads, err
			}
			leads = append(leads, halfLeads...)
		}
		return leads, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &models.ParseError{Msg: "no choices in model response"}
	}

	return c.parseResponse(resp.Choices[0].Message.Content, chunk), nil
}

// truncate keeps only the most recent maxMessages (drops the oldest)
func (c *Classifier) truncate(msgs []models.Message) []models.Message {
	if len(msgs) <= c.cfg.MaxMessages {
		return msgs
	}
	logrus.Warnf("Too many messages (%d), limiting to %d most recent", len(msgs), c.cfg.MaxMessages)
	return msgs[len(msgs)-c.cfg.MaxMessages:]
}

func (c *Classifier) mockAnalyze(msgs []models.Message) []models.Lead {
	logrus.Info("Classifier running in mock mode")
	c.sleep(time.Second)

	lead := models.Lead{
		Channel:    "Mock Channel",
		Name:       "Mock Lead",
		Username:   "mock_user",
		Message:    "Test lead for demonstrating the pipeline",
		Timestamp:  time.Now(),
		Reason:     "Canned mock-mode lead",
		Confidence: 80,
	}
	if valid := filterValid(msgs); len(valid) > 0 {
		src := valid[0]
		lead.Channel = src.ChatTitle
		lead.Name = src.Author()
		lead.Username = src.Username
		lead.Message = src.Text
		lead.Timestamp = src.Timestamp
	}
	lead.ID = newLeadID()
	return []models.Lead{lead}
}

func filterValid(msgs []models.Message) []models.Message {
	valid := msgs[:0:0]
	for _, m := range msgs {
		if m.ID == 0 || strings.TrimSpace(m.Text) == "" {
			continue
		}
		valid = append(valid, m)
	}
	return valid
}

func splitChunks(msgs []models.Message, size int) [][]models.Message {
	var chunks [][]models.Message
	for start := 0; start < len(msgs); start += size {
		end := start + size
		if end > len(msgs) {
			end = len(msgs)
		}
		chunks = append(chunks, msgs[start:end])
	}
	return chunks
}
