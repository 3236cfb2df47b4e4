package translator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"book-translator/internal/logger"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAITimeout bounds a single chat completion.
	DefaultOpenAITimeout = 120 * time.Second
)

// OpenAIConfig configures an OpenAI-compatible chat backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI translates through a chat completion model.
type OpenAI struct {
	chat  model.BaseChatModel
	model string
}

// NewOpenAI creates the chat model client.
func NewOpenAI(ctx context.Context, cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOpenAITimeout
	}

	chatModelConfig := &openai.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return &OpenAI{chat: chatModel, model: cfg.Model}, nil
}

// Translate asks the model for a translation of text.
func (o *OpenAI) Translate(ctx context.Context, text, source, target string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(source, target)),
		schema.UserMessage(text),
	}

	start := time.Now()
	resp, err := o.chat.Generate(ctx, messages)
	if err != nil {
		return "", &APIError{
			Backend:    "openai",
			StatusCode: statusFromError(err),
			Message:    "chat completion failed",
			Cause:      err,
		}
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", &APIError{Backend: "openai", Message: "empty completion"}
	}

	logger.Debug("openai translation",
		logger.String("model", o.model),
		logger.Int("inputChars", len(text)),
		logger.Int("outputChars", len(content)),
		logger.Duration("elapsed", time.Since(start)))
	return content, nil
}

func buildSystemPrompt(source, target string) string {
	return fmt.Sprintf(`You are a professional literary translator.
Translate the user's text from %s to %s.

RULES:
1. Translate faithfully and completely. Do not summarize or omit anything.
2. Keep line breaks and blank lines exactly where they are.
3. Keep names, numbers and symbols unchanged.
4. Output only the translation, with no notes or explanations.`, languageName(source), languageName(target))
}

// languageName returns the English name of a language code. Plain "pt" is
// taken to mean Brazilian Portuguese.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if tag == language.Portuguese {
		tag = language.BrazilianPortuguese
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// statusFromError recovers the HTTP status from the client's error text.
func statusFromError(err error) int {
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}
