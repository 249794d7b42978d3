package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GeminiDefaultModel = "gemini-2.0-flash"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// It also serves OpenAI-compatible providers such as Gemini and DeepSeek.
type OpenAILLM struct {
	Model         string
	Temperature   float64
	MaxInputBytes int
	client        openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key missing; provide llm.api_key")
	}
	model := cfg.Model
	baseURL := cfg.BaseURL
	if cfg.Provider == "gemini" {
		if model == "" {
			model = GeminiDefaultModel
		}
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}
	// One request per Complete call: the SDK retries are turned off.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAILLM{
		Model:         model,
		Temperature:   cfg.Temperature,
		MaxInputBytes: cfg.MaxInputBytes,
		client:        openai.NewClient(opts...),
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
		openai.UserMessage(truncateInput(prompt.User, o.MaxInputBytes)),
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if o.Temperature > 0 {
		params.Temperature = openai.Float(o.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", o.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
