package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig holds configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	Name     string // Provider identifier used in routing and accounting
	Endpoint string // Base URL, e.g., "https://api.openai.com/v1"
	Model    string // Model name, e.g., "gpt-4o"
	APIKey   string // Empty means the provider is unconfigured
}

// OpenAIProvider calls any OpenAI-compatible chat completion endpoint.
// Besides OpenAI itself this covers every vendor exposing the same wire
// format (DeepSeek, Gemini's compatibility endpoint, local vLLM).
type OpenAIProvider struct {
	client *openai.Client
	name   string
	model  string
	apiKey string
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg *OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		name:   name,
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		logger: logger.Named("llm-" + name),
	}, nil
}

// GenerateContent implements Provider.
func (p *OpenAIProvider) GenerateContent(ctx context.Context, input string, operationTag string) (*GenerateResult, error) {
	p.logger.Debug("provider request",
		zap.String("model", p.model),
		zap.String("operation", operationTag),
		zap.Int("prompt_len", len(input)))

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: input},
		},
	})
	if err != nil {
		p.logger.Warn("provider request failed",
			zap.String("operation", operationTag),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeOutput, "no choices in response", false, nil)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, NewError(ErrorTypeOutput, "empty completion", false, nil)
	}

	p.logger.Info("provider request completed",
		zap.String("operation", operationTag),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResult{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model implements Provider.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Configured implements Provider.
func (p *OpenAIProvider) Configured() bool {
	return p.apiKey != ""
}
