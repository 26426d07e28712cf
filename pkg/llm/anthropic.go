package llm

import (
	"context"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	Model     string // Model name, e.g., "claude-sonnet-4-5-20250929"
	APIKey    string // Empty means the provider is unconfigured
	MaxTokens int    // Output token cap per call; defaults to 4096
}

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	apiKey    string
	maxTokens int
	logger    *zap.Logger
}

// NewAnthropicProvider creates an Anthropic-backed provider.
func NewAnthropicProvider(cfg *AnthropicConfig, logger *zap.Logger) *AnthropicProvider {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(cfg.APIKey),
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		maxTokens: maxTokens,
		logger:    logger.Named("llm-anthropic"),
	}
}

// GenerateContent implements Provider.
func (p *AnthropicProvider) GenerateContent(ctx context.Context, input string, operationTag string) (*GenerateResult, error) {
	p.logger.Debug("provider request",
		zap.String("model", p.model),
		zap.String("operation", operationTag),
		zap.Int("prompt_len", len(input)))

	start := time.Now()

	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &input},
			}},
		},
	})
	if err != nil {
		p.logger.Warn("provider request failed",
			zap.String("operation", operationTag),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, NewError(ErrorTypeOutput, "no text block in response", false, nil)
	}

	p.logger.Info("provider request completed",
		zap.String("operation", operationTag),
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &GenerateResult{
		Content:      content,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model implements Provider.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Configured implements Provider.
func (p *AnthropicProvider) Configured() bool {
	return p.apiKey != ""
}
