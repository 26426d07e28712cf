// Package llm provides AI provider clients and shared provider plumbing.
package llm

import (
	"context"
)

// GenerateResult is the outcome of one successful provider call.
type GenerateResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is one interchangeable AI model provider.
// Use this interface for dependency injection to enable mocking in tests.
type Provider interface {
	// GenerateContent sends the prompt and returns the model's text.
	// The operation tag is attached for logging and accounting only.
	GenerateContent(ctx context.Context, input string, operationTag string) (*GenerateResult, error)

	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string

	// Configured reports whether credentials are present. Unconfigured
	// providers are skipped by the orchestrator without a failure penalty.
	Configured() bool
}

// Ensure implementations satisfy Provider at compile time.
var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*AnthropicProvider)(nil)
	_ Provider = (*MockProvider)(nil)
)
