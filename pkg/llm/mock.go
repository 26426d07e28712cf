package llm

import (
	"context"
)

// MockProvider is a configurable mock for testing orchestration.
// Set the function field to control behavior in tests.
type MockProvider struct {
	// GenerateContentFunc is called when GenerateContent is invoked.
	// If nil, returns an empty result and nil error.
	GenerateContentFunc func(ctx context.Context, input string, operationTag string) (*GenerateResult, error)

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Unconfigured makes Configured return false.
	Unconfigured bool

	// Call tracking for verification
	GenerateContentCalls int
	LastInput            string
	LastOperation        string
}

// NewMockProvider creates a new mock with sensible defaults.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ProviderName: "mock",
		ModelName:    "mock-model",
	}
}

// GenerateContent implements Provider.
func (m *MockProvider) GenerateContent(ctx context.Context, input string, operationTag string) (*GenerateResult, error) {
	m.GenerateContentCalls++
	m.LastInput = input
	m.LastOperation = operationTag
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, input, operationTag)
	}
	return &GenerateResult{}, nil
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Configured implements Provider.
func (m *MockProvider) Configured() bool {
	return !m.Unconfigured
}

// Reset clears call tracking.
func (m *MockProvider) Reset() {
	m.GenerateContentCalls = 0
	m.LastInput = ""
	m.LastOperation = ""
}
