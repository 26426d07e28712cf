package models

import (
	"time"

	"github.com/google/uuid"
)

// Usage record statuses.
const (
	UsageStatusSuccess = "success"
	UsageStatusError   = "error"
	UsageStatusTimeout = "timeout"
)

// UsageRecord is one row per AI provider attempt, success or failure.
// Append-only; aggregated on read for cost dashboards.
type UsageRecord struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`

	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Operation string `json:"operation"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	DurationMs   int64   `json:"duration_ms"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UsageTotals is an aggregate over usage records. Zero records aggregate to
// zeroed totals, not an error.
type UsageTotals struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
