package models

import "time"

// HealthStatus is the last-known status of a provider or service.
type HealthStatus string

const (
	HealthOnline   HealthStatus = "online"
	HealthDegraded HealthStatus = "degraded"
	HealthError    HealthStatus = "error"
	// HealthUnconfigured marks a provider that was skipped because it has
	// no credentials. Not a failure state.
	HealthUnconfigured HealthStatus = "unconfigured"
)

// APIHealth is the current health of one provider/service. Overwritten on
// every call completion; it represents current state, not history.
type APIHealth struct {
	Service     string        `json:"service"`
	Status      HealthStatus  `json:"status"`
	LastLatency time.Duration `json:"last_latency"`
	LastChecked time.Time     `json:"last_checked"`
	LastError   string        `json:"last_error,omitempty"`
}
