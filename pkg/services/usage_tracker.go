package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/repositories"
)

// Rate is the per-million-token price for a model.
type Rate struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// defaultRates maps "provider/model" (or bare "provider" as a fallback)
// to pricing. Unknown models record zero cost rather than failing.
var defaultRates = map[string]Rate{
	"openai/gpt-4o":               {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"openai/gpt-4o-mini":          {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"anthropic/claude-sonnet-4-0": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"anthropic":                   {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"openai":                      {InputPerMTok: 2.50, OutputPerMTok: 10.00},
	"community":                   {InputPerMTok: 0, OutputPerMTok: 0},
}

// AttemptOutcome carries the observable result of one provider attempt.
type AttemptOutcome struct {
	ProjectID    uuid.UUID
	Provider     string
	Model        string
	Operation    string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
	Status       string
	ErrorMessage string
}

// UsageTracker records one UsageRecord per provider attempt, successful or
// not, and serves cost aggregates for dashboards.
type UsageTracker interface {
	Record(ctx context.Context, outcome AttemptOutcome) (*models.UsageRecord, error)
	ProjectTotals(ctx context.Context, projectID uuid.UUID) (*models.UsageTotals, error)
	ProviderTotals(ctx context.Context) ([]repositories.ProviderTotals, error)
}

type usageTracker struct {
	repo   repositories.UsageRepository
	rates  map[string]Rate
	logger *zap.Logger
}

// NewUsageTracker creates a UsageTracker with the default rate table.
func NewUsageTracker(repo repositories.UsageRepository, logger *zap.Logger) UsageTracker {
	return &usageTracker{
		repo:   repo,
		rates:  defaultRates,
		logger: logger.Named("usage_tracker"),
	}
}

var _ UsageTracker = (*usageTracker)(nil)

func (t *usageTracker) Record(ctx context.Context, outcome AttemptOutcome) (*models.UsageRecord, error) {
	record := &models.UsageRecord{
		ID:           uuid.New(),
		ProjectID:    outcome.ProjectID,
		Provider:     outcome.Provider,
		Model:        outcome.Model,
		Operation:    outcome.Operation,
		InputTokens:  outcome.InputTokens,
		OutputTokens: outcome.OutputTokens,
		Cost:         t.cost(outcome.Provider, outcome.Model, outcome.InputTokens, outcome.OutputTokens),
		DurationMs:   outcome.Duration.Milliseconds(),
		Status:       outcome.Status,
		ErrorMessage: outcome.ErrorMessage,
		CreatedAt:    time.Now().UTC(),
	}

	if err := t.repo.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	t.logger.Debug("usage recorded",
		zap.String("provider", record.Provider),
		zap.String("operation", record.Operation),
		zap.String("status", record.Status),
		zap.Float64("cost", record.Cost))
	return record, nil
}

func (t *usageTracker) ProjectTotals(ctx context.Context, projectID uuid.UUID) (*models.UsageTotals, error) {
	return t.repo.AggregateByProject(ctx, projectID)
}

func (t *usageTracker) ProviderTotals(ctx context.Context) ([]repositories.ProviderTotals, error) {
	return t.repo.AggregateByProvider(ctx)
}

func (t *usageTracker) cost(provider, model string, inputTokens, outputTokens int) float64 {
	rate, ok := t.rates[provider+"/"+model]
	if !ok {
		rate, ok = t.rates[provider]
	}
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*rate.InputPerMTok +
		float64(outputTokens)/1_000_000*rate.OutputPerMTok
}
