package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/llm"
	"github.com/forgelane/proposal-engine/pkg/logging"
	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/prompts"
)

// Operation names. Each maps to one prompt template and one ranked
// provider chain.
const (
	OpInputProcessing = "input_processing"
	OpEstimate        = "estimate"
	OpAssets          = "assets"
	OpExecutionGuide  = "execution_guide"
	OpPMBreakdown     = "pm_breakdown"
	OpChat            = "chat"
)

// operationSpec describes how one operation is prompted and validated.
type operationSpec struct {
	Template          string
	KnowledgeCategory string
	KnowledgeLimit    int
	// RequiredKeys set means the operation expects a JSON object reply.
	RequiredKeys []string
	// Validate runs against the extracted JSON; a non-nil error makes the
	// attempt count as a provider failure even though transport succeeded.
	Validate func(jsonStr string) error
}

var operationSpecs = map[string]operationSpec{
	OpInputProcessing: {
		Template:     prompts.TemplateInputProcessing,
		RequiredKeys: []string{"mission", "objectives", "constraints", "region", "missing_data"},
	},
	OpEstimate: {
		Template:          prompts.TemplateEstimate,
		KnowledgeCategory: models.KnowledgeCategoryApprovedEstimate,
		KnowledgeLimit:    5,
		RequiredKeys:      []string{"scenario_a", "scenario_b", "roi_analysis", "estimate_markdown"},
		Validate:          validateEstimateJSON,
	},
	OpAssets: {
		Template:          prompts.TemplateAssets,
		KnowledgeCategory: models.KnowledgeCategoryResearch,
		KnowledgeLimit:    3,
		RequiredKeys:      []string{"proposal_markdown", "research_markdown"},
	},
	OpExecutionGuide: {
		Template: prompts.TemplateExecutionGuide,
	},
	OpPMBreakdown: {
		Template:     prompts.TemplatePMBreakdown,
		RequiredKeys: []string{"phases"},
		Validate:     validateBreakdownJSON,
	},
	OpChat: {
		Template: prompts.TemplateChat,
	},
}

// defaultRouting is the ranked provider chain per operation, used when the
// config file does not override routing. Order is preference order.
var defaultRouting = map[string][]string{
	OpInputProcessing: {"openai", "anthropic", "community"},
	OpEstimate:        {"anthropic", "openai", "community"},
	OpAssets:          {"anthropic", "openai", "community"},
	OpExecutionGuide:  {"openai", "anthropic", "community"},
	OpPMBreakdown:     {"openai", "anthropic", "community"},
	OpChat:            {"community", "openai", "anthropic"},
}

// ExecuteInput carries the per-call inputs for an operation.
type ExecuteInput struct {
	ProjectID uuid.UUID
	Variables map[string]string
}

// ExecuteResult is the outcome of a successful orchestrated call.
type ExecuteResult struct {
	Content  string
	JSON     string
	Provider string
	Model    string
}

// ProviderOrchestrator executes an operation against its ranked provider
// chain, accounting every real attempt and falling through on failure.
type ProviderOrchestrator interface {
	Execute(ctx context.Context, operation string, input *ExecuteInput) (*ExecuteResult, error)
	// BreakerStates reports each provider's circuit state keyed by name.
	BreakerStates() map[string]string
}

type providerOrchestrator struct {
	providers      map[string]llm.Provider
	breakers       map[string]*llm.CircuitBreaker
	routing        map[string][]string
	builder        *prompts.Builder
	knowledge      KnowledgeService
	usage          UsageTracker
	health         *HealthStore
	attemptTimeout time.Duration
	logger         *zap.Logger
}

// OrchestratorDeps bundles the orchestrator's collaborators.
type OrchestratorDeps struct {
	Providers []llm.Provider
	// Routing overrides defaultRouting per operation when non-empty.
	Routing        map[string][]string
	Builder        *prompts.Builder
	Knowledge      KnowledgeService
	Usage          UsageTracker
	Health         *HealthStore
	AttemptTimeout time.Duration
}

// NewProviderOrchestrator creates an orchestrator over the given providers.
func NewProviderOrchestrator(deps OrchestratorDeps, logger *zap.Logger) ProviderOrchestrator {
	byName := make(map[string]llm.Provider, len(deps.Providers))
	breakers := make(map[string]*llm.CircuitBreaker, len(deps.Providers))
	for _, p := range deps.Providers {
		byName[p.Name()] = p
		breakers[p.Name()] = llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig())
	}

	routing := make(map[string][]string, len(defaultRouting))
	for op, chain := range defaultRouting {
		routing[op] = chain
	}
	for op, chain := range deps.Routing {
		if len(chain) > 0 {
			routing[op] = chain
		}
	}

	timeout := deps.AttemptTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &providerOrchestrator{
		providers:      byName,
		breakers:       breakers,
		routing:        routing,
		builder:        deps.Builder,
		knowledge:      deps.Knowledge,
		usage:          deps.Usage,
		health:         deps.Health,
		attemptTimeout: timeout,
		logger:         logger.Named("orchestrator"),
	}
}

var _ ProviderOrchestrator = (*providerOrchestrator)(nil)

func (o *providerOrchestrator) BreakerStates() map[string]string {
	states := make(map[string]string, len(o.breakers))
	for name, cb := range o.breakers {
		states[name] = cb.State().String()
	}
	return states
}

func (o *providerOrchestrator) Execute(ctx context.Context, operation string, input *ExecuteInput) (*ExecuteResult, error) {
	spec, ok := operationSpecs[operation]
	if !ok {
		return nil, apperrors.NewValidation("operation", fmt.Sprintf("unknown operation %q", operation))
	}

	vars := make(map[string]string, len(input.Variables)+1)
	for k, v := range input.Variables {
		vars[k] = v
	}
	if spec.KnowledgeCategory != "" {
		// Retrieval failure degrades to an empty context block; it must
		// never take the operation down with it.
		knowledgeCtx, err := o.knowledge.RetrieveContext(ctx, spec.KnowledgeCategory, spec.KnowledgeLimit)
		if err != nil {
			o.logger.Warn("knowledge retrieval failed, proceeding without context",
				zap.String("operation", operation),
				zap.Error(err))
			knowledgeCtx = ""
		}
		vars["knowledge_context"] = knowledgeCtx
	}

	prompt, err := o.builder.Build(spec.Template, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt for %q: %w", operation, err)
	}

	chain := o.routing[operation]
	attempts := 0
	var lastErr error

	for _, name := range chain {
		provider, ok := o.providers[name]
		if !ok {
			o.logger.Debug("provider not registered, skipping",
				zap.String("operation", operation),
				zap.String("provider", name))
			continue
		}
		// Unconfigured providers are skipped without writing a usage record
		// or a failure reading. The health table still gets an unconfigured
		// entry so the skip shows up on the health surface.
		if !provider.Configured() {
			o.logger.Debug("provider not configured, skipping",
				zap.String("operation", operation),
				zap.String("provider", name))
			o.health.Update(ctx, HealthNamespaceProviders, name, models.HealthUnconfigured, 0, "no credentials configured")
			continue
		}
		if allowed, reason := o.breakers[name].Allow(); !allowed {
			o.logger.Warn("circuit breaker rejected provider",
				zap.String("operation", operation),
				zap.String("provider", name),
				zap.Error(reason))
			continue
		}

		attempts++
		result, attemptErr := o.attempt(ctx, provider, operation, spec, prompt, input.ProjectID)
		if attemptErr != nil {
			lastErr = attemptErr
			continue
		}
		return result, nil
	}

	return nil, &apperrors.OrchestrationExhausted{
		Operation: operation,
		Attempts:  attempts,
		LastErr:   lastErr,
	}
}

// attempt runs one provider call end-to-end: timeout, accounting, health
// update, breaker bookkeeping, and output validation.
func (o *providerOrchestrator) attempt(ctx context.Context, provider llm.Provider, operation string, spec operationSpec, prompt string, projectID uuid.UUID) (*ExecuteResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	start := time.Now()
	result, err := provider.GenerateContent(attemptCtx, prompt, operation)
	elapsed := time.Since(start)

	if err != nil {
		return nil, o.recordFailure(ctx, provider, operation, projectID, elapsed, err)
	}

	jsonStr := ""
	if len(spec.RequiredKeys) > 0 {
		jsonStr, err = llm.ExtractJSON(result.Content)
		if err == nil {
			_, err = llm.RequireKeys(jsonStr, spec.RequiredKeys)
		}
		if err == nil && spec.Validate != nil {
			err = spec.Validate(jsonStr)
		}
		if err != nil {
			// Structurally invalid output is a provider failure, not
			// content. Tokens were still consumed; account for them.
			outputErr := llm.NewError(llm.ErrorTypeOutput, "malformed output", false, err)
			o.recordAttempt(ctx, provider, operation, projectID, result, elapsed, models.UsageStatusError, outputErr.Error())
			o.health.Update(ctx, HealthNamespaceProviders, provider.Name(), models.HealthDegraded, elapsed, outputErr.Error())
			o.breakers[provider.Name()].RecordFailure()
			return nil, &apperrors.ProviderFailure{
				Provider:  provider.Name(),
				Model:     provider.Model(),
				Operation: operation,
				Cause:     outputErr,
			}
		}
	}

	o.recordAttempt(ctx, provider, operation, projectID, result, elapsed, models.UsageStatusSuccess, "")
	o.health.Update(ctx, HealthNamespaceProviders, provider.Name(), models.HealthOnline, elapsed, "")
	o.breakers[provider.Name()].RecordSuccess()

	o.logger.Info("operation completed",
		zap.String("operation", operation),
		zap.String("provider", provider.Name()),
		zap.Duration("elapsed", elapsed))

	return &ExecuteResult{
		Content:  result.Content,
		JSON:     jsonStr,
		Provider: provider.Name(),
		Model:    provider.Model(),
	}, nil
}

func (o *providerOrchestrator) recordFailure(ctx context.Context, provider llm.Provider, operation string, projectID uuid.UUID, elapsed time.Duration, cause error) error {
	classified := llm.ClassifyError(cause)
	status := models.UsageStatusError
	if elapsed >= o.attemptTimeout {
		status = models.UsageStatusTimeout
	}
	msg := logging.SanitizeError(classified)

	o.recordAttempt(ctx, provider, operation, projectID, nil, elapsed, status, msg)
	o.health.Update(ctx, HealthNamespaceProviders, provider.Name(), models.HealthError, elapsed, msg)
	o.breakers[provider.Name()].RecordFailure()

	o.logger.Warn("provider attempt failed",
		zap.String("operation", operation),
		zap.String("provider", provider.Name()),
		zap.String("error_type", string(classified.Type)),
		zap.Duration("elapsed", elapsed))

	return &apperrors.ProviderFailure{
		Provider:  provider.Name(),
		Model:     provider.Model(),
		Operation: operation,
		Cause:     classified,
	}
}

// recordAttempt writes exactly one usage row for a real provider attempt.
// A failed write is logged and swallowed; accounting must not break the
// pipeline.
func (o *providerOrchestrator) recordAttempt(ctx context.Context, provider llm.Provider, operation string, projectID uuid.UUID, result *llm.GenerateResult, elapsed time.Duration, status, errMsg string) {
	outcome := AttemptOutcome{
		ProjectID:    projectID,
		Provider:     provider.Name(),
		Model:        provider.Model(),
		Operation:    operation,
		Duration:     elapsed,
		Status:       status,
		ErrorMessage: errMsg,
	}
	if result != nil {
		outcome.InputTokens = result.InputTokens
		outcome.OutputTokens = result.OutputTokens
	}
	if _, err := o.usage.Record(ctx, outcome); err != nil {
		o.logger.Error("failed to persist usage record",
			zap.String("operation", operation),
			zap.String("provider", provider.Name()),
			zap.Error(err))
	}
}

// estimatePayload mirrors the estimate operation's JSON contract.
type estimatePayload struct {
	ScenarioA        *models.Scenario    `json:"scenario_a"`
	ScenarioB        *models.Scenario    `json:"scenario_b"`
	ROIAnalysis      *models.ROIAnalysis `json:"roi_analysis"`
	EstimateMarkdown string              `json:"estimate_markdown"`
}

func validateEstimateJSON(jsonStr string) error {
	var payload estimatePayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return fmt.Errorf("decode estimate payload: %w", err)
	}
	if payload.ScenarioA == nil || payload.ScenarioB == nil {
		return fmt.Errorf("estimate payload missing a scenario")
	}
	if payload.ScenarioA.TotalCost <= 0 || payload.ScenarioB.TotalCost <= 0 {
		return fmt.Errorf("estimate payload has non-positive scenario cost")
	}
	if payload.EstimateMarkdown == "" {
		return fmt.Errorf("estimate payload missing markdown document")
	}
	return nil
}

func validateBreakdownJSON(jsonStr string) error {
	var breakdown models.Breakdown
	if err := json.Unmarshal([]byte(jsonStr), &breakdown); err != nil {
		return fmt.Errorf("decode breakdown payload: %w", err)
	}
	return breakdown.Validate()
}
