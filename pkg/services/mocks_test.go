package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/repositories"
)

// ============================================================================
// In-memory repository fakes
// ============================================================================

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project

	CreateCalls int
	UpdateCalls int
	UpdateErr   error
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uuid.UUID]*models.Project)}
}

var _ repositories.ProjectRepository = (*fakeProjectRepo)(nil)

func (r *fakeProjectRepo) Create(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CreateCalls++
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UpdateCalls++
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *fakeProjectRepo) List(_ context.Context) ([]*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Project, 0, len(r.projects))
	for _, p := range r.projects {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeProjectRepo) Wipe(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

// stored returns the persisted copy, bypassing the clone-on-read.
func (r *fakeProjectRepo) stored(id uuid.UUID) *models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[id]
}

type fakeKnowledgeRepo struct {
	mu        sync.Mutex
	entries   []*models.KnowledgeEntry
	InsertErr error
}

func newFakeKnowledgeRepo() *fakeKnowledgeRepo {
	return &fakeKnowledgeRepo{}
}

var _ repositories.KnowledgeRepository = (*fakeKnowledgeRepo)(nil)

func (r *fakeKnowledgeRepo) Insert(_ context.Context, entry *models.KnowledgeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *fakeKnowledgeRepo) GetByCategory(_ context.Context, category string, limit int) ([]*models.KnowledgeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.KnowledgeEntry, 0)
	// Most recent first, as the real repository orders.
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].Category == category {
			clone := *r.entries[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) GetByProject(_ context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.KnowledgeEntry, 0)
	for _, e := range r.entries {
		if e.SourceProjectID == projectID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeKnowledgeRepo) byCategory(category string) []*models.KnowledgeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.KnowledgeEntry, 0)
	for _, e := range r.entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

type fakeUsageRepo struct {
	mu      sync.Mutex
	records []*models.UsageRecord
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{}
}

var _ repositories.UsageRepository = (*fakeUsageRepo)(nil)

func (r *fakeUsageRepo) Insert(_ context.Context, record *models.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *fakeUsageRepo) AggregateByProject(_ context.Context, projectID uuid.UUID) (*models.UsageTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &models.UsageTotals{}
	for _, rec := range r.records {
		if rec.ProjectID != projectID {
			continue
		}
		totals.Calls++
		if rec.Status != models.UsageStatusSuccess {
			totals.Failures++
		}
		totals.InputTokens += int64(rec.InputTokens)
		totals.OutputTokens += int64(rec.OutputTokens)
		totals.Cost += rec.Cost
	}
	return totals, nil
}

func (r *fakeUsageRepo) AggregateByProvider(_ context.Context) ([]repositories.ProviderTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byProvider := make(map[string]*models.UsageTotals)
	for _, rec := range r.records {
		t, ok := byProvider[rec.Provider]
		if !ok {
			t = &models.UsageTotals{}
			byProvider[rec.Provider] = t
		}
		t.Calls++
		if rec.Status != models.UsageStatusSuccess {
			t.Failures++
		}
		t.Cost += rec.Cost
	}
	out := make([]repositories.ProviderTotals, 0, len(byProvider))
	for provider, t := range byProvider {
		out = append(out, repositories.ProviderTotals{Provider: provider, Totals: *t})
	}
	return out, nil
}

func (r *fakeUsageRepo) all() []*models.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.UsageRecord, len(r.records))
	copy(out, r.records)
	return out
}

// ============================================================================
// Orchestrator fake for workflow tests
// ============================================================================

// fakeOrchestrator routes Execute calls to per-operation handlers.
type fakeOrchestrator struct {
	mu       sync.Mutex
	handlers map[string]func(input *ExecuteInput) (*ExecuteResult, error)
	calls    []string
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{handlers: make(map[string]func(input *ExecuteInput) (*ExecuteResult, error))}
}

var _ ProviderOrchestrator = (*fakeOrchestrator)(nil)

func (o *fakeOrchestrator) BreakerStates() map[string]string { return map[string]string{} }

func (o *fakeOrchestrator) on(operation string, fn func(input *ExecuteInput) (*ExecuteResult, error)) {
	o.handlers[operation] = fn
}

// onJSON registers a handler returning a fixed JSON payload.
func (o *fakeOrchestrator) onJSON(operation, jsonStr string) {
	o.on(operation, func(*ExecuteInput) (*ExecuteResult, error) {
		return &ExecuteResult{Content: jsonStr, JSON: jsonStr, Provider: "mock", Model: "mock-model"}, nil
	})
}

// onExhausted registers a handler that always reports chain exhaustion.
func (o *fakeOrchestrator) onExhausted(operation string) {
	o.on(operation, func(*ExecuteInput) (*ExecuteResult, error) {
		return nil, &apperrors.OrchestrationExhausted{Operation: operation, Attempts: 2}
	})
}

func (o *fakeOrchestrator) Execute(_ context.Context, operation string, input *ExecuteInput) (*ExecuteResult, error) {
	o.mu.Lock()
	o.calls = append(o.calls, operation)
	handler := o.handlers[operation]
	o.mu.Unlock()
	if handler == nil {
		return nil, &apperrors.OrchestrationExhausted{Operation: operation, Attempts: 0}
	}
	return handler(input)
}

func (o *fakeOrchestrator) callCount(operation string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, op := range o.calls {
		if op == operation {
			n++
		}
	}
	return n
}
