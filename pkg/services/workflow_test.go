package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/models"
)

const (
	sufficientBriefJSON = `{"mission":"Launch a webshop","objectives":["sell online"],"constraints":["GDPR"],"region":"EU","missing_data":false}`
	missingDataJSON     = `{"mission":"","objectives":[],"constraints":[],"region":"","missing_data":true,"missing_fields":["budget","region"]}`
	estimateJSON        = `{"scenario_a":{"name":"Lean","total_cost":15000,"duration_weeks":6},"scenario_b":{"name":"Full","total_cost":45000,"duration_weeks":14},"roi_analysis":{"summary":"positive"},"estimate_markdown":"# Estimate\nBoth scenarios."}`
	assetsJSON          = `{"proposal_markdown":"# Proposal","research_markdown":"# Research"}`
	breakdownJSON       = `{"phases":[{"name":"Discovery","duration_weeks":2,"tasks":[{"title":"Kickoff"}]}]}`
)

type workflowFixture struct {
	controller   WorkflowController
	projectRepo  *fakeProjectRepo
	knowRepo     *fakeKnowledgeRepo
	orchestrator *fakeOrchestrator
	emailer      *fakeEmailer
}

type fakeEmailer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmailer) SendProposal(context.Context, *models.Project) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.err
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	logger := zap.NewNop()
	projectRepo := newFakeProjectRepo()
	knowRepo := newFakeKnowledgeRepo()
	orchestrator := newFakeOrchestrator()
	emailer := &fakeEmailer{}

	controller := NewWorkflowController(WorkflowDeps{
		Projects:         projectRepo,
		Knowledge:        NewKnowledgeService(knowRepo, logger),
		Orchestrator:     orchestrator,
		Fallback:         NewFallbackResponder(),
		Renderer:         NewLoggingRenderer(logger),
		Emailer:          emailer,
		RegenerateStages: []int{1, 2, 3, 4},
	}, logger)

	return &workflowFixture{
		controller:   controller,
		projectRepo:  projectRepo,
		knowRepo:     knowRepo,
		orchestrator: orchestrator,
		emailer:      emailer,
	}
}

// createEstimated creates a project that has scenarios ready for approval.
func (f *workflowFixture) createEstimated(t *testing.T, budget *float64) *models.Project {
	t.Helper()
	f.orchestrator.onJSON(OpInputProcessing, sufficientBriefJSON)
	f.orchestrator.onJSON(OpEstimate, estimateJSON)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName:  "Acme GmbH",
		ClientEmail: "ops@acme.example",
		RawInput:    "We want to launch a webshop in the EU.",
		Budget:      budget,
	})
	require.NoError(t, err)
	return project
}

// approveToAssets moves a freshly estimated project to stage 2.
func (f *workflowFixture) approveToAssets(t *testing.T, budget *float64) *models.Project {
	t.Helper()
	project := f.createEstimated(t, budget)
	f.orchestrator.onJSON(OpAssets, assetsJSON)

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionSelectScenario, ActionParams{Scenario: "A"})
	require.NoError(t, err)
	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionApprove, ActionParams{})
	require.NoError(t, err)
	return updated
}

func TestCreateProject_GeneratesEstimateWhenBriefSufficient(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)

	assert.Equal(t, models.StageInputProcessing, project.CurrentStage)
	assert.Equal(t, models.StatusEstimateGenerated, project.Status)
	require.True(t, project.HasScenarios())
	assert.Equal(t, 15000.0, project.ScenarioA.TotalCost)
	assert.Equal(t, "# Estimate\nBoth scenarios.", project.EstimateMarkdown)
	assert.Empty(t, project.DegradedOps)
}

func TestCreateProject_MissingDataBlocksEstimate(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, missingDataJSON)
	f.orchestrator.onJSON(OpEstimate, estimateJSON)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "We want something nice.",
	})
	require.NoError(t, err)

	assert.True(t, project.Brief.MissingData)
	assert.False(t, project.HasScenarios())
	assert.Equal(t, models.StatusDraft, project.Status)
	// The estimate operation was never attempted.
	assert.Equal(t, 0, f.orchestrator.callCount(OpEstimate))
}

func TestCreateProject_Validation(t *testing.T) {
	f := newWorkflowFixture(t)

	_, err := f.controller.CreateProject(context.Background(), CreateProjectInput{RawInput: "x"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.controller.CreateProject(context.Background(), CreateProjectInput{ClientName: "Acme"})
	assert.True(t, apperrors.IsValidation(err))

	bad := -5.0
	_, err = f.controller.CreateProject(context.Background(), CreateProjectInput{ClientName: "Acme", RawInput: "x", Budget: &bad})
	assert.True(t, apperrors.IsValidation(err))
}

func TestMessage_SuppliesMissingDataAndUnblocksEstimate(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, missingDataJSON)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "We want something nice.",
	})
	require.NoError(t, err)

	f.orchestrator.onJSON(OpInputProcessing, sufficientBriefJSON)
	f.orchestrator.onJSON(OpEstimate, estimateJSON)

	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionMessage, ActionParams{
		Message: "Budget is 30k, region is the EU.",
	})
	require.NoError(t, err)

	assert.True(t, updated.HasScenarios())
	assert.Equal(t, models.StatusEstimateGenerated, updated.Status)
	assert.Contains(t, updated.RawInput, "Budget is 30k")
}

func TestEstimate_BudgetConstraintStampsOverBudgetScenario(t *testing.T) {
	f := newWorkflowFixture(t)
	budget := 20000.0
	project := f.createEstimated(t, &budget)

	// Scenario A (15k) fits; scenario B (45k) must carry the constrained
	// flag and a disclaimer instead of being silently accepted.
	assert.False(t, project.ScenarioA.BudgetConstrained)
	assert.True(t, project.ScenarioB.BudgetConstrained)
	assert.NotEmpty(t, project.ScenarioB.BudgetDisclaimer)
	assert.True(t, project.ScenarioA.WithinBudget(budget))
	assert.True(t, project.ScenarioB.WithinBudget(budget))
}

func TestApprove_IndexesExactlyOneApprovedEstimate(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)

	assert.Equal(t, models.StageAssets, project.CurrentStage)
	assert.Equal(t, models.StatusAssetsReady, project.Status)
	assert.Equal(t, "# Proposal", project.ProposalMarkdown)
	assert.Equal(t, "# Research", project.ResearchMarkdown)

	entries := f.knowRepo.byCategory(models.KnowledgeCategoryApprovedEstimate)
	require.Len(t, entries, 1)
	assert.Equal(t, project.EstimateMarkdown, entries[0].Content)
	assert.Equal(t, project.ID, entries[0].SourceProjectID)
	require.NotNil(t, entries[0].SelectedScenario)
	assert.Equal(t, models.ScenarioChoiceA, *entries[0].SelectedScenario)
}

func TestApprove_IndexFailureKeepsStageForRetry(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)
	f.orchestrator.onJSON(OpAssets, assetsJSON)
	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionSelectScenario, ActionParams{Scenario: "A"})
	require.NoError(t, err)

	f.knowRepo.InsertErr = errors.New("connection reset by peer")
	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionApprove, ActionParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))

	// The approval was not recorded, so the stage must not have moved and
	// no corpus entry may exist.
	stored := f.projectRepo.stored(project.ID)
	assert.Equal(t, models.StageInputProcessing, stored.CurrentStage)
	assert.Empty(t, f.knowRepo.byCategory(models.KnowledgeCategoryApprovedEstimate))

	f.knowRepo.InsertErr = nil
	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionApprove, ActionParams{})
	require.NoError(t, err)
	assert.Equal(t, models.StageAssets, updated.CurrentStage)
	assert.Len(t, f.knowRepo.byCategory(models.KnowledgeCategoryApprovedEstimate), 1)
}

func TestApprove_BeforeScenariosExist(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, missingDataJSON)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "We want something nice.",
	})
	require.NoError(t, err)

	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionApprove, ActionParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsStageInvariant(err))

	stored := f.projectRepo.stored(project.ID)
	assert.Equal(t, models.StageInputProcessing, stored.CurrentStage)
	assert.Empty(t, f.knowRepo.byCategory(models.KnowledgeCategoryApprovedEstimate))
}

func TestAdvance_SkippingStagesIsRejected(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{TargetStage: 4})
	require.Error(t, err)
	assert.True(t, apperrors.IsStageInvariant(err))

	// The stored project is untouched by the rejected transition.
	stored := f.projectRepo.stored(project.ID)
	assert.Equal(t, models.StageAssets, stored.CurrentStage)
	assert.Equal(t, models.StatusAssetsReady, stored.Status)
}

func TestSendEmail_RequiresClientEmail(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, sufficientBriefJSON)
	f.orchestrator.onJSON(OpEstimate, estimateJSON)
	f.orchestrator.onJSON(OpAssets, assetsJSON)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "Webshop please.",
	})
	require.NoError(t, err)
	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionApprove, ActionParams{})
	require.NoError(t, err)

	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionSendEmail, ActionParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	// The failure happened before any delivery attempt.
	assert.Equal(t, 0, f.emailer.calls)
}

func TestSendEmail_SetsStatus(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)

	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionSendEmail, ActionParams{})
	require.NoError(t, err)

	assert.Equal(t, models.StatusEmailSent, updated.Status)
	assert.Equal(t, models.StageAssets, updated.CurrentStage)
	assert.Equal(t, 1, f.emailer.calls)
}

func TestAdvance_ToGuidesGeneratesBothVariants(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)

	guideCount := 0
	f.orchestrator.on(OpExecutionGuide, func(input *ExecuteInput) (*ExecuteResult, error) {
		guideCount++
		return &ExecuteResult{Content: "guide for " + input.Variables["variant"]}, nil
	})

	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)

	assert.Equal(t, models.StageExecutionGuides, updated.CurrentStage)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, 2, guideCount)
	assert.Equal(t, "guide for high-code", updated.HighCodeGuide)
	assert.Equal(t, "guide for no-code", updated.NoCodeGuide)
}

func TestAdvance_GuideExhaustionKeepsStageAndTagsContent(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)
	f.orchestrator.onExhausted(OpExecutionGuide)

	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)

	// Fallback content is persisted and tagged, but the transition did
	// not happen; it can be retried once providers recover.
	assert.Equal(t, models.StageAssets, updated.CurrentStage)
	assert.True(t, updated.IsDegraded(OpExecutionGuide))
	assert.NotEmpty(t, updated.HighCodeGuide)
	assert.NotEmpty(t, updated.NoCodeGuide)

	f.orchestrator.on(OpExecutionGuide, func(input *ExecuteInput) (*ExecuteResult, error) {
		return &ExecuteResult{Content: "live guide"}, nil
	})
	retried, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)
	assert.Equal(t, models.StageExecutionGuides, retried.CurrentStage)
	assert.Equal(t, "live guide", retried.HighCodeGuide)
}

func TestAdvance_ToBreakdown(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)
	f.orchestrator.on(OpExecutionGuide, func(input *ExecuteInput) (*ExecuteResult, error) {
		return &ExecuteResult{Content: "guide"}, nil
	})
	f.orchestrator.onJSON(OpPMBreakdown, breakdownJSON)

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)
	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)

	assert.Equal(t, models.StagePMBreakdown, updated.CurrentStage)
	require.NotNil(t, updated.PMBreakdown)
	require.Len(t, updated.PMBreakdown.Phases, 1)
	assert.Equal(t, "Discovery", updated.PMBreakdown.Phases[0].Name)
}

func TestFinalApproval_CompletesProject(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)
	f.orchestrator.on(OpExecutionGuide, func(input *ExecuteInput) (*ExecuteResult, error) {
		return &ExecuteResult{Content: "guide"}, nil
	})
	f.orchestrator.onJSON(OpPMBreakdown, breakdownJSON)

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)
	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	require.NoError(t, err)

	// Shortcut: final approval straight from stage 4.
	updated, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionFinalApproval, ActionParams{})
	require.NoError(t, err)

	assert.Equal(t, models.StageCompletion, updated.CurrentStage)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.FinalApprovedAt)

	// Terminal: nothing advances past stage 5.
	_, err = f.controller.AdvanceStage(context.Background(), project.ID, ActionAdvance, ActionParams{})
	assert.True(t, apperrors.IsStageInvariant(err))
}

func TestFinalApproval_TooEarly(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionFinalApproval, ActionParams{})
	require.Error(t, err)
	assert.True(t, apperrors.IsStageInvariant(err))
}

func TestEstimate_ExhaustionFallsBackWithTaggedContent(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, sufficientBriefJSON)
	f.orchestrator.onExhausted(OpEstimate)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "Webshop please.",
	})
	require.NoError(t, err)

	assert.True(t, project.IsDegraded(OpEstimate))
	require.True(t, project.HasScenarios())
	assert.NotEmpty(t, project.EstimateMarkdown)
	assert.Equal(t, models.StatusEstimateGenerated, project.Status)
}

func TestRegenerate_ReplacesContentWithoutMovingStage(t *testing.T) {
	f := newWorkflowFixture(t)
	f.orchestrator.onJSON(OpInputProcessing, sufficientBriefJSON)
	f.orchestrator.onExhausted(OpEstimate)

	project, err := f.controller.CreateProject(context.Background(), CreateProjectInput{
		ClientName: "Acme GmbH",
		RawInput:   "Webshop please.",
	})
	require.NoError(t, err)
	require.True(t, project.IsDegraded(OpEstimate))

	f.orchestrator.onJSON(OpEstimate, estimateJSON)
	updated, err := f.controller.Regenerate(context.Background(), project.ID, OpEstimate)
	require.NoError(t, err)

	assert.Equal(t, models.StageInputProcessing, updated.CurrentStage)
	assert.False(t, updated.IsDegraded(OpEstimate))
	assert.Equal(t, 15000.0, updated.ScenarioA.TotalCost)
}

func TestRegenerate_ExhaustionOverLiveContentStaysUntagged(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.approveToAssets(t, nil)
	require.Equal(t, "# Proposal", project.ProposalMarkdown)
	f.orchestrator.onExhausted(OpAssets)

	updated, err := f.controller.Regenerate(context.Background(), project.ID, OpAssets)
	require.NoError(t, err)

	// Live provider content survives the failed regenerate and must not
	// carry the fallback tag.
	assert.Equal(t, models.StageAssets, updated.CurrentStage)
	assert.Equal(t, "# Proposal", updated.ProposalMarkdown)
	assert.Equal(t, "# Research", updated.ResearchMarkdown)
	assert.False(t, updated.IsDegraded(OpAssets))
}

func TestRegenerate_OperationMustMatchStage(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)

	_, err := f.controller.Regenerate(context.Background(), project.ID, OpPMBreakdown)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRegenerate_NotPermittedAtCompletion(t *testing.T) {
	logger := zap.NewNop()
	projectRepo := newFakeProjectRepo()
	controller := NewWorkflowController(WorkflowDeps{
		Projects:         projectRepo,
		Knowledge:        NewKnowledgeService(newFakeKnowledgeRepo(), logger),
		Orchestrator:     newFakeOrchestrator(),
		Fallback:         NewFallbackResponder(),
		Renderer:         NewLoggingRenderer(logger),
		Emailer:          &fakeEmailer{},
		RegenerateStages: []int{1, 2, 3, 4},
	}, logger)

	now := projectAt(t, projectRepo, models.StageCompletion, models.StatusCompleted)
	_, err := controller.Regenerate(context.Background(), now, OpEstimate)
	require.Error(t, err)
	assert.True(t, apperrors.IsStageInvariant(err))
}

// projectAt seeds the fake repo with a project at the given stage/status.
func projectAt(t *testing.T, repo *fakeProjectRepo, stage models.Stage, status models.ProjectStatus) uuid.UUID {
	t.Helper()
	approvedAt := time.Now().UTC()
	project := &models.Project{
		ID:           uuid.New(),
		ClientName:   "Acme GmbH",
		CurrentStage: stage,
		Status:       status,
		RawInput:     "seed",
	}
	if status == models.StatusCompleted {
		project.FinalApprovedAt = &approvedAt
	}
	require.NoError(t, repo.Create(context.Background(), project))
	return project.ID
}

func TestChat_FallsBackOnExhaustion(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)
	f.orchestrator.onExhausted(OpChat)

	reply, err := f.controller.Chat(context.Background(), project.ID, "How is it going?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	// Deterministic per project and stage.
	again, err := f.controller.Chat(context.Background(), project.ID, "How is it going?")
	require.NoError(t, err)
	assert.Equal(t, reply, again)
}

func TestWipe_RemovesProject(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)

	require.NoError(t, f.controller.Wipe(context.Background(), project.ID))

	_, err := f.controller.GetProject(context.Background(), project.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestPersistenceFailureSurfacesTyped(t *testing.T) {
	f := newWorkflowFixture(t)
	project := f.createEstimated(t, nil)
	f.projectRepo.UpdateErr = errors.New("connection reset")

	_, err := f.controller.AdvanceStage(context.Background(), project.ID, ActionSelectScenario, ActionParams{Scenario: "A"})
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
}
