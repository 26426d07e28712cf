package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/repositories"
)

// Action identifies one workflow command against a project.
type Action string

const (
	ActionMessage        Action = "message"
	ActionSelectScenario Action = "select_scenario"
	ActionApprove        Action = "approve"
	ActionSendEmail      Action = "send_email"
	ActionAccept         Action = "accept"
	ActionAdvance        Action = "advance"
	ActionFinalApproval  Action = "final_approval"
)

// ActionParams carries the optional inputs an action may need.
type ActionParams struct {
	// Message is additional client input for ActionMessage.
	Message string `json:"message,omitempty"`
	// Scenario is "A" or "B" for ActionSelectScenario.
	Scenario string `json:"scenario,omitempty"`
	// TargetStage, when non-zero, asserts the stage the caller expects to
	// land on. A mismatch with the allowed transition is rejected.
	TargetStage int `json:"target_stage,omitempty"`
}

// CreateProjectInput is the payload for creating a project.
type CreateProjectInput struct {
	ClientName  string   `json:"client_name"`
	ClientEmail string   `json:"client_email,omitempty"`
	RawInput    string   `json:"raw_input"`
	Budget      *float64 `json:"budget,omitempty"`
}

// defaultBudgetDisclaimer is stamped on scenarios that exceed the client
// budget.
const defaultBudgetDisclaimer = "This scenario exceeds the stated budget. It is included for comparison; delivering it requires either additional budget or a reduction in scope."

// WorkflowController owns every project mutation. All writes for one
// project are serialized; stage moves only along the allowed graph.
type WorkflowController interface {
	CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	AdvanceStage(ctx context.Context, projectID uuid.UUID, action Action, params ActionParams) (*models.Project, error)
	Regenerate(ctx context.Context, projectID uuid.UUID, operation string) (*models.Project, error)
	Chat(ctx context.Context, projectID uuid.UUID, message string) (string, error)
	Wipe(ctx context.Context, projectID uuid.UUID) error
}

type workflowController struct {
	projects     repositories.ProjectRepository
	knowledge    KnowledgeService
	orchestrator ProviderOrchestrator
	fallback     *FallbackResponder
	renderer     DocumentRenderer
	emailer      EmailSender

	// regenStages holds the stages at which regeneration is permitted.
	regenStages map[int]bool

	locks  sync.Map // uuid.UUID -> *sync.Mutex
	logger *zap.Logger
}

// WorkflowDeps bundles the controller's collaborators.
type WorkflowDeps struct {
	Projects     repositories.ProjectRepository
	Knowledge    KnowledgeService
	Orchestrator ProviderOrchestrator
	Fallback     *FallbackResponder
	Renderer     DocumentRenderer
	Emailer      EmailSender
	// RegenerateStages lists the stages at which regeneration is allowed.
	RegenerateStages []int
}

// NewWorkflowController creates the workflow controller.
func NewWorkflowController(deps WorkflowDeps, logger *zap.Logger) WorkflowController {
	regen := make(map[int]bool, len(deps.RegenerateStages))
	for _, s := range deps.RegenerateStages {
		regen[s] = true
	}
	return &workflowController{
		projects:     deps.Projects,
		knowledge:    deps.Knowledge,
		orchestrator: deps.Orchestrator,
		fallback:     deps.Fallback,
		renderer:     deps.Renderer,
		emailer:      deps.Emailer,
		regenStages:  regen,
		logger:       logger.Named("workflow"),
	}
}

var _ WorkflowController = (*workflowController)(nil)

// lock serializes all mutations for one project. Returns the unlock func.
func (c *workflowController) lock(projectID uuid.UUID) func() {
	muAny, _ := c.locks.LoadOrStore(projectID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ===========================================================================
// Project lifecycle
// ===========================================================================

func (c *workflowController) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.ClientName) == "" {
		return nil, apperrors.NewValidation("client_name", "is required")
	}
	if strings.TrimSpace(input.RawInput) == "" {
		return nil, apperrors.NewValidation("raw_input", "is required")
	}
	if input.Budget != nil && *input.Budget <= 0 {
		return nil, apperrors.NewValidation("budget", "must be positive")
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:           uuid.New(),
		ClientName:   strings.TrimSpace(input.ClientName),
		ClientEmail:  strings.TrimSpace(input.ClientEmail),
		CurrentStage: models.StageInputProcessing,
		Status:       models.StatusDraft,
		RawInput:     input.RawInput,
		Budget:       input.Budget,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.projects.Create(ctx, project); err != nil {
		return nil, apperrors.NewPersistence("create project", err)
	}

	unlock := c.lock(project.ID)
	defer unlock()

	c.processInput(ctx, project)
	if err := c.save(ctx, project); err != nil {
		return nil, err
	}

	c.logger.Info("project created",
		zap.String("project_id", project.ID.String()),
		zap.String("client", project.ClientName))
	return project, nil
}

func (c *workflowController) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	return c.projects.GetByID(ctx, projectID)
}

func (c *workflowController) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return c.projects.List(ctx)
}

func (c *workflowController) Wipe(ctx context.Context, projectID uuid.UUID) error {
	unlock := c.lock(projectID)
	defer unlock()

	if err := c.projects.Wipe(ctx, projectID); err != nil {
		return apperrors.NewPersistence("wipe project", err)
	}
	c.locks.Delete(projectID)
	c.logger.Info("project wiped", zap.String("project_id", projectID.String()))
	return nil
}

// ===========================================================================
// Stage transitions
// ===========================================================================

func (c *workflowController) AdvanceStage(ctx context.Context, projectID uuid.UUID, action Action, params ActionParams) (*models.Project, error) {
	unlock := c.lock(projectID)
	defer unlock()

	project, err := c.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionMessage:
		err = c.handleMessage(ctx, project, params)
	case ActionSelectScenario:
		err = c.handleSelectScenario(project, params)
	case ActionApprove:
		err = c.handleApprove(ctx, project)
	case ActionSendEmail:
		err = c.handleSendEmail(ctx, project)
	case ActionAccept:
		err = c.handleAccept(project)
	case ActionAdvance:
		err = c.handleAdvance(ctx, project, params)
	case ActionFinalApproval:
		err = c.handleFinalApproval(project)
	default:
		err = apperrors.NewValidation("action", fmt.Sprintf("unknown action %q", action))
	}
	if err != nil {
		// Rejected transitions leave the stored project untouched.
		return nil, err
	}

	if err := c.save(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (c *workflowController) handleMessage(ctx context.Context, project *models.Project, params ActionParams) error {
	if project.CurrentStage != models.StageInputProcessing {
		return c.violation(project, ActionMessage, "client messages only refine stage 1 input")
	}
	if strings.TrimSpace(params.Message) == "" {
		return apperrors.NewValidation("message", "is required")
	}

	project.RawInput = project.RawInput + "\n\n" + params.Message
	c.processInput(ctx, project)
	return nil
}

func (c *workflowController) handleSelectScenario(project *models.Project, params ActionParams) error {
	if project.CurrentStage != models.StageInputProcessing {
		return c.violation(project, ActionSelectScenario, "scenario selection happens at stage 1")
	}
	if !project.HasScenarios() {
		return c.violation(project, ActionSelectScenario, "no scenarios exist to select from")
	}
	choice := models.ScenarioChoice(params.Scenario)
	if choice != models.ScenarioChoiceA && choice != models.ScenarioChoiceB {
		return apperrors.NewValidation("scenario", `must be "A" or "B"`)
	}
	project.SelectedScenario = &choice
	return nil
}

// handleApprove is the stage 1 -> 2 transition: the client approved the
// estimate. The approved content is indexed into the knowledge corpus and
// proposal collateral is generated. If generation is exhausted the fallback
// content is persisted, tagged, and the project stays at stage 1 so the
// approval can be retried without data loss.
func (c *workflowController) handleApprove(ctx context.Context, project *models.Project) error {
	if project.CurrentStage != models.StageInputProcessing {
		return c.violation(project, ActionApprove, "estimate approval happens at stage 1")
	}
	if !project.HasScenarios() {
		return c.violation(project, ActionApprove, "cannot approve before scenarios exist")
	}

	if err := c.generateAssets(ctx, project); err != nil {
		if apperrors.IsExhausted(err) {
			c.applyAssetFallback(project)
			return nil
		}
		return err
	}

	// The approval event and its corpus entry are one unit. If indexing
	// fails the project stays at stage 1 and approve can be retried; the
	// stage must never advance past an unrecorded approval.
	if err := c.knowledge.IndexApproval(ctx, project); err != nil {
		return apperrors.NewPersistence("index approved estimate", err)
	}

	c.renderDocuments(ctx, project)

	project.ClearDegraded(OpAssets)
	project.CurrentStage = models.StageAssets
	project.Status = models.StatusAssetsReady
	return nil
}

func (c *workflowController) handleSendEmail(ctx context.Context, project *models.Project) error {
	if project.CurrentStage != models.StageAssets {
		return c.violation(project, ActionSendEmail, "proposal delivery happens at stage 2")
	}
	if strings.TrimSpace(project.ClientEmail) == "" {
		// Checked before any provider or delivery call is made.
		return apperrors.NewValidation("client_email", "is required to send the proposal")
	}

	if err := c.emailer.SendProposal(ctx, project); err != nil {
		return fmt.Errorf("failed to send proposal email: %w", err)
	}
	project.Status = models.StatusEmailSent
	return nil
}

func (c *workflowController) handleAccept(project *models.Project) error {
	if project.CurrentStage != models.StageAssets {
		return c.violation(project, ActionAccept, "client acceptance happens at stage 2")
	}
	project.Status = models.StatusAccepted
	return nil
}

func (c *workflowController) handleAdvance(ctx context.Context, project *models.Project, params ActionParams) error {
	target := project.CurrentStage + 1
	if params.TargetStage != 0 {
		target = models.Stage(params.TargetStage)
	}
	if !project.CurrentStage.CanTransitionTo(target) {
		return c.violation(project, ActionAdvance,
			fmt.Sprintf("cannot move from stage %d to stage %d", project.CurrentStage, target))
	}

	switch target {
	case models.StageExecutionGuides:
		if err := c.generateGuides(ctx, project); err != nil {
			if apperrors.IsExhausted(err) {
				c.applyGuideFallback(project)
				return nil
			}
			return err
		}
		project.ClearDegraded(OpExecutionGuide)
		project.CurrentStage = models.StageExecutionGuides
		project.Status = models.StatusInProgress

	case models.StagePMBreakdown:
		if err := c.generateBreakdown(ctx, project); err != nil {
			if apperrors.IsExhausted(err) {
				c.applyBreakdownFallback(project)
				return nil
			}
			return err
		}
		project.ClearDegraded(OpPMBreakdown)
		project.CurrentStage = models.StagePMBreakdown
		project.Status = models.StatusInProgress

	case models.StageCompletion:
		// Entering stage 5 without the approval event; completion status
		// still requires final approval.
		project.CurrentStage = models.StageCompletion

	default:
		// Stage 2 is entered via approval, never via a bare advance.
		return c.violation(project, ActionAdvance,
			fmt.Sprintf("stage %d is entered through its own action", target))
	}
	return nil
}

func (c *workflowController) handleFinalApproval(project *models.Project) error {
	if project.CurrentStage != models.StagePMBreakdown && project.CurrentStage != models.StageCompletion {
		return c.violation(project, ActionFinalApproval, "final approval happens at stage 4 or 5")
	}
	now := time.Now().UTC()
	project.CurrentStage = models.StageCompletion
	project.Status = models.StatusCompleted
	project.FinalApprovedAt = &now
	return nil
}

// ===========================================================================
// Regeneration and chat
// ===========================================================================

// stageOperations maps a stage to the operations that may be regenerated
// while the project sits at that stage.
var stageOperations = map[models.Stage][]string{
	models.StageInputProcessing: {OpInputProcessing, OpEstimate},
	models.StageAssets:          {OpAssets},
	models.StageExecutionGuides: {OpExecutionGuide},
	models.StagePMBreakdown:     {OpPMBreakdown},
}

func (c *workflowController) Regenerate(ctx context.Context, projectID uuid.UUID, operation string) (*models.Project, error) {
	unlock := c.lock(projectID)
	defer unlock()

	project, err := c.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !c.regenStages[int(project.CurrentStage)] {
		return nil, c.violation(project, "regenerate",
			fmt.Sprintf("regeneration is not permitted at stage %d", project.CurrentStage))
	}
	if !stageOperationAllowed(project.CurrentStage, operation) {
		return nil, apperrors.NewValidation("operation",
			fmt.Sprintf("operation %q does not belong to stage %d", operation, project.CurrentStage))
	}

	// Regeneration replaces content in place; the stage never moves.
	switch operation {
	case OpInputProcessing:
		c.processInput(ctx, project)
	case OpEstimate:
		if !project.Brief.Sufficient() {
			return nil, apperrors.NewValidation("brief", "estimate requires a sufficient brief; supply the missing data first")
		}
		c.generateEstimate(ctx, project)
	case OpAssets:
		if err := c.generateAssets(ctx, project); err != nil {
			if !apperrors.IsExhausted(err) {
				return nil, err
			}
			c.applyAssetFallback(project)
		} else {
			project.ClearDegraded(OpAssets)
			c.renderDocuments(ctx, project)
		}
	case OpExecutionGuide:
		if err := c.generateGuides(ctx, project); err != nil {
			if !apperrors.IsExhausted(err) {
				return nil, err
			}
			c.applyGuideFallback(project)
		} else {
			project.ClearDegraded(OpExecutionGuide)
		}
	case OpPMBreakdown:
		if err := c.generateBreakdown(ctx, project); err != nil {
			if !apperrors.IsExhausted(err) {
				return nil, err
			}
			c.applyBreakdownFallback(project)
		} else {
			project.ClearDegraded(OpPMBreakdown)
		}
	}

	if err := c.save(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func stageOperationAllowed(stage models.Stage, operation string) bool {
	for _, op := range stageOperations[stage] {
		if op == operation {
			return true
		}
	}
	return false
}

func (c *workflowController) Chat(ctx context.Context, projectID uuid.UUID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperrors.NewValidation("message", "is required")
	}

	project, err := c.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}

	vars := map[string]string{
		"message": message,
		"stage":   project.CurrentStage.String(),
	}
	if project.Brief != nil {
		vars["mission"] = project.Brief.Mission
	}

	result, err := c.orchestrator.Execute(ctx, OpChat, &ExecuteInput{ProjectID: project.ID, Variables: vars})
	if err != nil {
		if apperrors.IsExhausted(err) {
			return c.fallback.Respond(project.ID, project.CurrentStage), nil
		}
		return "", err
	}
	return result.Content, nil
}

// ===========================================================================
// Generation steps
// ===========================================================================

// processInput extracts a structured brief from the raw input and, when the
// brief is sufficient, generates the dual-scenario estimate. Exhaustion at
// either step leaves tagged fallback state behind instead of failing.
func (c *workflowController) processInput(ctx context.Context, project *models.Project) {
	result, err := c.orchestrator.Execute(ctx, OpInputProcessing, &ExecuteInput{
		ProjectID: project.ID,
		Variables: map[string]string{"raw_input": project.RawInput},
	})
	if err != nil {
		c.logger.Warn("input processing unavailable",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		project.MarkDegraded(OpInputProcessing)
		if project.Brief == nil {
			project.Brief = &models.Brief{
				MissingData:   true,
				MissingFields: []string{"mission", "objectives"},
			}
		}
		return
	}

	var brief models.Brief
	if err := json.Unmarshal([]byte(result.JSON), &brief); err != nil {
		// The orchestrator already validated required keys; a decode
		// failure here is unexpected but must not crash the pipeline.
		c.logger.Error("brief decode failed",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		project.MarkDegraded(OpInputProcessing)
		return
	}
	normalizeBrief(&brief, project)
	project.Brief = &brief
	project.ClearDegraded(OpInputProcessing)

	if project.Brief.Sufficient() {
		c.generateEstimate(ctx, project)
	}
}

// normalizeBrief reconciles extraction output with data the project already
// carries: a budget supplied at creation satisfies a "budget" missing field.
func normalizeBrief(brief *models.Brief, project *models.Project) {
	if project.Budget == nil {
		return
	}
	kept := brief.MissingFields[:0]
	for _, f := range brief.MissingFields {
		if !strings.EqualFold(f, "budget") {
			kept = append(kept, f)
		}
	}
	brief.MissingFields = kept
	if len(brief.MissingFields) == 0 {
		brief.MissingFields = nil
		brief.MissingData = brief.Mission == ""
	}
}

func (c *workflowController) generateEstimate(ctx context.Context, project *models.Project) {
	vars := map[string]string{
		"mission":     project.Brief.Mission,
		"objectives":  strings.Join(project.Brief.Objectives, "; "),
		"constraints": strings.Join(project.Brief.Constraints, "; "),
		"region":      project.Brief.Region,
	}
	if project.Budget != nil {
		vars["budget_instruction"] = fmt.Sprintf(
			"Hard budget cap: $%.2f. Fit scenario A under it; if scenario B cannot fit, say so explicitly.", *project.Budget)
	}

	result, err := c.orchestrator.Execute(ctx, OpEstimate, &ExecuteInput{ProjectID: project.ID, Variables: vars})
	if err != nil {
		c.logger.Warn("estimate generation unavailable",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		a, b := c.fallback.Scenarios(project.ID)
		project.ScenarioA = a
		project.ScenarioB = b
		project.ROIAnalysis = nil
		project.EstimateMarkdown = c.fallback.Respond(project.ID, models.StageInputProcessing)
		project.MarkDegraded(OpEstimate)
		c.applyBudgetConstraint(project)
		project.Status = models.StatusEstimateGenerated
		return
	}

	var payload estimatePayload
	if err := json.Unmarshal([]byte(result.JSON), &payload); err != nil {
		c.logger.Error("estimate decode failed",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		project.MarkDegraded(OpEstimate)
		return
	}

	project.ScenarioA = payload.ScenarioA
	project.ScenarioB = payload.ScenarioB
	project.ROIAnalysis = payload.ROIAnalysis
	project.EstimateMarkdown = payload.EstimateMarkdown
	project.ClearDegraded(OpEstimate)
	c.applyBudgetConstraint(project)
	project.Status = models.StatusEstimateGenerated
}

// applyBudgetConstraint enforces the budget invariant as a pure transform
// over whatever the provider returned.
func (c *workflowController) applyBudgetConstraint(project *models.Project) {
	if project.Budget == nil {
		return
	}
	budget := *project.Budget
	if project.ScenarioA != nil {
		project.ScenarioA.ApplyBudgetConstraint(budget, defaultBudgetDisclaimer)
	}
	if project.ScenarioB != nil {
		project.ScenarioB.ApplyBudgetConstraint(budget, defaultBudgetDisclaimer)
	}
}

func (c *workflowController) generateAssets(ctx context.Context, project *models.Project) error {
	vars := map[string]string{
		"estimate_markdown": project.EstimateMarkdown,
	}
	if project.Brief != nil {
		vars["mission"] = project.Brief.Mission
	}
	if project.SelectedScenario != nil {
		vars["selected_scenario"] = string(*project.SelectedScenario)
	}

	result, err := c.orchestrator.Execute(ctx, OpAssets, &ExecuteInput{ProjectID: project.ID, Variables: vars})
	if err != nil {
		return err
	}

	var payload struct {
		ProposalMarkdown string `json:"proposal_markdown"`
		ResearchMarkdown string `json:"research_markdown"`
	}
	if err := json.Unmarshal([]byte(result.JSON), &payload); err != nil {
		return fmt.Errorf("decode assets payload: %w", err)
	}

	project.ProposalMarkdown = payload.ProposalMarkdown
	project.ResearchMarkdown = payload.ResearchMarkdown
	return nil
}

func (c *workflowController) generateGuides(ctx context.Context, project *models.Project) error {
	vars := map[string]string{
		"estimate_markdown": project.EstimateMarkdown,
	}
	if project.Brief != nil {
		vars["mission"] = project.Brief.Mission
	}
	if project.SelectedScenario != nil {
		vars["selected_scenario"] = string(*project.SelectedScenario)
	}

	variants := []struct {
		name string
		dest *string
	}{
		{"high-code", &project.HighCodeGuide},
		{"no-code", &project.NoCodeGuide},
	}
	for _, v := range variants {
		vars["variant"] = v.name
		result, err := c.orchestrator.Execute(ctx, OpExecutionGuide, &ExecuteInput{ProjectID: project.ID, Variables: vars})
		if err != nil {
			return err
		}
		*v.dest = result.Content
	}
	return nil
}

func (c *workflowController) generateBreakdown(ctx context.Context, project *models.Project) error {
	vars := map[string]string{
		"execution_guide": project.HighCodeGuide,
	}
	if project.Brief != nil {
		vars["mission"] = project.Brief.Mission
	}
	if project.SelectedScenario != nil {
		vars["selected_scenario"] = string(*project.SelectedScenario)
	}

	result, err := c.orchestrator.Execute(ctx, OpPMBreakdown, &ExecuteInput{ProjectID: project.ID, Variables: vars})
	if err != nil {
		return err
	}

	payload := struct {
		Phases []models.Phase `json:"phases"`
	}{}
	if err := json.Unmarshal([]byte(result.JSON), &payload); err != nil {
		return fmt.Errorf("decode breakdown payload: %w", err)
	}
	project.PMBreakdown = &models.Breakdown{Phases: payload.Phases}
	return nil
}

// renderDocuments requests hosted PDFs for the proposal and research
// documents. Rendering is best-effort; a failure is logged and the URLs
// stay empty.
func (c *workflowController) renderDocuments(ctx context.Context, project *models.Project) {
	type doc struct {
		title    string
		markdown string
		dest     *string
	}
	docs := []doc{
		{"Proposal", project.ProposalMarkdown, &project.ProposalPDFURL},
		{"Research Report", project.ResearchMarkdown, &project.ReportPDFURL},
	}
	for _, d := range docs {
		if d.markdown == "" {
			continue
		}
		url, err := c.renderer.RenderPDF(ctx, project, d.title, d.markdown)
		if err != nil {
			c.logger.Warn("document render failed",
				zap.String("project_id", project.ID.String()),
				zap.String("title", d.title),
				zap.Error(err))
			continue
		}
		*d.dest = url
	}
}

// ===========================================================================
// Fallback substitution
// ===========================================================================

// The fallback helpers never overwrite live provider content. The degraded
// tag is only set when fallback text was actually written; an exhausted
// regenerate over fully populated fields leaves the project untagged.
func (c *workflowController) applyAssetFallback(project *models.Project) {
	content := c.fallback.Respond(project.ID, models.StageAssets)
	wrote := false
	if project.ProposalMarkdown == "" {
		project.ProposalMarkdown = content
		wrote = true
	}
	if project.ResearchMarkdown == "" {
		project.ResearchMarkdown = content
		wrote = true
	}
	if wrote {
		project.MarkDegraded(OpAssets)
	}
}

func (c *workflowController) applyGuideFallback(project *models.Project) {
	content := c.fallback.Respond(project.ID, models.StageExecutionGuides)
	wrote := false
	if project.HighCodeGuide == "" {
		project.HighCodeGuide = content
		wrote = true
	}
	if project.NoCodeGuide == "" {
		project.NoCodeGuide = content
		wrote = true
	}
	if wrote {
		project.MarkDegraded(OpExecutionGuide)
	}
}

func (c *workflowController) applyBreakdownFallback(project *models.Project) {
	if project.PMBreakdown != nil {
		return
	}
	content := c.fallback.Respond(project.ID, models.StagePMBreakdown)
	project.PMBreakdown = &models.Breakdown{
		Phases: []models.Phase{
			{
				Name:          "Delivery (placeholder)",
				DurationWeeks: 0,
				Tasks: []models.Task{
					{Title: "Regenerate the work breakdown", Checklist: []models.ChecklistItem{{Label: content}}},
				},
			},
		},
	}
	project.MarkDegraded(OpPMBreakdown)
}

// ===========================================================================
// Helpers
// ===========================================================================

func (c *workflowController) violation(project *models.Project, action Action, message string) error {
	return &apperrors.StageInvariantViolation{
		ProjectID: project.ID.String(),
		FromStage: int(project.CurrentStage),
		Action:    string(action),
		Message:   message,
	}
}

func (c *workflowController) save(ctx context.Context, project *models.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	project.UpdatedAt = time.Now().UTC()
	if err := c.projects.Update(ctx, project); err != nil {
		return apperrors.NewPersistence("update project", err)
	}
	return nil
}
