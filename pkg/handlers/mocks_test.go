package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/services"
)

// mockWorkflow is a configurable mock of the workflow controller.
// Set the function fields to control behavior in tests.
type mockWorkflow struct {
	CreateProjectFunc func(ctx context.Context, input services.CreateProjectInput) (*models.Project, error)
	GetProjectFunc    func(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjectsFunc  func(ctx context.Context) ([]*models.Project, error)
	AdvanceStageFunc  func(ctx context.Context, projectID uuid.UUID, action services.Action, params services.ActionParams) (*models.Project, error)
	RegenerateFunc    func(ctx context.Context, projectID uuid.UUID, operation string) (*models.Project, error)
	ChatFunc          func(ctx context.Context, projectID uuid.UUID, message string) (string, error)
	WipeFunc          func(ctx context.Context, projectID uuid.UUID) error

	AdvanceStageCalls int
	WipeCalls         int
}

var _ services.WorkflowController = (*mockWorkflow)(nil)

func (m *mockWorkflow) CreateProject(ctx context.Context, input services.CreateProjectInput) (*models.Project, error) {
	return m.CreateProjectFunc(ctx, input)
}

func (m *mockWorkflow) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	return m.GetProjectFunc(ctx, projectID)
}

func (m *mockWorkflow) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return m.ListProjectsFunc(ctx)
}

func (m *mockWorkflow) AdvanceStage(ctx context.Context, projectID uuid.UUID, action services.Action, params services.ActionParams) (*models.Project, error) {
	m.AdvanceStageCalls++
	return m.AdvanceStageFunc(ctx, projectID, action, params)
}

func (m *mockWorkflow) Regenerate(ctx context.Context, projectID uuid.UUID, operation string) (*models.Project, error) {
	return m.RegenerateFunc(ctx, projectID, operation)
}

func (m *mockWorkflow) Chat(ctx context.Context, projectID uuid.UUID, message string) (string, error) {
	return m.ChatFunc(ctx, projectID, message)
}

func (m *mockWorkflow) Wipe(ctx context.Context, projectID uuid.UUID) error {
	m.WipeCalls++
	if m.WipeFunc != nil {
		return m.WipeFunc(ctx, projectID)
	}
	return nil
}
