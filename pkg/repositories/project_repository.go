// Package repositories provides data access for proposal-engine entities.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/models"
)

// ProjectRepository provides data access for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	List(ctx context.Context) ([]*models.Project, error)
	// Wipe hard-deletes the project. The only physical delete path.
	Wipe(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

var _ ProjectRepository = (*projectRepository)(nil)

const projectColumns = `
	id, client_name, client_email, current_stage, status, raw_input, brief,
	budget, scenario_a, scenario_b, selected_scenario, roi_analysis,
	estimate_markdown, proposal_markdown, research_markdown, highcode_guide,
	nocode_guide, pm_breakdown, proposal_pdf_url, report_pdf_url,
	presentation_url, degraded_ops, final_approved_at, created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	now := time.Now()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO engine_projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := r.pool.Exec(ctx, query, projectArgs(project)...)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM engine_projects WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()

	query := `
		UPDATE engine_projects SET
			client_name = $2, client_email = $3, current_stage = $4, status = $5,
			raw_input = $6, brief = $7, budget = $8, scenario_a = $9,
			scenario_b = $10, selected_scenario = $11, roi_analysis = $12,
			estimate_markdown = $13, proposal_markdown = $14, research_markdown = $15,
			highcode_guide = $16, nocode_guide = $17, pm_breakdown = $18,
			proposal_pdf_url = $19, report_pdf_url = $20, presentation_url = $21,
			degraded_ops = $22, final_approved_at = $23, created_at = $24,
			updated_at = $25
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, projectArgs(project)...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) List(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM engine_projects ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) Wipe(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM engine_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to wipe project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ============================================================================
// Helper Functions - Args / Scan
// ============================================================================

func projectArgs(p *models.Project) []any {
	return []any{
		p.ID, p.ClientName, nullableString(p.ClientEmail), int(p.CurrentStage),
		string(p.Status), p.RawInput, toJSONB(p.Brief), p.Budget,
		toJSONB(p.ScenarioA), toJSONB(p.ScenarioB), scenarioChoiceString(p.SelectedScenario),
		toJSONB(p.ROIAnalysis), nullableString(p.EstimateMarkdown),
		nullableString(p.ProposalMarkdown),
		nullableString(p.ResearchMarkdown), nullableString(p.HighCodeGuide),
		nullableString(p.NoCodeGuide), toJSONB(p.PMBreakdown),
		nullableString(p.ProposalPDFURL), nullableString(p.ReportPDFURL),
		nullableString(p.PresentationURL), toJSONB(p.DegradedOps),
		p.FinalApprovedAt, p.CreatedAt, p.UpdatedAt,
	}
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	var stage int
	var status string
	var clientEmail, selectedScenario *string
	var estimateMD, proposalMD, researchMD, highCode, noCode *string
	var proposalURL, reportURL, presentationURL *string
	var brief, scenarioA, scenarioB, roi, breakdown, degradedOps []byte

	err := row.Scan(
		&p.ID, &p.ClientName, &clientEmail, &stage, &status, &p.RawInput, &brief,
		&p.Budget, &scenarioA, &scenarioB, &selectedScenario, &roi,
		&estimateMD, &proposalMD, &researchMD, &highCode, &noCode,
		&breakdown, &proposalURL, &reportURL, &presentationURL,
		&degradedOps, &p.FinalApprovedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	p.CurrentStage = models.Stage(stage)
	p.Status = models.ProjectStatus(status)
	p.ClientEmail = derefString(clientEmail)
	p.EstimateMarkdown = derefString(estimateMD)
	p.ProposalMarkdown = derefString(proposalMD)
	p.ResearchMarkdown = derefString(researchMD)
	p.HighCodeGuide = derefString(highCode)
	p.NoCodeGuide = derefString(noCode)
	p.ProposalPDFURL = derefString(proposalURL)
	p.ReportPDFURL = derefString(reportURL)
	p.PresentationURL = derefString(presentationURL)

	if selectedScenario != nil {
		choice := models.ScenarioChoice(*selectedScenario)
		p.SelectedScenario = &choice
	}

	if err := fromJSONB(brief, &p.Brief); err != nil {
		return nil, fmt.Errorf("failed to decode brief: %w", err)
	}
	if err := fromJSONB(scenarioA, &p.ScenarioA); err != nil {
		return nil, fmt.Errorf("failed to decode scenario_a: %w", err)
	}
	if err := fromJSONB(scenarioB, &p.ScenarioB); err != nil {
		return nil, fmt.Errorf("failed to decode scenario_b: %w", err)
	}
	if err := fromJSONB(roi, &p.ROIAnalysis); err != nil {
		return nil, fmt.Errorf("failed to decode roi_analysis: %w", err)
	}
	if err := fromJSONB(breakdown, &p.PMBreakdown); err != nil {
		return nil, fmt.Errorf("failed to decode pm_breakdown: %w", err)
	}
	if err := fromJSONB(degradedOps, &p.DegradedOps); err != nil {
		return nil, fmt.Errorf("failed to decode degraded_ops: %w", err)
	}

	return &p, nil
}

func scenarioChoiceString(c *models.ScenarioChoice) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toJSONB marshals a value for a JSONB column; nil pointers become SQL NULL.
func toJSONB(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case *models.Brief:
		if val == nil {
			return nil
		}
	case *models.Scenario:
		if val == nil {
			return nil
		}
	case *models.ROIAnalysis:
		if val == nil {
			return nil
		}
	case *models.Breakdown:
		if val == nil {
			return nil
		}
	case []string:
		if val == nil {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// fromJSONB unmarshals a JSONB column into target; NULL leaves target untouched.
func fromJSONB(data []byte, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
