package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgelane/proposal-engine/pkg/apperrors"
	"github.com/forgelane/proposal-engine/pkg/models"
)

// KnowledgeRepository provides data access for indexed knowledge entries.
// Entries are append-only; there is no update path.
type KnowledgeRepository interface {
	Insert(ctx context.Context, entry *models.KnowledgeEntry) error
	GetByCategory(ctx context.Context, category string, limit int) ([]*models.KnowledgeEntry, error)
	GetByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type knowledgeRepository struct {
	pool *pgxpool.Pool
}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(pool *pgxpool.Pool) KnowledgeRepository {
	return &knowledgeRepository{pool: pool}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

func (r *knowledgeRepository) Insert(ctx context.Context, entry *models.KnowledgeEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO engine_knowledge_entries (
			id, category, content, source_project_id, scenario_snapshot,
			selected_scenario, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.Category, entry.Content, entry.SourceProjectID,
		toJSONB(entry.ScenarioSnapshot), scenarioChoiceString(entry.SelectedScenario),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge entry: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) GetByCategory(ctx context.Context, category string, limit int) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT id, category, content, source_project_id, scenario_snapshot,
			selected_scenario, created_at
		FROM engine_knowledge_entries
		WHERE category = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge entries: %w", err)
	}
	defer rows.Close()

	return collectKnowledgeEntries(rows)
}

func (r *knowledgeRepository) GetByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	query := `
		SELECT id, category, content, source_project_id, scenario_snapshot,
			selected_scenario, created_at
		FROM engine_knowledge_entries
		WHERE source_project_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge entries: %w", err)
	}
	defer rows.Close()

	return collectKnowledgeEntries(rows)
}

func (r *knowledgeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM engine_knowledge_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func collectKnowledgeEntries(rows pgx.Rows) ([]*models.KnowledgeEntry, error) {
	entries := make([]*models.KnowledgeEntry, 0)
	for rows.Next() {
		var e models.KnowledgeEntry
		var snapshot []byte
		var selected *string

		err := rows.Scan(&e.ID, &e.Category, &e.Content, &e.SourceProjectID,
			&snapshot, &selected, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}

		if err := fromJSONB(snapshot, &e.ScenarioSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode scenario snapshot: %w", err)
		}
		if selected != nil {
			choice := models.ScenarioChoice(*selected)
			e.SelectedScenario = &choice
		}

		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge entries: %w", err)
	}
	return entries, nil
}
