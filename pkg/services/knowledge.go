package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/repositories"
)

// KnowledgeService maintains the append-only corpus of approved outputs and
// serves retrieval context for prompt assembly. Entries are created only
// from approval events, never from raw provider output.
type KnowledgeService interface {
	// IndexApproval captures the approved estimate (and any research
	// produced alongside it) from the project into the corpus.
	IndexApproval(ctx context.Context, project *models.Project) error
	// RetrieveContext returns the most recent entries for a category,
	// joined into a single prompt-ready block. Empty corpus yields "".
	RetrieveContext(ctx context.Context, category string, limit int) (string, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error)
}

type knowledgeService struct {
	repo   repositories.KnowledgeRepository
	logger *zap.Logger
}

// NewKnowledgeService creates a KnowledgeService backed by the given repository.
func NewKnowledgeService(repo repositories.KnowledgeRepository, logger *zap.Logger) KnowledgeService {
	return &knowledgeService{
		repo:   repo,
		logger: logger.Named("knowledge"),
	}
}

var _ KnowledgeService = (*knowledgeService)(nil)

func (s *knowledgeService) IndexApproval(ctx context.Context, project *models.Project) error {
	if project.EstimateMarkdown == "" {
		return fmt.Errorf("cannot index approval: project %s has no estimate content", project.ID)
	}

	entry := &models.KnowledgeEntry{
		ID:              uuid.New(),
		Category:        models.KnowledgeCategoryApprovedEstimate,
		Content:         project.EstimateMarkdown,
		SourceProjectID: project.ID,
	}
	if project.SelectedScenario != nil {
		choice := *project.SelectedScenario
		entry.SelectedScenario = &choice
		if snapshot := project.ScenarioForChoice(choice); snapshot != nil {
			clone := *snapshot
			entry.ScenarioSnapshot = &clone
		}
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to index approved estimate: %w", err)
	}

	if project.ResearchMarkdown != "" {
		research := &models.KnowledgeEntry{
			ID:              uuid.New(),
			Category:        models.KnowledgeCategoryResearch,
			Content:         project.ResearchMarkdown,
			SourceProjectID: project.ID,
		}
		if err := s.repo.Insert(ctx, research); err != nil {
			return fmt.Errorf("failed to index research: %w", err)
		}
	}

	s.logger.Info("indexed approval",
		zap.String("project_id", project.ID.String()))
	return nil
}

func (s *knowledgeService) RetrieveContext(ctx context.Context, category string, limit int) (string, error) {
	entries, err := s.repo.GetByCategory(ctx, category, limit)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve knowledge context: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, entry.Content)
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}

func (s *knowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *knowledgeService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	return s.repo.GetByProject(ctx, projectID)
}
