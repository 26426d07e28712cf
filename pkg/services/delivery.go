package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/models"
)

// DocumentRenderer turns markdown content into hosted documents. Rendering
// happens outside this process; implementations report success or failure
// and return the hosted URL.
type DocumentRenderer interface {
	RenderPDF(ctx context.Context, project *models.Project, title, markdown string) (string, error)
}

// EmailSender delivers proposal documents to the client address on file.
type EmailSender interface {
	SendProposal(ctx context.Context, project *models.Project) error
}

// loggingRenderer is the default renderer used when no external rendering
// integration is configured. It logs the request and returns no URL.
type loggingRenderer struct {
	logger *zap.Logger
}

// NewLoggingRenderer creates a DocumentRenderer that only logs.
func NewLoggingRenderer(logger *zap.Logger) DocumentRenderer {
	return &loggingRenderer{logger: logger.Named("renderer")}
}

func (r *loggingRenderer) RenderPDF(_ context.Context, project *models.Project, title, markdown string) (string, error) {
	r.logger.Info("document render skipped, no renderer configured",
		zap.String("project_id", project.ID.String()),
		zap.String("title", title),
		zap.Int("content_bytes", len(markdown)))
	return "", nil
}

// loggingSender is the default sender used when no email integration is
// configured.
type loggingSender struct {
	logger *zap.Logger
}

// NewLoggingSender creates an EmailSender that only logs.
func NewLoggingSender(logger *zap.Logger) EmailSender {
	return &loggingSender{logger: logger.Named("email")}
}

func (s *loggingSender) SendProposal(_ context.Context, project *models.Project) error {
	s.logger.Info("proposal email skipped, no sender configured",
		zap.String("project_id", project.ID.String()),
		zap.String("client_email", project.ClientEmail))
	return nil
}
