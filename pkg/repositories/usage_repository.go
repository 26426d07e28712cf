package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgelane/proposal-engine/pkg/models"
)

// ProviderTotals is an aggregate of usage records for one provider.
type ProviderTotals struct {
	Provider string             `json:"provider"`
	Totals   models.UsageTotals `json:"totals"`
}

// UsageRepository provides append-only access to the usage ledger.
type UsageRepository interface {
	Insert(ctx context.Context, record *models.UsageRecord) error
	AggregateByProject(ctx context.Context, projectID uuid.UUID) (*models.UsageTotals, error)
	AggregateByProvider(ctx context.Context) ([]ProviderTotals, error)
}

type usageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(pool *pgxpool.Pool) UsageRepository {
	return &usageRepository{pool: pool}
}

var _ UsageRepository = (*usageRepository)(nil)

func (r *usageRepository) Insert(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO engine_usage_records (
			id, project_id, provider, model, operation, input_tokens,
			output_tokens, cost, duration_ms, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		record.ID, record.ProjectID, record.Provider, record.Model,
		record.Operation, record.InputTokens, record.OutputTokens,
		record.Cost, record.DurationMs, record.Status,
		nullableString(record.ErrorMessage), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

func (r *usageRepository) AggregateByProject(ctx context.Context, projectID uuid.UUID) (*models.UsageTotals, error) {
	// COALESCE keeps zero-record aggregation a zeroed result, not an error.
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'success'),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM engine_usage_records
		WHERE project_id = $1`

	var totals models.UsageTotals
	err := r.pool.QueryRow(ctx, query, projectID).Scan(
		&totals.Calls, &totals.Failures, &totals.InputTokens,
		&totals.OutputTokens, &totals.Cost, &totals.AvgLatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by project: %w", err)
	}
	return &totals, nil
}

func (r *usageRepository) AggregateByProvider(ctx context.Context) ([]ProviderTotals, error) {
	query := `
		SELECT provider, COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'success'),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(cost), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM engine_usage_records
		GROUP BY provider
		ORDER BY provider`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by provider: %w", err)
	}
	defer rows.Close()

	result := make([]ProviderTotals, 0)
	for rows.Next() {
		var pt ProviderTotals
		err := rows.Scan(&pt.Provider, &pt.Totals.Calls, &pt.Totals.Failures,
			&pt.Totals.InputTokens, &pt.Totals.OutputTokens,
			&pt.Totals.Cost, &pt.Totals.AvgLatencyMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider totals: %w", err)
		}
		result = append(result, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider totals: %w", err)
	}
	return result, nil
}
