package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forgelane/proposal-engine/pkg/models"
)

// HealthRepository persists last-known provider/service health. One row per
// service, overwritten on every call completion.
type HealthRepository interface {
	Upsert(ctx context.Context, health *models.APIHealth) error
	List(ctx context.Context) ([]*models.APIHealth, error)
	DeleteAll(ctx context.Context) error
}

type healthRepository struct {
	pool *pgxpool.Pool
}

// NewHealthRepository creates a new HealthRepository.
func NewHealthRepository(pool *pgxpool.Pool) HealthRepository {
	return &healthRepository{pool: pool}
}

var _ HealthRepository = (*healthRepository)(nil)

func (r *healthRepository) Upsert(ctx context.Context, health *models.APIHealth) error {
	if health.LastChecked.IsZero() {
		health.LastChecked = time.Now()
	}

	query := `
		INSERT INTO engine_api_health (service, status, last_latency_ms, last_checked, last_error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (service)
		DO UPDATE SET
			status = EXCLUDED.status,
			last_latency_ms = EXCLUDED.last_latency_ms,
			last_checked = EXCLUDED.last_checked,
			last_error = EXCLUDED.last_error`

	_, err := r.pool.Exec(ctx, query,
		health.Service, string(health.Status), health.LastLatency.Milliseconds(),
		health.LastChecked, nullableString(health.LastError),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert api health: %w", err)
	}
	return nil
}

func (r *healthRepository) List(ctx context.Context) ([]*models.APIHealth, error) {
	query := `
		SELECT service, status, last_latency_ms, last_checked, last_error
		FROM engine_api_health
		ORDER BY service`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list api health: %w", err)
	}
	defer rows.Close()

	result := make([]*models.APIHealth, 0)
	for rows.Next() {
		var h models.APIHealth
		var status string
		var latencyMs int64
		var lastError *string

		if err := rows.Scan(&h.Service, &status, &latencyMs, &h.LastChecked, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan api health: %w", err)
		}

		h.Status = models.HealthStatus(status)
		h.LastLatency = time.Duration(latencyMs) * time.Millisecond
		h.LastError = derefString(lastError)
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api health: %w", err)
	}
	return result, nil
}

func (r *healthRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM engine_api_health`); err != nil {
		return fmt.Errorf("failed to reset api health: %w", err)
	}
	return nil
}
