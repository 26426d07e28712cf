package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/models"
	"github.com/forgelane/proposal-engine/pkg/repositories"
)

// HealthNamespaceProviders is the namespace under which AI provider
// health entries are kept.
const HealthNamespaceProviders = "ai_providers"

// HealthStore keeps the latest health reading for each external service
// in memory, namespaced so provider entries do not collide with other
// integrations. Writes are mirrored to the database best-effort; a
// failed mirror write never fails the caller.
type HealthStore struct {
	mu      sync.RWMutex
	entries map[string]*models.APIHealth

	repo   repositories.HealthRepository
	logger *zap.Logger
}

// NewHealthStore creates an empty store. repo may be nil, in which case
// readings are kept in memory only.
func NewHealthStore(repo repositories.HealthRepository, logger *zap.Logger) *HealthStore {
	return &HealthStore{
		entries: make(map[string]*models.APIHealth),
		repo:    repo,
		logger:  logger.Named("health_store"),
	}
}

// Update overwrites the reading for (namespace, service). Only the most
// recent observation is retained.
func (s *HealthStore) Update(ctx context.Context, namespace, service string, status models.HealthStatus, latency time.Duration, errMsg string) {
	entry := &models.APIHealth{
		Service:     namespace + "/" + service,
		Status:      status,
		LastLatency: latency,
		LastChecked: time.Now().UTC(),
		LastError:   errMsg,
	}

	s.mu.Lock()
	s.entries[entry.Service] = entry
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Upsert(ctx, entry); err != nil {
			s.logger.Warn("health write-through failed",
				zap.String("service", entry.Service),
				zap.Error(err))
		}
	}
}

// Get returns the latest reading for (namespace, service), if any.
func (s *HealthStore) Get(namespace, service string) (*models.APIHealth, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[namespace+"/"+service]
	if !ok {
		return nil, false
	}
	clone := *entry
	return &clone, true
}

// Snapshot returns all current readings sorted by service key.
func (s *HealthStore) Snapshot() []*models.APIHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.APIHealth, 0, len(s.entries))
	for _, entry := range s.entries {
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// Reset clears all readings, in memory and in the database.
func (s *HealthStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*models.APIHealth)
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.DeleteAll(ctx); err != nil {
			return err
		}
	}
	return nil
}
