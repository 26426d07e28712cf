package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgelane/proposal-engine/pkg/models"
)

func TestHealthStore_OverwritesPerService(t *testing.T) {
	store := NewHealthStore(nil, zap.NewNop())
	ctx := context.Background()

	store.Update(ctx, HealthNamespaceProviders, "openai", models.HealthError, 2*time.Second, "timeout")
	store.Update(ctx, HealthNamespaceProviders, "openai", models.HealthOnline, 800*time.Millisecond, "")

	entry, ok := store.Get(HealthNamespaceProviders, "openai")
	require.True(t, ok)
	// Only the most recent reading survives.
	assert.Equal(t, models.HealthOnline, entry.Status)
	assert.Equal(t, 800*time.Millisecond, entry.LastLatency)
	assert.Empty(t, entry.LastError)
}

func TestHealthStore_NamespacesDoNotCollide(t *testing.T) {
	store := NewHealthStore(nil, zap.NewNop())
	ctx := context.Background()

	store.Update(ctx, HealthNamespaceProviders, "svc", models.HealthOnline, 0, "")
	store.Update(ctx, "delivery", "svc", models.HealthError, 0, "smtp down")

	provider, ok := store.Get(HealthNamespaceProviders, "svc")
	require.True(t, ok)
	assert.Equal(t, models.HealthOnline, provider.Status)

	delivery, ok := store.Get("delivery", "svc")
	require.True(t, ok)
	assert.Equal(t, models.HealthError, delivery.Status)

	assert.Len(t, store.Snapshot(), 2)
}

func TestHealthStore_Reset(t *testing.T) {
	store := NewHealthStore(nil, zap.NewNop())
	ctx := context.Background()

	store.Update(ctx, HealthNamespaceProviders, "openai", models.HealthOnline, 0, "")
	require.NoError(t, store.Reset(ctx))

	_, ok := store.Get(HealthNamespaceProviders, "openai")
	assert.False(t, ok)
	assert.Empty(t, store.Snapshot())
}
