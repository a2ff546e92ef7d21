package services

import (
	"context"
	"testing"

	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkVisited(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	p := NewPreferencesService(ctx, testState(t, store))

	assert.True(t, p.MarkVisited(ctx))
	assert.False(t, p.MarkVisited(ctx))

	raw, err := store.Load(ctx, keyHasVisitedBefore)
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))

	reloaded := NewPreferencesService(ctx, testState(t, store))
	assert.False(t, reloaded.MarkVisited(ctx))
}

func TestOnboardingFlag(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	p := NewPreferencesService(ctx, testState(t, store))
	assert.False(t, p.OnboardingComplete())

	p.CompleteOnboarding(ctx)
	assert.True(t, p.OnboardingComplete())
	assert.True(t, NewPreferencesService(ctx, testState(t, store)).OnboardingComplete())

	p.ResetOnboarding(ctx)
	assert.False(t, p.OnboardingComplete())
	assert.False(t, NewPreferencesService(ctx, testState(t, store)).OnboardingComplete())
}

func TestFlagsOnlyAcceptTrue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Save(ctx, keyOnboardingComplete, []byte("yes")))
	require.NoError(t, store.Save(ctx, keyHasVisitedBefore, []byte(`"true"`)))

	p := NewPreferencesService(ctx, testState(t, store))
	assert.False(t, p.OnboardingComplete())
	assert.True(t, p.MarkVisited(ctx))
}

func TestPreferencesStorageFailure(t *testing.T) {
	ctx := context.Background()
	p := NewPreferencesService(ctx, testState(t, failingStorage{}))
	assert.True(t, p.MarkVisited(ctx))
	p.CompleteOnboarding(ctx)
	assert.True(t, p.OnboardingComplete())
}
