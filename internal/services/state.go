package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/metrics"
	"github.com/SigNoz/freshmart-storefront/internal/storage"
	"github.com/sirupsen/logrus"
)

// Persisted keys, one per store, within a session namespace
const (
	keyCart               = "cart"
	keyWishlist           = "wishlist"
	keyRecentlyViewed     = "recentlyViewed"
	keyRecentSearches     = "recentSearches"
	keyHasVisitedBefore   = "hasVisitedBefore"
	keyOnboardingComplete = "onboardingComplete"
	keyOrders             = "orders"
)

// sessionState is what every per-session store needs to persist itself.
// Storage failures never escape it: loads fall back to empty state and saves
// are best effort, both logged and counted.
type sessionState struct {
	sessionID string
	store     storage.Storage
	metrics   *metrics.AppMetrics
	log       logrus.FieldLogger
}

// loadRaw returns the stored bytes for key, or false when there is nothing usable
func (s sessionState) loadRaw(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	data, err := s.store.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		s.metrics.RecordStorageOp(ctx, "load", key, start, true)
		return nil, false
	}
	s.metrics.RecordStorageOp(ctx, "load", key, start, err == nil)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("state unreadable, starting empty")
		s.metrics.RecordFallback(ctx, key, "load_failed")
		return nil, false
	}
	return data, true
}

// load decodes the JSON stored under key into v. It reports whether v was filled.
func (s sessionState) load(ctx context.Context, key string, v any) bool {
	data, ok := s.loadRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("state corrupted, starting empty")
		s.metrics.RecordFallback(ctx, key, "corrupt")
		return false
	}
	return true
}

func (s sessionState) saveRaw(ctx context.Context, key string, data []byte) {
	start := time.Now()
	err := s.store.Save(ctx, key, data)
	s.metrics.RecordStorageOp(ctx, "save", key, start, err == nil)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to persist state")
		s.metrics.RecordFallback(ctx, key, "save_failed")
	}
}

// save persists v as JSON under key
func (s sessionState) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("failed to encode state")
		return
	}
	s.saveRaw(ctx, key, data)
}

func (s sessionState) delete(ctx context.Context, key string) {
	start := time.Now()
	err := s.store.Delete(ctx, key)
	s.metrics.RecordStorageOp(ctx, "delete", key, start, err == nil)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to delete state")
		s.metrics.RecordFallback(ctx, key, "delete_failed")
	}
}
