package services

import (
	"context"
	"strings"
	"sync"
)

const (
	// MaxRecentlyViewed caps the recently viewed product history
	MaxRecentlyViewed = 10
	// MaxRecentSearches caps the saved search terms
	MaxRecentSearches = 5
)

// HistoryService keeps recently viewed products and recent searches for one session
type HistoryService struct {
	mu       sync.Mutex
	viewed   []int64
	searches []string
	state    sessionState
}

// NewHistoryService creates the history and loads any persisted entries
func NewHistoryService(ctx context.Context, state sessionState) *HistoryService {
	s := &HistoryService{state: state}

	var viewed []int64
	if state.load(ctx, keyRecentlyViewed, &viewed) {
		s.viewed = dedupe(viewed, MaxRecentlyViewed, func(id int64) bool { return id > 0 })
	}

	var searches []string
	if state.load(ctx, keyRecentSearches, &searches) {
		for i := range searches {
			searches[i] = strings.TrimSpace(searches[i])
		}
		s.searches = dedupe(searches, MaxRecentSearches, func(term string) bool { return term != "" })
	}
	return s
}

// RecordView moves productID to the front of the recently viewed list
func (s *HistoryService) RecordView(ctx context.Context, productID int64) {
	if productID <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewed = pushFront(s.viewed, productID, MaxRecentlyViewed)
	s.state.save(ctx, keyRecentlyViewed, s.viewed)
}

// RecentlyViewed returns product ids, most recent first
func (s *HistoryService) RecentlyViewed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.viewed))
	copy(out, s.viewed)
	return out
}

// SaveSearch records a search term. Blank terms are ignored.
func (s *HistoryService) SaveSearch(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = pushFront(s.searches, term, MaxRecentSearches)
	s.state.save(ctx, keyRecentSearches, s.searches)
}

// RecentSearches returns search terms, most recent first
func (s *HistoryService) RecentSearches() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.searches))
	copy(out, s.searches)
	return out
}

// ClearSearches forgets all recent searches
func (s *HistoryService) ClearSearches(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = nil
	s.state.delete(ctx, keyRecentSearches)
}

// pushFront returns list with v first, any earlier copy of v removed, trimmed to limit
func pushFront[T comparable](list []T, v T, limit int) []T {
	out := make([]T, 0, limit)
	out = append(out, v)
	for _, x := range list {
		if len(out) == limit {
			break
		}
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// dedupe keeps the first occurrence of each valid value, up to limit values
func dedupe[T comparable](list []T, limit int, valid func(T) bool) []T {
	out := make([]T, 0, limit)
	seen := make(map[T]struct{}, len(list))
	for _, v := range list {
		if len(out) == limit {
			break
		}
		if _, dup := seen[v]; dup || !valid(v) {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
