package services

import (
	"context"
	"sync"
)

const flagTrue = "true"

// PreferencesService holds the first-visit and onboarding flags for one session
type PreferencesService struct {
	mu                 sync.Mutex
	visited            bool
	onboardingComplete bool
	state              sessionState
}

// NewPreferencesService loads the persisted flags. Anything other than the
// stored string "true" reads as false.
func NewPreferencesService(ctx context.Context, state sessionState) *PreferencesService {
	s := &PreferencesService{state: state}
	if v, ok := state.loadRaw(ctx, keyHasVisitedBefore); ok {
		s.visited = string(v) == flagTrue
	}
	if v, ok := state.loadRaw(ctx, keyOnboardingComplete); ok {
		s.onboardingComplete = string(v) == flagTrue
	}
	return s
}

// MarkVisited records a visit and reports whether it was the first one
func (s *PreferencesService) MarkVisited(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visited {
		return false
	}
	s.visited = true
	s.state.saveRaw(ctx, keyHasVisitedBefore, []byte(flagTrue))
	return true
}

// OnboardingComplete reports whether the onboarding tour was finished
func (s *PreferencesService) OnboardingComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onboardingComplete
}

// CompleteOnboarding marks the onboarding tour as finished
func (s *PreferencesService) CompleteOnboarding(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboardingComplete = true
	s.state.saveRaw(ctx, keyOnboardingComplete, []byte(flagTrue))
}

// ResetOnboarding clears the flag so the tour is shown again
func (s *PreferencesService) ResetOnboarding(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboardingComplete = false
	s.state.delete(ctx, keyOnboardingComplete)
}
