package refresh

import (
	"context"
	"fmt"
	"sync"
)

// SettingPhase tracks the persisted auto-refresh flag through a write.
type SettingPhase string

const (
	PhaseUnknown   SettingPhase = "unknown"
	PhasePending   SettingPhase = "pending"
	PhaseConfirmed SettingPhase = "confirmed"
	PhaseFailed    SettingPhase = "failed"
)

// SettingStore persists the auto-refresh flag on the server.
type SettingStore interface {
	GetRealtimePricing(ctx context.Context) (bool, error)
	SetRealtimePricing(ctx context.Context, enabled bool) error
}

// Setting mirrors the server-owned auto-refresh flag. A failed write
// reverts the local value instead of leaving the optimistic one in place.
type Setting struct {
	store SettingStore

	mu    sync.Mutex
	value bool
	phase SettingPhase
	err   error
}

// NewSetting creates a setting in the unknown phase.
func NewSetting(store SettingStore) *Setting {
	return &Setting{store: store, phase: PhaseUnknown}
}

// Load reads the persisted value.
func (s *Setting) Load(ctx context.Context) (bool, error) {
	enabled, err := s.store.GetRealtimePricing(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return s.value, fmt.Errorf("failed to load refresh setting: %w", err)
	}
	s.value = enabled
	s.phase = PhaseConfirmed
	s.err = nil
	return enabled, nil
}

// Begin records the requested value as pending and returns the previous one.
func (s *Setting) Begin(enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.value
	s.value = enabled
	s.phase = PhasePending
	s.err = nil
	return prev
}

// Resolve completes a write started with Begin. On error the previous
// value is restored.
func (s *Setting) Resolve(prev bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.value = prev
		s.phase = PhaseFailed
		s.err = err
		return
	}
	s.phase = PhaseConfirmed
}

// Set persists enabled, moving through pending to confirmed or failed.
// pending, if not nil, runs once the pending value is visible.
func (s *Setting) Set(ctx context.Context, enabled bool, pending func()) error {
	prev := s.Begin(enabled)
	if pending != nil {
		pending()
	}
	err := s.store.SetRealtimePricing(ctx, enabled)
	s.Resolve(prev, err)
	if err != nil {
		return fmt.Errorf("failed to persist refresh setting: %w", err)
	}
	return nil
}

// Fail marks a confirmed value as not taking effect locally. The
// persisted value is kept since the server already accepted it.
func (s *Setting) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseFailed
	s.err = err
}

// Value returns the current value and phase.
func (s *Setting) Value() (bool, SettingPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.phase
}

// Err returns the error of the last failed load or write.
func (s *Setting) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
