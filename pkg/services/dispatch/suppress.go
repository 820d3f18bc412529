package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// StateStore persists the last alert sent per identity. Get returns
// (nil, nil) when no state exists yet.
type StateStore interface {
	Get(ctx context.Context, identityID string) (*domain.AlertState, error)
	Put(ctx context.Context, state domain.AlertState) error
}

// Suppressor drops repeat alerts for identities already notified at the same
// level inside the suppression window. Store read failures fail open, a lost
// alert is worse than a repeated one.
type Suppressor struct {
	store  StateStore
	window time.Duration
}

func NewSuppressor(store StateStore, window time.Duration) *Suppressor {
	return &Suppressor{store: store, window: window}
}

// Filter returns the findings that should still alert at now. A finding
// passes when it has no prior state, when its level changed, or when the
// window since the last alert expired.
func (s *Suppressor) Filter(ctx context.Context, findings []domain.Finding, now time.Time) []domain.Finding {
	logger := zerolog.Ctx(ctx)

	kept := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		state, err := s.store.Get(ctx, f.IdentityID)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("identity_id", f.IdentityID).
				Msg("alert state read failed, alerting anyway")
			kept = append(kept, f)
			continue
		}
		if state == nil || state.Level != f.Level || now.Sub(state.LastAlerted) > s.window {
			kept = append(kept, f)
			continue
		}
		logger.Info().
			Str("identity_id", f.IdentityID).
			Str("level", f.Level.String()).
			Time("last_alerted", state.LastAlerted).
			Msg("alert suppressed")
	}
	return kept
}

// Record persists alert state for notified findings.
func (s *Suppressor) Record(ctx context.Context, findings []domain.Finding, now time.Time) error {
	for _, f := range findings {
		state := domain.AlertState{
			IdentityID:  f.IdentityID,
			Level:       f.Level,
			LastAlerted: now,
		}
		if err := s.store.Put(ctx, state); err != nil {
			return fmt.Errorf("failed to record alert state for %s: %w", f.IdentityID, err)
		}
	}
	return nil
}

// MemoryStateStore keeps alert state in process, for tests and one-shot runs.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.AlertState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]domain.AlertState)}
}

func (m *MemoryStateStore) Get(_ context.Context, identityID string) (*domain.AlertState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[identityID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *MemoryStateStore) Put(_ context.Context, state domain.AlertState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.IdentityID] = state
	return nil
}
