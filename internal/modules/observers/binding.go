// Package observers binds UI surfaces to the shared refresh orchestrator.
// Bindings hold display state only; the orchestrator owns every timer.
package observers

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/rs/zerolog"
)

// Source is the orchestrator surface an observer binds to.
type Source interface {
	Snapshot() refresh.Snapshot
	Subscribe(fn func(refresh.Snapshot)) func()
	Refresh(ctx context.Context, force bool) error
	SetEnabled(ctx context.Context, enabled bool) error
	Discover(ctx context.Context) (bool, error)
}

// View is what a surface renders.
type View struct {
	StatusLine   string               `json:"status_line"`
	Running      bool                 `json:"running"`
	Enabled      bool                 `json:"enabled"`
	SettingPhase refresh.SettingPhase `json:"setting_phase"`
	Mounted      bool                 `json:"mounted"`
}

type binding struct {
	source Source
	format func(refresh.Snapshot) string
	log    zerolog.Logger

	mu          sync.Mutex
	unsubscribe func()
	view        View
	// applied is the UpdatedAt of the newest snapshot shown.
	applied time.Time
}

func newBinding(source Source, format func(refresh.Snapshot) string, log zerolog.Logger) *binding {
	return &binding{source: source, format: format, log: log}
}

// Mount subscribes to the orchestrator and checks for a job already
// running on the server. Mounting twice is a no-op.
func (b *binding) Mount(ctx context.Context) {
	b.mu.Lock()
	if b.view.Mounted {
		b.mu.Unlock()
		return
	}
	b.view.Mounted = true
	b.mu.Unlock()

	unsubscribe := b.source.Subscribe(b.apply)

	b.mu.Lock()
	if !b.view.Mounted {
		// Unmounted while subscribing
		b.mu.Unlock()
		unsubscribe()
		return
	}
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.apply(b.source.Snapshot())

	if _, err := b.source.Discover(ctx); err != nil {
		b.log.Debug().Err(err).Msg("Mount-time status check failed")
	}
}

// Unmount stops receiving updates. Server jobs keep running.
func (b *binding) Unmount() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.view.Mounted = false
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// View returns the current display state.
func (b *binding) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// StatusLine returns the human-readable status.
func (b *binding) StatusLine() string {
	return b.View().StatusLine
}

// Running reports whether the surface shows a refresh in progress.
func (b *binding) Running() bool {
	return b.View().Running
}

// Refresh requests a forced refresh, as the refresh button does.
func (b *binding) Refresh(ctx context.Context) error {
	return b.source.Refresh(ctx, true)
}

// Toggle changes the auto-refresh setting.
func (b *binding) Toggle(ctx context.Context, enabled bool) error {
	return b.source.SetEnabled(ctx, enabled)
}

func (b *binding) apply(snap refresh.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.view.Mounted || snap.UpdatedAt.Before(b.applied) {
		return
	}
	b.applied = snap.UpdatedAt
	b.view.StatusLine = b.format(snap)
	b.view.Running = snap.Running
	b.view.Enabled = snap.Enabled
	b.view.SettingPhase = snap.SettingPhase
}
