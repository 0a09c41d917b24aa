package observers

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/dashboard/internal/events"
	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/rs/zerolog"
)

const (
	// BannerDismissedKey stores the epoch-ms of the last banner dismissal.
	BannerDismissedKey = "twelvedata_banner_dismissed_at"
	// BannerSnooze is how long a dismissed banner stays hidden.
	BannerSnooze = 7 * 24 * time.Hour
)

// ProviderStatus reports whether the price provider has credentials.
type ProviderStatus interface {
	GetProviderStatus(ctx context.Context) (bool, error)
}

// BannerStore persists the banner dismissal timestamp.
type BannerStore interface {
	GetInt64(key string) (int64, bool, error)
	SetInt64(key string, value int64) error
}

// PriceManagementView is the detailed refresh panel of the price management tab.
type PriceManagementView struct {
	*binding

	provider ProviderStatus
	store    BannerStore
	events   *events.Manager
}

// NewPriceManagementView creates an unmounted price management view.
// eventManager may be nil.
func NewPriceManagementView(source Source, provider ProviderStatus, store BannerStore, eventManager *events.Manager, log zerolog.Logger) *PriceManagementView {
	log = log.With().Str("observer", "price_management").Logger()
	return &PriceManagementView{
		binding:  newBinding(source, managementStatus, log),
		provider: provider,
		store:    store,
		events:   eventManager,
	}
}

// ShouldShowProviderBanner reports whether the "API key not configured"
// banner is due: the provider lacks credentials and the banner was not
// dismissed within the last 7 days.
func (v *PriceManagementView) ShouldShowProviderBanner(ctx context.Context, now time.Time) (bool, error) {
	configured, err := v.provider.GetProviderStatus(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check provider status: %w", err)
	}

	if v.events != nil {
		v.events.EmitTyped(events.ProviderStatusChanged, "observers", &events.ProviderStatusChangedData{
			Provider:     "twelvedata",
			IsConfigured: configured,
		})
	}

	if configured {
		return false, nil
	}

	dismissedAt, ok, err := v.store.GetInt64(BannerDismissedKey)
	if err != nil {
		return false, fmt.Errorf("failed to read banner dismissal: %w", err)
	}
	if !ok {
		return true, nil
	}
	return now.Sub(time.UnixMilli(dismissedAt)) >= BannerSnooze, nil
}

// DismissProviderBanner hides the banner for the next 7 days.
func (v *PriceManagementView) DismissProviderBanner(now time.Time) error {
	if err := v.store.SetInt64(BannerDismissedKey, now.UnixMilli()); err != nil {
		return fmt.Errorf("failed to store banner dismissal: %w", err)
	}
	return nil
}

func managementStatus(snap refresh.Snapshot) string {
	var parts []string

	switch {
	case snap.Running && snap.Status != nil && snap.Status.TotalSymbols > 0:
		line := fmt.Sprintf("Refreshing %d/%d symbols (%.0f%%)",
			snap.Status.CompletedSymbols, snap.Status.TotalSymbols, snap.Status.ProgressPercent)
		if snap.Status.MinutesRemaining > 0 {
			line += fmt.Sprintf(", ~%d min remaining", int(math.Ceil(snap.Status.MinutesRemaining)))
		}
		parts = append(parts, line)
	case snap.Message != "":
		parts = append(parts, snap.Message)
	case snap.Running:
		parts = append(parts, "Refreshing prices…")
	}

	if snap.SettingPhase == refresh.PhaseFailed {
		parts = append(parts, "Could not save auto-refresh setting")
	}
	return strings.Join(parts, " · ")
}
