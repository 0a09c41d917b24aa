package observers

import (
	"fmt"

	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/rs/zerolog"
)

// HeaderWidget is the compact refresh indicator in the persistent top bar.
type HeaderWidget struct {
	*binding
}

// NewHeaderWidget creates an unmounted header widget.
func NewHeaderWidget(source Source, log zerolog.Logger) *HeaderWidget {
	log = log.With().Str("observer", "header").Logger()
	return &HeaderWidget{binding: newBinding(source, headerStatus, log)}
}

func headerStatus(snap refresh.Snapshot) string {
	if !snap.Running {
		return snap.Message
	}
	if snap.Status != nil && snap.Status.TotalSymbols > 0 {
		return fmt.Sprintf("Updating prices %.0f%%", snap.Status.ProgressPercent)
	}
	if snap.Message != "" {
		return snap.Message
	}
	return "Updating prices…"
}
