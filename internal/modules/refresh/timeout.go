package refresh

import "time"

const (
	// BatchBudget is the worst-case server processing time of one batch.
	BatchBudget = 65 * time.Second
	// SafetyMargin is added once on top of the per-batch budget.
	SafetyMargin = 30 * time.Second
	// PollInterval is the status fetch cadence.
	PollInterval = 2 * time.Second
	// ScheduleSpec is the cron spec of the background refresh timer.
	ScheduleSpec = "@every 15m"
	// MessageClearDelay is how long the completion message stays visible.
	MessageClearDelay = 4 * time.Second
)

// TimeoutBudget returns how long a session may poll before giving up:
// (totalBatches*65 + 30) seconds. Values below 1 are treated as 1.
func TimeoutBudget(totalBatches int) time.Duration {
	if totalBatches < 1 {
		totalBatches = 1
	}
	return time.Duration(totalBatches)*BatchBudget + SafetyMargin
}
