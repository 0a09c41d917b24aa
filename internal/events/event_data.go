package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RefreshStartedData contains data for RefreshStarted events
type RefreshStartedData struct {
	SessionID     string `json:"session_id"`
	Force         bool   `json:"force"`
	Source        string `json:"source"` // "submit" or "discovery"
	TotalBatches  int    `json:"total_batches"`
	TimeoutBudget int64  `json:"timeout_budget_ms"`
}

// EventType returns the event type for RefreshStartedData
func (d *RefreshStartedData) EventType() EventType {
	return RefreshStarted
}

// RefreshStatusChangedData is a compact summary of the orchestrator state
type RefreshStatusChangedData struct {
	Enabled          bool    `json:"enabled"`
	SettingPhase     string  `json:"setting_phase"`
	Running          bool    `json:"running"`
	SessionID        string  `json:"session_id,omitempty"`
	Message          string  `json:"message"`
	CompletedSymbols int     `json:"completed_symbols"`
	TotalSymbols     int     `json:"total_symbols"`
	ProgressPercent  float64 `json:"progress_percent"`
}

// EventType returns the event type for RefreshStatusChangedData
func (d *RefreshStatusChangedData) EventType() EventType {
	return RefreshStatusChanged
}

// PriceRefreshCompletedData contains data for PriceRefreshCompleted events
type PriceRefreshCompletedData struct {
	SessionID        string  `json:"session_id"`
	Outcome          string  `json:"outcome"` // "completed" or "timed_out"
	CompletedSymbols int     `json:"completed_symbols"`
	TotalSymbols     int     `json:"total_symbols"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Error            string  `json:"error,omitempty"`
}

// EventType returns the event type for PriceRefreshCompletedData
func (d *PriceRefreshCompletedData) EventType() EventType {
	return PriceRefreshCompleted
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	PricesSynced bool `json:"prices_synced"`
	Count        int  `json:"count"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// CacheInvalidatedData lists the view caches dropped after a refresh
type CacheInvalidatedData struct {
	SessionID string           `json:"session_id,omitempty"`
	Caches    []string         `json:"caches"`
	Deleted   map[string]int64 `json:"deleted,omitempty"`
}

// EventType returns the event type for CacheInvalidatedData
func (d *CacheInvalidatedData) EventType() EventType {
	return CacheInvalidated
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
	Phase string      `json:"phase,omitempty"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// ProviderStatusChangedData reports whether the upstream price provider has credentials
type ProviderStatusChangedData struct {
	Provider     string `json:"provider"`
	IsConfigured bool   `json:"is_configured"`
}

// EventType returns the event type for ProviderStatusChangedData
func (d *ProviderStatusChangedData) EventType() EventType {
	return ProviderStatusChanged
}

// MarketsStatusChangedData contains data for MarketsStatusChanged events
type MarketsStatusChangedData struct {
	Open     bool   `json:"open"`
	Timezone string `json:"timezone"`
}

// EventType returns the event type for MarketsStatusChangedData
func (d *MarketsStatusChangedData) EventType() EventType {
	return MarketsStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
