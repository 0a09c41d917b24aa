// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Price refresh lifecycle
	RefreshStarted        EventType = "REFRESH_STARTED"
	RefreshStatusChanged  EventType = "REFRESH_STATUS_CHANGED"
	PriceRefreshCompleted EventType = "PRICE_REFRESH_COMPLETED"
	PriceUpdated          EventType = "PRICE_UPDATED"
	CacheInvalidated      EventType = "CACHE_INVALIDATED"

	// Settings and provider state
	SettingsChanged       EventType = "SETTINGS_CHANGED"
	ProviderStatusChanged EventType = "PROVIDER_STATUS_CHANGED"
	MarketsStatusChanged  EventType = "MARKETS_STATUS_CHANGED"
	ErrorOccurred         EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the service emits, in stream order.
var AllEventTypes = []EventType{
	RefreshStarted,
	RefreshStatusChanged,
	PriceRefreshCompleted,
	PriceUpdated,
	CacheInvalidated,
	SettingsChanged,
	ProviderStatusChanged,
	MarketsStatusChanged,
	ErrorOccurred,
}
