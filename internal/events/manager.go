package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event represents a system event with typed data
// The Data field holds the JSON form of an EventData value
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// GetTypedData attempts to convert the Data map to typed EventData
// Returns the typed data if conversion is successful, nil otherwise
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case RefreshStarted:
		data = &RefreshStartedData{}
	case RefreshStatusChanged:
		data = &RefreshStatusChangedData{}
	case PriceRefreshCompleted:
		data = &PriceRefreshCompletedData{}
	case PriceUpdated:
		data = &PriceUpdatedData{}
	case CacheInvalidated:
		data = &CacheInvalidatedData{}
	case SettingsChanged:
		data = &SettingsChangedData{}
	case ProviderStatusChanged:
		data = &ProviderStatusChangedData{}
	case MarketsStatusChanged:
		data = &MarketsStatusChangedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event to the bus and logs it
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)
	m.logEvent(eventType, module, data)
}

// EmitTyped emits an event with typed data to the bus and logs it
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	m.Emit(eventType, module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

// logEvent logs status churn at debug and everything else at info.
func (m *Manager) logEvent(eventType EventType, module string, data map[string]interface{}) {
	dataJSON, _ := json.Marshal(data)

	evt := m.log.Info()
	if eventType == RefreshStatusChanged {
		evt = m.log.Debug()
	}
	evt.Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("data", dataJSON).
		Msg("Event emitted")
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
