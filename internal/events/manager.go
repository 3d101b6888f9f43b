// Package events is a minimal structured-logging event bus used for
// cross-component notifications that don't warrant a direct dependency
// (e.g. preference-cache invalidation). Grounded on the teacher's
// internal/events.Manager.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a kind of event.
type EventType string

const (
	UserPreferencesUpdated EventType = "USER_PREFERENCES_UPDATED"
	ConfigurationReloaded  EventType = "CONFIGURATION_RELOADED"
	ScheduleFailed         EventType = "SCHEDULE_FAILED"
	SignalSuperseded       EventType = "SIGNAL_SUPERSEDED"
	SignalDispatchFailed   EventType = "SIGNAL_DISPATCH_FAILED"
	ErrorOccurred          EventType = "ERROR_OCCURRED"
)

// Event is one emitted occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Listener receives events synchronously, in emission order.
type Listener func(Event)

// Manager emits events, logs them, and fans them out to subscribed
// listeners (e.g. the preference cache's invalidation hook).
type Manager struct {
	log       zerolog.Logger
	listeners map[EventType][]Listener
}

// NewManager creates a new event manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:       log.With().Str("service", "events").Logger(),
		listeners: make(map[EventType][]Listener),
	}
}

// On registers a listener for a given event type.
func (m *Manager) On(t EventType, l Listener) {
	m.listeners[t] = append(m.listeners[t], l)
}

// Emit emits an event: logs it, then invokes any registered listeners.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Info().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	for _, l := range m.listeners[eventType] {
		l(event)
	}
}

// EmitError emits an ErrorOccurred event carrying err and context.
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}
