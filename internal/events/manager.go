// Package events is the progress sink of the relay. Every event is logged and
// the most recent ones are kept in memory for the status server.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	RunStarted        EventType = "RUN_STARTED"
	RunCompleted      EventType = "RUN_COMPLETED"
	RunFailed         EventType = "RUN_FAILED"
	FileParsed        EventType = "FILE_PARSED"
	FileSkipped       EventType = "FILE_SKIPPED"
	BatchStarted      EventType = "BATCH_STARTED"
	DeliveryAttempt   EventType = "DELIVERY_ATTEMPT"
	DeliverySucceeded EventType = "DELIVERY_SUCCEEDED"
	DeliveryFailed    EventType = "DELIVERY_FAILED"
	ErrorOccurred     EventType = "ERROR_OCCURRED"
)

// DefaultHistory is the number of events kept for Recent.
const DefaultHistory = 200

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Emitter is the subset of Manager used by the pipeline components.
type Emitter interface {
	Emit(eventType EventType, module string, data map[string]interface{})
}

// Manager handles event emission and logging
type Manager struct {
	log     zerolog.Logger
	now     func() time.Time
	mu      sync.Mutex
	history []Event
	limit   int
}

// NewManager creates a new event manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:   log.With().Str("service", "events").Logger(),
		now:   time.Now,
		limit: DefaultHistory,
	}
}

// Emit emits an event
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: m.now(),
		Data:      data,
		Module:    module,
	}

	m.mu.Lock()
	m.history = append(m.history, event)
	if len(m.history) > m.limit {
		m.history = append([]Event(nil), m.history[len(m.history)-m.limit:]...)
	}
	m.mu.Unlock()

	level := zerolog.InfoLevel
	if eventType == DeliveryFailed || eventType == RunFailed || eventType == ErrorOccurred || eventType == FileSkipped {
		level = zerolog.WarnLevel
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		m.log.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode event")
		return
	}
	m.log.WithLevel(level).
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	data := map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	}
	m.Emit(ErrorOccurred, module, data)
}

// Recent returns up to n of the latest events, oldest first.
func (m *Manager) Recent(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.history) {
		n = len(m.history)
	}
	out := make([]Event, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}
