package realtime

import "time"

// EventType names a dashboard event
type EventType string

const (
	EventAnalysisLog    EventType = "analysis_log"
	EventMarketStateLog EventType = "market_state_log"
	EventRunStarted     EventType = "run_started"
	EventRunFinished    EventType = "run_finished"
	EventConfigUpdated  EventType = "config_updated"
)

// Event is one message pushed to websocket subscribers
// ⭐ SSOT: 대시보드 실시간 이벤트 구조
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher accepts events for fan-out. Implementations must not block.
type Publisher interface {
	Publish(evt Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(Event) {}
