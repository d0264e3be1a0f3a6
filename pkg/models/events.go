package models

import "time"

type EventType string

const (
	EventTypeSnapshotCollected EventType = "snapshot_collected"
	EventTypeDecisionMade      EventType = "decision_made"
	EventTypeScalingStarted    EventType = "scaling_started"
	EventTypeScalingApplied    EventType = "scaling_applied"
	EventTypeScalingFailed     EventType = "scaling_failed"
	EventTypeRunnerReaped      EventType = "runner_reaped"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}
