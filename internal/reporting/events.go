package reporting

import (
	"fmt"
	"time"
)

// EventType defines the type of run event
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted     EventType = "run.started"
	EventTypeRunProvisioned EventType = "run.provisioned"
	EventTypeRunDraining    EventType = "run.draining"
	EventTypeRunCleanup     EventType = "run.cleanup"
	EventTypeRunInterrupted EventType = "run.interrupted"
	EventTypeRunFinished    EventType = "run.finished"

	// Telemetry events
	EventTypeTelemetryConnected EventType = "telemetry.connected"
	EventTypeTelemetryPublished EventType = "telemetry.published"
	EventTypeTelemetryFailed    EventType = "telemetry.failed"

	// Live feed events
	EventTypeFeedOpened  EventType = "livefeed.opened"
	EventTypeFeedMessage EventType = "livefeed.message"
	EventTypeFeedClosed  EventType = "livefeed.closed"

	// Warnings that do not fail the run on their own
	EventTypeWarning EventType = "run.warning"
)

// EventSeverity indicates the importance of an event
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

// RunEvent is a single observable step of a run. Components emit these
// through a Reporter; reporters decide how to render or record them.
type RunEvent struct {
	EventType EventType     `json:"type"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Severity  EventSeverity `json:"severity"`
	Message   string        `json:"message"`
	Err       error         `json:"error,omitempty"`
}

// String returns a human-readable description of the event
func (e RunEvent) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s from %s: %s (error: %v)", e.EventType, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("%s from %s: %s", e.EventType, e.Source, e.Message)
}

// NewEvent creates a run event with the current timestamp
func NewEvent(eventType EventType, source, msgFmt string, args ...interface{}) RunEvent {
	return RunEvent{
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now(),
		Severity:  severityFor(eventType),
		Message:   fmt.Sprintf(msgFmt, args...),
	}
}

// NewWarning creates a warning event carrying a non-fatal error
func NewWarning(source string, err error, msgFmt string, args ...interface{}) RunEvent {
	return RunEvent{
		EventType: EventTypeWarning,
		Source:    source,
		Timestamp: time.Now(),
		Severity:  SeverityWarn,
		Message:   fmt.Sprintf(msgFmt, args...),
		Err:       err,
	}
}

// NewFailure creates an error event for a step that failed
func NewFailure(eventType EventType, source string, err error, msgFmt string, args ...interface{}) RunEvent {
	return RunEvent{
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now(),
		Severity:  SeverityError,
		Message:   fmt.Sprintf(msgFmt, args...),
		Err:       err,
	}
}

func severityFor(eventType EventType) EventSeverity {
	switch eventType {
	case EventTypeWarning:
		return SeverityWarn
	case EventTypeTelemetryFailed:
		return SeverityError
	case EventTypeFeedMessage, EventTypeTelemetryPublished:
		return SeverityDebug
	default:
		return SeverityInfo
	}
}
