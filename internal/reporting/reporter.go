package reporting

import (
	"sync"

	"e2ectl/pkg/logging"
)

// Reporter receives run events from components. Implementations must be
// goroutine-safe: the publisher and the live feed session report
// concurrently.
type Reporter interface {
	Report(event RunEvent)
}

// ConsoleReporter logs run events through the pkg/logging package.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new ConsoleReporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// Report logs the event at a level matching its severity
func (c *ConsoleReporter) Report(event RunEvent) {
	subsystem := event.Source
	if subsystem == "" {
		subsystem = "run"
	}

	switch event.Severity {
	case SeverityError:
		logging.Error(subsystem, event.Err, "%s: %s", event.EventType, event.Message)
	case SeverityWarn:
		if event.Err != nil {
			logging.Warn(subsystem, "%s: %s (error: %v)", event.EventType, event.Message, event.Err)
		} else {
			logging.Warn(subsystem, "%s: %s", event.EventType, event.Message)
		}
	case SeverityDebug:
		logging.Debug(subsystem, "%s: %s", event.EventType, event.Message)
	default:
		logging.Info(subsystem, "%s: %s", event.EventType, event.Message)
	}
}

// Recorder keeps every reported event in memory. It backs the run outcome
// summary and doubles as a trace in tests.
type Recorder struct {
	mu     sync.Mutex
	events []RunEvent
}

// NewRecorder creates a new Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report appends the event to the record
func (r *Recorder) Report(event RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of all recorded events in report order
func (r *Recorder) Events() []RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Warnings returns the subset of recorded events with warn severity
func (r *Recorder) Warnings() []RunEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RunEvent
	for _, ev := range r.events {
		if ev.Severity == SeverityWarn {
			out = append(out, ev)
		}
	}
	return out
}

// MultiReporter fans out each event to several reporters, typically a
// console reporter plus a recorder.
type MultiReporter struct {
	reporters []Reporter
}

// NewMultiReporter creates a reporter that forwards to all given reporters
func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

// Report forwards the event to every underlying reporter
func (m *MultiReporter) Report(event RunEvent) {
	for _, r := range m.reporters {
		r.Report(event)
	}
}
