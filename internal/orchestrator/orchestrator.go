package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"e2ectl/internal/config"
	"e2ectl/internal/fixture"
	"e2ectl/internal/livefeed"
	"e2ectl/internal/platform"
	"e2ectl/internal/reporting"
	"e2ectl/internal/telemetry"
	"e2ectl/pkg/logging"
)

const subsystem = "orchestrator"

// teardownTimeout bounds fixture teardown. Teardown runs on its own
// context so an interrupt cannot cancel it mid-flight.
const teardownTimeout = 30 * time.Second

// ErrDrainTimeout signals that the live feed session did not stop within
// the configured drain window. It surfaces as a warning, never as a run
// failure.
var ErrDrainTimeout = errors.New("live feed did not stop within the drain window")

// RunState identifies where a run currently is in its lifecycle.
type RunState string

const (
	StateIdle                RunState = "Idle"
	StateProvisioning        RunState = "Provisioning"
	StateStreamingPublishing RunState = "StreamingPublishing"
	StateDraining            RunState = "Draining"
	StateCleaningUp          RunState = "CleaningUp"
	StateDone                RunState = "Done"
	StateInterrupted         RunState = "Interrupted"
)

// FixtureManager provisions and tears down the user/thing pair a run
// exercises.
type FixtureManager interface {
	Provision(ctx context.Context, spec config.IdentitySpec) (*fixture.TestFixture, error)
	Teardown(ctx context.Context, fix *fixture.TestFixture) error
}

// Publisher pushes telemetry samples to the broker.
type Publisher interface {
	Connect(ctx context.Context) error
	Disconnect()
	Publish(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error
}

// FeedSession is a live feed subscription in flight.
type FeedSession interface {
	Cancel()
	Done() <-chan struct{}
	Events() <-chan livefeed.Event
	State() livefeed.State
	Err() error
	Received() int
}

// FeedSubscriber opens live feed sessions.
type FeedSubscriber interface {
	Start(ctx context.Context, userToken, thingID string) FeedSession
}

// feedAdapter narrows *livefeed.Subscriber to the FeedSubscriber interface.
type feedAdapter struct {
	sub *livefeed.Subscriber
}

func (a feedAdapter) Start(ctx context.Context, userToken, thingID string) FeedSession {
	return a.sub.Start(ctx, userToken, thingID)
}

// NewFeedSubscriber wraps a livefeed subscriber for use by the
// orchestrator.
func NewFeedSubscriber(sub *livefeed.Subscriber) FeedSubscriber {
	return feedAdapter{sub: sub}
}

// Config holds everything a run needs. All component fields are required;
// Reporter defaults to the console reporter when nil.
type Config struct {
	Fixtures  FixtureManager
	Publisher Publisher
	Feed      FeedSubscriber
	Reporter  reporting.Reporter

	Identity config.IdentitySpec
	Run      config.RunSettings
}

// Outcome summarizes a finished run.
type Outcome struct {
	Succeeded   bool
	FinalState  RunState
	Interrupted bool

	// Fixture ids for auditing, set as soon as provisioning succeeds.
	UserID  string
	ThingID string

	Published int
	Received  int

	Warnings []reporting.RunEvent
	Err      error
}

// Orchestrator runs the end-to-end exercise. A single Orchestrator value
// performs a single run; state is not reset between calls.
type Orchestrator struct {
	fixtures  FixtureManager
	publisher Publisher
	feed      FeedSubscriber
	reporter  reporting.Reporter
	recorder  *reporting.Recorder

	identity config.IdentitySpec
	settings config.RunSettings

	// buildSample is swappable for deterministic tests
	buildSample func() telemetry.Sample

	mu    sync.Mutex
	state RunState
}

// New creates an orchestrator for one run.
func New(cfg Config) *Orchestrator {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = reporting.NewConsoleReporter()
	}
	recorder := reporting.NewRecorder()

	return &Orchestrator{
		fixtures:    cfg.Fixtures,
		publisher:   cfg.Publisher,
		feed:        cfg.Feed,
		reporter:    reporting.NewMultiReporter(reporter, recorder),
		recorder:    recorder,
		identity:    cfg.Identity,
		settings:    cfg.Run,
		buildSample: telemetry.BuildSample,
		state:       StateIdle,
	}
}

// State returns the current run state.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(state RunState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
	logging.Debug(subsystem, "State: %s", state)
}

// Run executes the full exercise: provision, stream and publish, drain,
// clean up. The returned Outcome is always non-nil; err mirrors
// Outcome.Err for convenience at the call site.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{FinalState: StateIdle}
	o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunStarted, subsystem,
		"exercising platform as %s with thing %q", o.identity.UserEmail, o.identity.ThingName))

	o.setState(StateProvisioning)
	fix, err := o.fixtures.Provision(ctx, o.identity)
	if err != nil {
		// The manager rolled back anything it half-created, so there is
		// nothing to clean up here.
		out.Err = err
		out.FinalState = StateProvisioning
		o.finish(out)
		return out, err
	}
	out.UserID = fix.UserID
	out.ThingID = fix.ThingID
	o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunProvisioned, "fixture",
		"user %s with thing %s", fix.UserID, fix.ThingID))

	o.setState(StateStreamingPublishing)
	var sess FeedSession
	if err := o.publisher.Connect(ctx); err != nil {
		out.Err = err
		o.reporter.Report(reporting.NewFailure(reporting.EventTypeTelemetryFailed, "telemetry", err,
			"connecting to broker"))
	} else {
		o.reporter.Report(reporting.NewEvent(reporting.EventTypeTelemetryConnected, "telemetry",
			"connected to broker"))
		sess = o.feed.Start(ctx, fix.UserToken, fix.ThingID)
		o.reporter.Report(reporting.NewEvent(reporting.EventTypeFeedOpened, "livefeed",
			"subscribed to live feed for thing %s", fix.ThingID))
		go o.forwardFeedEvents(sess)
		out.Published = o.publishBurst(ctx, fix, out)
	}

	o.drain(sess, out)
	o.cleanup(fix, out, sess != nil)

	out.Succeeded = out.Err == nil && !out.Interrupted && out.Published == o.settings.SampleCount
	o.finish(out)
	return out, out.Err
}

// forwardFeedEvents relays the session's event stream into the run's
// reporter so every live feed frame shows up in the event trace. It stops
// once the session reaches a terminal event, draining anything still
// buffered when the done channel closes first.
func (o *Orchestrator) forwardFeedEvents(sess FeedSession) {
	for {
		select {
		case ev := <-sess.Events():
			if o.relayFeedEvent(ev) {
				return
			}
		case <-sess.Done():
			for {
				select {
				case ev := <-sess.Events():
					if o.relayFeedEvent(ev) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// relayFeedEvent reports a single feed event, returning true when the
// event was terminal.
func (o *Orchestrator) relayFeedEvent(ev livefeed.Event) bool {
	switch ev.Kind {
	case livefeed.EventMessage:
		o.reporter.Report(reporting.NewEvent(reporting.EventTypeFeedMessage, "livefeed",
			"frame received (%d bytes)", len(ev.Payload)))
	case livefeed.EventTerminal:
		return true
	}
	return false
}

// publishBurst sends the configured number of samples with a fixed delay
// between them. It returns how many publishes were acknowledged.
func (o *Orchestrator) publishBurst(ctx context.Context, fix *fixture.TestFixture, out *Outcome) int {
	published := 0
	for i := 1; i <= o.settings.SampleCount; i++ {
		if o.interrupted(ctx, out) {
			return published
		}

		sample := o.buildSample()
		if err := o.publisher.Publish(ctx, fix.ThingID, fix.ThingToken, sample); err != nil {
			if o.interrupted(ctx, out) {
				return published
			}
			if platform.IsTransient(err) {
				o.reporter.Report(reporting.NewWarning("telemetry", err,
					"sample %d/%d not delivered", i, o.settings.SampleCount))
				continue
			}
			// Contract violation: further samples prove nothing
			out.Err = err
			o.reporter.Report(reporting.NewFailure(reporting.EventTypeTelemetryFailed, "telemetry", err,
				"aborting burst at sample %d/%d", i, o.settings.SampleCount))
			return published
		}

		published++
		o.reporter.Report(reporting.NewEvent(reporting.EventTypeTelemetryPublished, "telemetry",
			"sample %d/%d on %s", i, o.settings.SampleCount, telemetry.TopicForThing(fix.ThingID)))

		if i < o.settings.SampleCount && o.settings.PublishInterval > 0 {
			select {
			case <-time.After(o.settings.PublishInterval):
			case <-ctx.Done():
			}
		}
	}
	return published
}

// interrupted reports whether the run context was cancelled and records
// the interruption once.
func (o *Orchestrator) interrupted(ctx context.Context, out *Outcome) bool {
	if ctx.Err() == nil {
		return false
	}
	if !out.Interrupted {
		out.Interrupted = true
		o.setState(StateInterrupted)
		o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunInterrupted, subsystem,
			"interrupt received, shutting down"))
	}
	return true
}

// drain stops the live feed session and waits for its read loop, bounded
// by the drain timeout. The wait deliberately ignores the run context so
// that an interrupt still gets a bounded drain instead of none.
func (o *Orchestrator) drain(sess FeedSession, out *Outcome) {
	o.setState(StateDraining)
	if sess == nil {
		return
	}
	o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunDraining, subsystem,
		"waiting up to %s for the live feed to settle", o.settings.DrainTimeout))

	sess.Cancel()
	select {
	case <-sess.Done():
		out.Received = sess.Received()
		if err := sess.Err(); err != nil {
			o.reporter.Report(reporting.NewWarning("livefeed", err, "live feed ended abnormally"))
		} else {
			o.reporter.Report(reporting.NewEvent(reporting.EventTypeFeedClosed, "livefeed",
				"live feed closed after %d frames", out.Received))
		}
	case <-time.After(o.settings.DrainTimeout):
		out.Received = sess.Received()
		o.reporter.Report(reporting.NewWarning("livefeed", ErrDrainTimeout,
			"abandoning live feed in state %s", sess.State()))
	}
}

// cleanup disconnects the publisher and tears the fixture down. Teardown
// errors become warnings; the run result is already decided.
func (o *Orchestrator) cleanup(fix *fixture.TestFixture, out *Outcome, connected bool) {
	o.setState(StateCleaningUp)
	o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunCleanup, subsystem,
		"removing user %s and thing %s", fix.UserID, fix.ThingID))

	if connected {
		o.publisher.Disconnect()
	}

	tctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := o.fixtures.Teardown(tctx, fix); err != nil {
		o.reporter.Report(reporting.NewWarning("fixture", err,
			"cleanup incomplete, run `e2ectl clean` to finish"))
	}
}

// finish records the terminal state and snapshots warnings on the outcome.
func (o *Orchestrator) finish(out *Outcome) {
	if out.FinalState == StateIdle {
		out.FinalState = StateDone
	}
	o.setState(StateDone)
	out.Warnings = o.recorder.Warnings()

	verdict := "succeeded"
	if !out.Succeeded {
		verdict = "failed"
	}
	if out.Interrupted {
		verdict = "interrupted"
	}
	o.reporter.Report(reporting.NewEvent(reporting.EventTypeRunFinished, subsystem,
		"run %s: published %d, received %d, warnings %d",
		verdict, out.Published, out.Received, len(out.Warnings)))
}

// Events returns the full event trace recorded during the run.
func (o *Orchestrator) Events() []reporting.RunEvent {
	return o.recorder.Events()
}
