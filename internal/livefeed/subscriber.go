package livefeed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"e2ectl/internal/platform"
	"e2ectl/pkg/logging"
)

const subsystem = "livefeed"

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	// closeGrace is how long a cancelled session waits for the server to
	// answer the close handshake before dropping the connection.
	closeGrace = time.Second
	// eventBuffer bounds the event channel; when the consumer lags, message
	// events are dropped rather than blocking the read loop.
	eventBuffer = 64
)

// State is the lifecycle state of a subscription session.
type State string

const (
	StateConnecting State = "Connecting"
	StateOpen       State = "Open"
	StateClosed     State = "Closed"
	StateFailed     State = "Failed"
)

// EventKind discriminates the events a session emits.
type EventKind string

const (
	// EventOpen reports a successful connect + authentication.
	EventOpen EventKind = "open"
	// EventMessage carries one inbound frame.
	EventMessage EventKind = "message"
	// EventTerminal reports that the receive loop has ended. Err is nil for
	// a graceful close and non-nil for a failure.
	EventTerminal EventKind = "terminal"
)

// Event is one occurrence on the session's event stream.
type Event struct {
	Kind    EventKind
	Payload []byte // set for EventMessage
	Err     error  // set for a failed EventTerminal
}

// authMsg is the single authentication frame sent right after connecting.
type authMsg struct {
	Token   string `json:"token"`
	ThingID string `json:"thingId"`
}

// Subscriber opens live-data sessions against the platform's reader
// endpoint.
type Subscriber struct {
	url    string
	dialer *websocket.Dialer
}

// New creates a subscriber for the given websocket URL, e.g.
// "ws://localhost:80/reader/thing".
func New(url string) *Subscriber {
	return &Subscriber{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Session is one open live-data subscription. It is owned by the goroutine
// Start spawns; callers interact only through the cancellation handle and
// the event/done channels, never the connection itself.
type Session struct {
	events chan Event
	done   chan struct{}

	cancel     context.CancelFunc
	cancelOnce sync.Once

	mu       sync.Mutex
	state    State
	err      error
	received int
}

// Start opens the streaming connection, authenticates as the given user for
// the given thing, and consumes inbound frames until the session is
// cancelled, the transport fails, or the remote side closes. The returned
// session is usable immediately; connection progress is reported through
// its event stream. The background goroutine never panics outward; every
// terminal path funnels into one transition that closes Done.
func (s *Subscriber) Start(ctx context.Context, userToken, thingID string) *Session {
	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
		state:  StateConnecting,
	}

	go s.run(runCtx, sess, userToken, thingID)
	return sess
}

func (s *Subscriber) run(ctx context.Context, sess *Session, userToken, thingID string) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			sess.finish(StateClosed, nil)
			return
		}
		sess.finish(StateFailed, &platform.TransportError{Op: "websocket dial", Err: err})
		return
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(authMsg{Token: userToken, ThingID: thingID}); err != nil {
		conn.Close()
		sess.finish(StateFailed, &platform.TransportError{Op: "websocket auth frame", Err: err})
		return
	}

	sess.setState(StateOpen)
	sess.emit(Event{Kind: EventOpen})
	logging.Info(subsystem, "live feed open for thing %s", thingID)

	// Unblock the read loop on cancellation: try a clean close handshake,
	// then drop the connection.
	go func() {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			time.Sleep(closeGrace)
			conn.Close()
		case <-sess.done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			switch {
			case ctx.Err() != nil:
				// Cancelled by us: a graceful stop, whatever the read error says.
				sess.finish(StateClosed, nil)
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				logging.Info(subsystem, "live feed closed by remote")
				sess.finish(StateClosed, nil)
			default:
				sess.finish(StateFailed, &platform.TransportError{Op: "websocket receive", Err: err})
			}
			return
		}

		sess.mu.Lock()
		sess.received++
		sess.mu.Unlock()
		logging.Debug(subsystem, "received frame (%d bytes)", len(payload))
		sess.emit(Event{Kind: EventMessage, Payload: payload})
	}
}

// Cancel requests a graceful stop of the receive loop. It returns
// immediately; wait on Done for the loop to actually finish.
func (sess *Session) Cancel() {
	sess.cancelOnce.Do(sess.cancel)
}

// Done closes once the receive loop has fully stopped. Waiting on it before
// tearing the fixture down guarantees no open connection still references
// the identity being deleted.
func (sess *Session) Done() <-chan struct{} {
	return sess.done
}

// Events returns the session's event stream. Message events may be dropped
// if the consumer lags; Received stays accurate regardless.
func (sess *Session) Events() <-chan Event {
	return sess.events
}

// State returns the session's current lifecycle state.
func (sess *Session) State() State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Err returns the terminal error, if the session failed.
func (sess *Session) Err() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.err
}

// Received returns how many frames the session has observed.
func (sess *Session) Received() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.received
}

func (sess *Session) setState(state State) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = state
}

// finish records the terminal state exactly once, emits the terminal event
// and releases anyone waiting on Done.
func (sess *Session) finish(state State, err error) {
	sess.mu.Lock()
	sess.state = state
	sess.err = err
	sess.mu.Unlock()

	if err != nil {
		logging.Error(subsystem, err, "live feed terminated")
	}
	sess.emit(Event{Kind: EventTerminal, Err: err})
	sess.cancelOnce.Do(sess.cancel) // release the closer goroutine's ctx
	close(sess.done)
}

// emit delivers an event without ever blocking the read loop.
func (sess *Session) emit(ev Event) {
	select {
	case sess.events <- ev:
	default:
		logging.Debug(subsystem, "event buffer full, dropping %s event", ev.Kind)
	}
}
