package orchestrator

import (
	"context"
	"sync"

	"e2ectl/internal/config"
	"e2ectl/internal/fixture"
	"e2ectl/internal/livefeed"
	"e2ectl/internal/telemetry"
)

// mockFixtureManager is a mock implementation of FixtureManager for testing
type mockFixtureManager struct {
	mu sync.Mutex

	// Function hooks for testing
	provisionFunc func(ctx context.Context, spec config.IdentitySpec) (*fixture.TestFixture, error)
	teardownFunc  func(ctx context.Context, fix *fixture.TestFixture) error

	provisionCalls int
	teardownCalls  int
}

func (m *mockFixtureManager) Provision(ctx context.Context, spec config.IdentitySpec) (*fixture.TestFixture, error) {
	m.mu.Lock()
	m.provisionCalls++
	m.mu.Unlock()

	if m.provisionFunc != nil {
		return m.provisionFunc(ctx, spec)
	}
	return &fixture.TestFixture{
		UserID:     "user-1",
		ThingID:    "thing-1",
		AdminToken: "admin-token",
		UserToken:  "user-token",
		ThingToken: "thing-token",
	}, nil
}

func (m *mockFixtureManager) Teardown(ctx context.Context, fix *fixture.TestFixture) error {
	m.mu.Lock()
	m.teardownCalls++
	m.mu.Unlock()

	if m.teardownFunc != nil {
		return m.teardownFunc(ctx, fix)
	}
	return nil
}

func (m *mockFixtureManager) teardowns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.teardownCalls
}

// mockPublisher is a mock implementation of Publisher for testing
type mockPublisher struct {
	mu sync.Mutex

	// Function hooks for testing
	connectFunc func(ctx context.Context) error
	publishFunc func(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error

	connected   bool
	disconnects int
	published   []telemetry.Sample
}

func (m *mockPublisher) Connect(ctx context.Context) error {
	if m.connectFunc != nil {
		return m.connectFunc(ctx)
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

func (m *mockPublisher) Publish(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, thingID, thingToken, sample); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.published = append(m.published, sample)
	m.mu.Unlock()
	return nil
}

func (m *mockPublisher) publishCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// mockFeedSession is a mock implementation of FeedSession for testing.
// By default it stops as soon as it is cancelled.
type mockFeedSession struct {
	mu sync.Mutex

	state    livefeed.State
	err      error
	received int

	// When stuck is set the session never closes its done channel,
	// simulating a read loop that will not stop.
	stuck bool

	events    chan livefeed.Event
	done      chan struct{}
	closeOnce sync.Once
	cancels   int
}

func newMockFeedSession() *mockFeedSession {
	return &mockFeedSession{
		state:  livefeed.StateOpen,
		events: make(chan livefeed.Event, 64),
		done:   make(chan struct{}),
	}
}

// emit queues a feed event as if the read loop had produced it.
func (m *mockFeedSession) emit(ev livefeed.Event) {
	m.events <- ev
}

func (m *mockFeedSession) Cancel() {
	m.mu.Lock()
	m.cancels++
	stuck := m.stuck
	m.mu.Unlock()

	if stuck {
		return
	}
	m.mu.Lock()
	if m.state == livefeed.StateOpen {
		m.state = livefeed.StateClosed
	}
	m.mu.Unlock()
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *mockFeedSession) Done() <-chan struct{} { return m.done }

func (m *mockFeedSession) Events() <-chan livefeed.Event { return m.events }

func (m *mockFeedSession) State() livefeed.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockFeedSession) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *mockFeedSession) Received() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// mockFeedSubscriber is a mock implementation of FeedSubscriber for testing
type mockFeedSubscriber struct {
	mu sync.Mutex

	session *mockFeedSession
	starts  int
}

func (m *mockFeedSubscriber) Start(ctx context.Context, userToken, thingID string) FeedSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.session == nil {
		m.session = newMockFeedSession()
	}
	return m.session
}
