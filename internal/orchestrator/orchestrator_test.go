package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"e2ectl/internal/config"
	"e2ectl/internal/fixture"
	"e2ectl/internal/livefeed"
	"e2ectl/internal/platform"
	"e2ectl/internal/reporting"
	"e2ectl/internal/telemetry"
)

func testIdentity() config.IdentitySpec {
	return config.IdentitySpec{
		UserName:     "Jean Bon",
		UserEmail:    "jean@bon.com",
		UserPassword: "OopsJeanBonHasBeenHacked",
		ThingName:    "smart_plant_1",
		ThingKey:     "000001",
	}
}

func testSettings() config.RunSettings {
	return config.RunSettings{
		SampleCount:     3,
		PublishInterval: 0,
		DrainTimeout:    time.Second,
	}
}

// newTestOrchestrator wires mocks into an orchestrator with a quiet
// reporter. Callers adjust the mocks before Run.
func newTestOrchestrator(fixtures *mockFixtureManager, pub *mockPublisher, feed *mockFeedSubscriber) *Orchestrator {
	return New(Config{
		Fixtures:  fixtures,
		Publisher: pub,
		Feed:      feed,
		Reporter:  reporting.NewRecorder(),
		Identity:  testIdentity(),
		Run:       testSettings(),
	})
}

func TestRun_HappyPath(t *testing.T) {
	fixtures := &mockFixtureManager{}
	pub := &mockPublisher{}
	feed := &mockFeedSubscriber{session: newMockFeedSession()}
	feed.session.received = 3

	orch := newTestOrchestrator(fixtures, pub, feed)
	out, err := orch.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, out.Succeeded)
	assert.Equal(t, StateDone, out.FinalState)
	assert.Equal(t, "user-1", out.UserID)
	assert.Equal(t, "thing-1", out.ThingID)
	assert.Equal(t, 3, out.Published)
	assert.Equal(t, 3, out.Received)
	assert.Empty(t, out.Warnings)

	assert.Equal(t, 1, fixtures.teardowns())
	assert.Equal(t, 1, pub.disconnects)
	assert.Equal(t, 1, feed.starts)
}

func TestRun_DrainPrecedesCleanup(t *testing.T) {
	session := newMockFeedSession()
	fixtures := &mockFixtureManager{
		teardownFunc: func(ctx context.Context, fix *fixture.TestFixture) error {
			// The live feed must already be stopped when teardown runs
			assert.Equal(t, livefeed.StateClosed, session.State())
			return nil
		},
	}
	orch := newTestOrchestrator(fixtures, &mockPublisher{}, &mockFeedSubscriber{session: session})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	var drainIdx, cleanupIdx = -1, -1
	for i, ev := range orch.Events() {
		switch ev.EventType {
		case reporting.EventTypeRunDraining:
			drainIdx = i
		case reporting.EventTypeRunCleanup:
			cleanupIdx = i
		}
	}
	require.GreaterOrEqual(t, drainIdx, 0)
	require.GreaterOrEqual(t, cleanupIdx, 0)
	assert.Less(t, drainIdx, cleanupIdx)
}

func TestRun_FeedFramesAppearInEventTrace(t *testing.T) {
	session := newMockFeedSession()
	session.received = 2
	session.emit(livefeed.Event{Kind: livefeed.EventMessage, Payload: []byte(`[{"n":"temperature","v":23.5}]`)})
	session.emit(livefeed.Event{Kind: livefeed.EventMessage, Payload: []byte(`[{"n":"humidity","v":61.0}]`)})
	session.emit(livefeed.Event{Kind: livefeed.EventTerminal})

	orch := newTestOrchestrator(&mockFixtureManager{}, &mockPublisher{}, &mockFeedSubscriber{session: session})
	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	// The relay goroutine may still be flushing when Run returns
	require.Eventually(t, func() bool {
		frames := 0
		for _, ev := range orch.Events() {
			if ev.EventType == reporting.EventTypeFeedMessage {
				frames++
			}
		}
		return frames == 2
	}, 2*time.Second, 10*time.Millisecond, "every observed frame must show up in the run trace")
}

func TestRun_BoundedDrainWithStuckFeed(t *testing.T) {
	session := newMockFeedSession()
	session.stuck = true
	session.received = 2

	fixtures := &mockFixtureManager{}
	orch := New(Config{
		Fixtures:  fixtures,
		Publisher: &mockPublisher{},
		Feed:      &mockFeedSubscriber{session: session},
		Reporter:  reporting.NewRecorder(),
		Identity:  testIdentity(),
		Run: config.RunSettings{
			SampleCount:  2,
			DrainTimeout: 20 * time.Millisecond,
		},
	})

	start := time.Now()
	out, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second, "drain wait must be bounded")
	assert.Equal(t, 2, out.Received, "frames seen before the timeout still count")
	assert.Equal(t, 1, fixtures.teardowns(), "cleanup runs despite the stuck feed")

	require.NotEmpty(t, out.Warnings)
	found := false
	for _, w := range out.Warnings {
		if errors.Is(w.Err, ErrDrainTimeout) {
			found = true
		}
	}
	assert.True(t, found, "drain timeout must surface as a warning")
}

func TestRun_ProvisionFailure(t *testing.T) {
	wantErr := &platform.ControlPlaneError{Operation: "admin login", StatusCode: 401, Reason: "unauthorized"}
	fixtures := &mockFixtureManager{
		provisionFunc: func(ctx context.Context, spec config.IdentitySpec) (*fixture.TestFixture, error) {
			return nil, wantErr
		},
	}
	pub := &mockPublisher{}
	feed := &mockFeedSubscriber{}

	orch := newTestOrchestrator(fixtures, pub, feed)
	out, err := orch.Run(context.Background())

	require.Error(t, err)
	var cpErr *platform.ControlPlaneError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, 401, cpErr.StatusCode)

	assert.False(t, out.Succeeded)
	assert.Equal(t, StateProvisioning, out.FinalState)
	assert.Equal(t, 0, fixtures.teardowns(), "nothing to tear down after a rolled-back provision")
	assert.Equal(t, 0, pub.disconnects)
	assert.Equal(t, 0, feed.starts)
}

func TestRun_BrokerConnectFailure(t *testing.T) {
	fixtures := &mockFixtureManager{}
	pub := &mockPublisher{
		connectFunc: func(ctx context.Context) error {
			return &platform.TransportError{Op: "mqtt connect", Err: errors.New("connection refused")}
		},
	}
	feed := &mockFeedSubscriber{}

	orch := newTestOrchestrator(fixtures, pub, feed)
	out, err := orch.Run(context.Background())

	require.Error(t, err)
	assert.False(t, out.Succeeded)
	assert.Equal(t, 0, out.Published)
	assert.Equal(t, 0, feed.starts, "no feed session without a broker connection")
	assert.Equal(t, 1, fixtures.teardowns(), "fixture still torn down")
	assert.Equal(t, 0, pub.disconnects, "never connected, nothing to disconnect")
}

func TestRun_TransientPublishErrorContinuesBurst(t *testing.T) {
	attempts := 0
	pub := &mockPublisher{
		publishFunc: func(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error {
			attempts++
			if attempts == 2 {
				return &platform.TransportError{Op: "publish", Err: errors.New("broker hiccup")}
			}
			return nil
		},
	}
	fixtures := &mockFixtureManager{}
	orch := newTestOrchestrator(fixtures, pub, &mockFeedSubscriber{})

	out, err := orch.Run(context.Background())
	require.NoError(t, err, "a dropped sample is a warning, not a run error")

	assert.Equal(t, 3, attempts, "burst continues past the transient failure")
	assert.Equal(t, 2, out.Published)
	assert.False(t, out.Succeeded, "an incomplete burst is not a success")
	require.NotEmpty(t, out.Warnings)
	assert.Equal(t, 1, fixtures.teardowns())
}

func TestRun_ProtocolErrorAbortsBurst(t *testing.T) {
	attempts := 0
	wantErr := &platform.ProtocolError{Op: "encode sample", Err: errors.New("bad payload")}
	pub := &mockPublisher{
		publishFunc: func(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error {
			attempts++
			if attempts == 2 {
				return wantErr
			}
			return nil
		},
	}
	fixtures := &mockFixtureManager{}
	orch := newTestOrchestrator(fixtures, pub, &mockFeedSubscriber{})

	out, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.True(t, platform.IsProtocol(err))

	assert.Equal(t, 2, attempts, "no samples after the contract violation")
	assert.Equal(t, 1, out.Published)
	assert.False(t, out.Succeeded)
	assert.Equal(t, 1, fixtures.teardowns(), "cleanup still runs after an aborted burst")
}

func TestRun_InterruptDuringStreaming(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pub := &mockPublisher{
		publishFunc: func(ctx context.Context, thingID, thingToken string, sample telemetry.Sample) error {
			// Interrupt arrives after the first sample goes out
			cancel()
			return nil
		},
	}
	fixtures := &mockFixtureManager{}
	session := newMockFeedSession()

	orch := newTestOrchestrator(fixtures, pub, &mockFeedSubscriber{session: session})
	out, err := orch.Run(ctx)

	require.NoError(t, err, "an interrupt is not a run error")
	assert.True(t, out.Interrupted)
	assert.False(t, out.Succeeded)
	assert.Equal(t, 1, out.Published)
	assert.Equal(t, 1, fixtures.teardowns(), "exactly one teardown on interrupt")
	assert.Equal(t, livefeed.StateClosed, session.State(), "feed session stopped before teardown")

	interrupted := false
	for _, ev := range orch.Events() {
		if ev.EventType == reporting.EventTypeRunInterrupted {
			interrupted = true
		}
	}
	assert.True(t, interrupted)
}

func TestRun_TeardownFailureIsWarning(t *testing.T) {
	fixtures := &mockFixtureManager{
		teardownFunc: func(ctx context.Context, fix *fixture.TestFixture) error {
			return &platform.ControlPlaneError{Operation: "delete user", StatusCode: 500, Reason: "oops"}
		},
	}
	orch := newTestOrchestrator(fixtures, &mockPublisher{}, &mockFeedSubscriber{})

	out, err := orch.Run(context.Background())
	require.NoError(t, err, "teardown failures never fail the run")
	assert.True(t, out.Succeeded)
	require.NotEmpty(t, out.Warnings)
	assert.Contains(t, out.Warnings[0].Message, "clean")
}

func TestRun_StateReachesDone(t *testing.T) {
	orch := newTestOrchestrator(&mockFixtureManager{}, &mockPublisher{}, &mockFeedSubscriber{})
	assert.Equal(t, StateIdle, orch.State())

	out, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, orch.State())
	assert.Equal(t, StateDone, out.FinalState)
}
