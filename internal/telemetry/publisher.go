package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/mainflux/senml"

	"e2ectl/internal/platform"
	"e2ectl/pkg/logging"
)

const subsystem = "telemetry"

const (
	keepAlive      = 60 * time.Second
	connectTimeout = 10 * time.Second
	disconnectMs   = 250
)

// For mocking in tests
var newMQTTClient = mqtt.NewClient

// TopicForThing derives the ingest topic for a thing deterministically.
func TopicForThing(thingID string) string {
	return "things/" + thingID
}

// authenticatedMsg is the wire envelope the broker-side service expects:
// the device token plus the SenML records.
type authenticatedMsg struct {
	Token   string         `json:"token"`
	Records []senml.Record `json:"records"`
}

// Publisher pushes synthetic telemetry onto the platform's MQTT ingest
// channel. One publisher holds one broker connection; Connect before the
// first Publish and Disconnect when done.
type Publisher struct {
	client mqtt.Client
	qos    byte
}

// NewPublisher creates a publisher for the given broker URL (e.g.
// "tcp://localhost:1883"). qos selects the delivery guarantee for every
// publish: 0, 1 or 2.
func NewPublisher(brokerURL string, qos int) *Publisher {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("e2ectl-" + uuid.NewString()[:8]).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout)
	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		// We never subscribe; anything arriving here is unexpected.
		logging.Warn(subsystem, "unexpected inbound message on %s", msg.Topic())
	})

	return &Publisher{
		client: newMQTTClient(opts),
		qos:    byte(qos),
	}
}

// Connect establishes the broker connection, bounded by ctx.
func (p *Publisher) Connect(ctx context.Context) error {
	if err := p.waitToken(ctx, "mqtt connect", p.client.Connect()); err != nil {
		return err
	}
	logging.Debug(subsystem, "connected to broker")
	return nil
}

// Disconnect closes the broker connection, letting in-flight messages
// finish first.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(disconnectMs)
}

// Publish serializes the sample with the thing token and sends it to the
// thing's topic. The call blocks until the broker acknowledges delivery at
// the configured QoS level, or ctx is cancelled.
//
// A serialization failure is a *platform.ProtocolError (programmer error,
// fatal); broker-side failures are *platform.TransportError (transient,
// the caller may continue with the remaining samples).
func (p *Publisher) Publish(ctx context.Context, thingID, thingToken string, sample Sample) error {
	payload, err := json.Marshal(authenticatedMsg{
		Token:   thingToken,
		Records: sample.Pack.Records,
	})
	if err != nil {
		return &platform.ProtocolError{Op: "encode telemetry message", Err: err}
	}

	topic := TopicForThing(thingID)
	if err := p.waitToken(ctx, "mqtt publish", p.client.Publish(topic, p.qos, false, payload)); err != nil {
		return err
	}
	logging.Debug(subsystem, "published sample (base time %.3f) to %s", sample.BaseTime(), topic)
	return nil
}

// waitToken waits for a paho token to complete, honoring ctx cancellation.
func (p *Publisher) waitToken(ctx context.Context, op string, token mqtt.Token) error {
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return &platform.TransportError{Op: op, Err: err}
		}
		return nil
	case <-ctx.Done():
		return &platform.TransportError{Op: op, Err: fmt.Errorf("cancelled: %w", ctx.Err())}
	}
}
