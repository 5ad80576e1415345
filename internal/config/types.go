package config

import (
	"time"
)

// E2ectlConfig is the top-level configuration structure for e2ectl.
type E2ectlConfig struct {
	Platform PlatformConfig `yaml:"platform"`
	Identity IdentitySpec   `yaml:"identity"`
	Run      RunSettings    `yaml:"run"`
}

// PlatformConfig describes how to reach the three channels of the platform
// under test.
type PlatformConfig struct {
	ControlPlaneURL string `yaml:"controlPlaneUrl"` // e.g., "http://localhost"
	BrokerURL       string `yaml:"brokerUrl"`       // e.g., "tcp://localhost:1883"
	LiveFeedURL     string `yaml:"liveFeedUrl"`     // e.g., "ws://localhost:80/reader/thing"

	// Admin credentials used to authorize provisioning. Values support
	// environment variable expansion, e.g. "${E2E_ADMIN_PASSWORD}".
	AdminEmail    string `yaml:"adminEmail"`
	AdminPassword string `yaml:"adminPassword"`

	// QoS is the MQTT delivery guarantee for published telemetry:
	// 0 (at most once), 1 (at least once) or 2 (exactly once).
	QoS int `yaml:"qos"`

	// HTTPTimeout bounds each control plane round trip.
	HTTPTimeout time.Duration `yaml:"httpTimeout,omitempty"`
}

// IdentitySpec describes the ephemeral identity provisioned for one run.
// The password is kept here (not only in the fixture) because teardown
// re-authenticates with fresh tokens rather than trusting possibly-stale
// fixture tokens.
type IdentitySpec struct {
	UserName     string `yaml:"userName"`
	UserEmail    string `yaml:"userEmail"`
	UserPassword string `yaml:"userPassword"`
	ThingName    string `yaml:"thingName"`
	ThingKey     string `yaml:"thingKey"`
}

// RunSettings tune the publish burst and the shutdown behavior of a run.
type RunSettings struct {
	// SampleCount is the number of telemetry samples published per run.
	SampleCount int `yaml:"sampleCount"`

	// PublishInterval is the fixed delay between two publishes.
	PublishInterval time.Duration `yaml:"publishInterval"`

	// DrainTimeout bounds how long the orchestrator waits for the live
	// feed subscriber to stop before proceeding to cleanup anyway.
	DrainTimeout time.Duration `yaml:"drainTimeout"`

	// RecordPath is where the durable recovery record is written so that
	// `e2ectl clean` can tear down fixtures left behind by a crashed run.
	// Empty disables the record.
	RecordPath string `yaml:"recordPath,omitempty"`
}
