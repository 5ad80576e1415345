package config

import (
	"fmt"
	"strings"
)

// Validate checks that a loaded configuration is usable for a run.
// It returns the first problem found.
func Validate(cfg E2ectlConfig) error {
	if cfg.Platform.ControlPlaneURL == "" {
		return fmt.Errorf("platform.controlPlaneUrl must be set")
	}
	if cfg.Platform.BrokerURL == "" {
		return fmt.Errorf("platform.brokerUrl must be set")
	}
	if cfg.Platform.LiveFeedURL == "" {
		return fmt.Errorf("platform.liveFeedUrl must be set")
	}
	if !strings.HasPrefix(cfg.Platform.LiveFeedURL, "ws://") && !strings.HasPrefix(cfg.Platform.LiveFeedURL, "wss://") {
		return fmt.Errorf("platform.liveFeedUrl must use a ws:// or wss:// scheme, got %q", cfg.Platform.LiveFeedURL)
	}
	if cfg.Platform.AdminEmail == "" || cfg.Platform.AdminPassword == "" {
		return fmt.Errorf("admin credentials missing: set platform.adminEmail/adminPassword or the E2E_ADMIN_EMAIL/E2E_ADMIN_PASSWORD environment variables")
	}
	if cfg.Platform.QoS < 0 || cfg.Platform.QoS > 2 {
		return fmt.Errorf("platform.qos must be 0, 1 or 2, got %d", cfg.Platform.QoS)
	}

	if cfg.Identity.UserEmail == "" || cfg.Identity.UserPassword == "" {
		return fmt.Errorf("identity.userEmail and identity.userPassword must be set")
	}
	if cfg.Identity.ThingName == "" {
		return fmt.Errorf("identity.thingName must be set")
	}

	if cfg.Run.SampleCount < 1 {
		return fmt.Errorf("run.sampleCount must be at least 1, got %d", cfg.Run.SampleCount)
	}
	if cfg.Run.PublishInterval < 0 {
		return fmt.Errorf("run.publishInterval must not be negative")
	}
	if cfg.Run.DrainTimeout <= 0 {
		return fmt.Errorf("run.drainTimeout must be positive, got %v", cfg.Run.DrainTimeout)
	}

	return nil
}
