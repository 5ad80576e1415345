package config

import (
	"time"
)

// GetDefaultConfig returns the built-in configuration. It targets a platform
// running on localhost with the default docker-compose ports, and a fixed
// throwaway identity. Admin credentials are intentionally left to environment
// expansion so they never end up in version control.
func GetDefaultConfig() E2ectlConfig {
	return E2ectlConfig{
		Platform: PlatformConfig{
			ControlPlaneURL: "http://localhost",
			BrokerURL:       "tcp://localhost:1883",
			LiveFeedURL:     "ws://localhost:80/reader/thing",
			AdminEmail:      "${E2E_ADMIN_EMAIL}",
			AdminPassword:   "${E2E_ADMIN_PASSWORD}",
			QoS:             1,
			HTTPTimeout:     10 * time.Second,
		},
		Identity: IdentitySpec{
			UserName:     "Jean Bon",
			UserEmail:    "jean@bon.com",
			UserPassword: "OopsJeanBonHasBeenHacked",
			ThingName:    "smart_plant_1",
			ThingKey:     "000001",
		},
		Run: RunSettings{
			SampleCount:     5,
			PublishInterval: 500 * time.Millisecond,
			DrainTimeout:    5 * time.Second,
			RecordPath:      "data/data.json",
		},
	}
}
