// Package config provides configuration management for e2ectl.
//
// This package implements a layered configuration system that allows users to
// customize e2ectl's behavior through YAML files. Configuration is loaded from
// multiple sources and merged in a specific order, with later sources
// overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Targets a platform on localhost with default ports
//     - Ensures e2ectl works out-of-the-box against a local compose stack
//
//  2. User Configuration (~/.config/e2ectl/config.yaml)
//     - User-specific settings that apply to all projects
//
//  3. Project Configuration (./.e2ectl/config.yaml)
//     - Project-specific settings in the current directory
//     - Allows teams to share configuration via version control
//
// # Configuration Structure
//
//	platform:
//	  controlPlaneUrl: "http://localhost"
//	  brokerUrl: "tcp://localhost:1883"
//	  liveFeedUrl: "ws://localhost:80/reader/thing"
//	  adminEmail: "${E2E_ADMIN_EMAIL}"
//	  adminPassword: "${E2E_ADMIN_PASSWORD}"
//	  qos: 1
//
//	identity:
//	  userName: "Jean Bon"
//	  userEmail: "jean@bon.com"
//	  userPassword: "..."
//	  thingName: "smart_plant_1"
//	  thingKey: "000001"
//
//	run:
//	  sampleCount: 5
//	  publishInterval: 500ms
//	  drainTimeout: 5s
//	  recordPath: "data/data.json"
//
// # Environment Variable Expansion
//
// Credential fields support environment variable expansion after merging, so
// secrets can be kept out of the YAML files entirely:
//
//	adminPassword: "${E2E_ADMIN_PASSWORD}"
package config
