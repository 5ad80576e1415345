package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/e2ectl"
	projectConfigDir = ".e2ectl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the e2ectl configuration by layering default, user, and
// project settings. User and project files are optional; a missing file is
// not an error. Credential fields are environment-expanded after merging.
func LoadConfig() (E2ectlConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. Overlay user-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// Log this error but don't fail; user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return E2ectlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	// 3. Overlay project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return E2ectlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	config.Platform.AdminEmail = os.ExpandEnv(config.Platform.AdminEmail)
	config.Platform.AdminPassword = os.ExpandEnv(config.Platform.AdminPassword)
	config.Identity.UserPassword = os.ExpandEnv(config.Identity.UserPassword)

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads an E2ectlConfig from a YAML file.
func loadConfigFromFile(filePath string) (E2ectlConfig, error) {
	var config E2ectlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return E2ectlConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return E2ectlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in the
// overlay leave the base value untouched.
func mergeConfigs(base, overlay E2ectlConfig) E2ectlConfig {
	merged := base

	if overlay.Platform.ControlPlaneURL != "" {
		merged.Platform.ControlPlaneURL = overlay.Platform.ControlPlaneURL
	}
	if overlay.Platform.BrokerURL != "" {
		merged.Platform.BrokerURL = overlay.Platform.BrokerURL
	}
	if overlay.Platform.LiveFeedURL != "" {
		merged.Platform.LiveFeedURL = overlay.Platform.LiveFeedURL
	}
	if overlay.Platform.AdminEmail != "" {
		merged.Platform.AdminEmail = overlay.Platform.AdminEmail
	}
	if overlay.Platform.AdminPassword != "" {
		merged.Platform.AdminPassword = overlay.Platform.AdminPassword
	}
	if overlay.Platform.QoS != 0 {
		merged.Platform.QoS = overlay.Platform.QoS
	}
	if overlay.Platform.HTTPTimeout != 0 {
		merged.Platform.HTTPTimeout = overlay.Platform.HTTPTimeout
	}

	if overlay.Identity.UserName != "" {
		merged.Identity.UserName = overlay.Identity.UserName
	}
	if overlay.Identity.UserEmail != "" {
		merged.Identity.UserEmail = overlay.Identity.UserEmail
	}
	if overlay.Identity.UserPassword != "" {
		merged.Identity.UserPassword = overlay.Identity.UserPassword
	}
	if overlay.Identity.ThingName != "" {
		merged.Identity.ThingName = overlay.Identity.ThingName
	}
	if overlay.Identity.ThingKey != "" {
		merged.Identity.ThingKey = overlay.Identity.ThingKey
	}

	if overlay.Run.SampleCount != 0 {
		merged.Run.SampleCount = overlay.Run.SampleCount
	}
	if overlay.Run.PublishInterval != 0 {
		merged.Run.PublishInterval = overlay.Run.PublishInterval
	}
	if overlay.Run.DrainTimeout != 0 {
		merged.Run.DrainTimeout = overlay.Run.DrainTimeout
	}
	if overlay.Run.RecordPath != "" {
		merged.Run.RecordPath = overlay.Run.RecordPath
	}

	return merged
}
