// Package config provides configuration loading from environment variables
// and an optional YAML file.
package config

import (
	"fmt"
	"os"
	"pdfcourier/internal/apperrors"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds the process-wide settings for pdfcourier.
// AuthorLabel, DestinationName and Schedule are the identity values handed
// to the composer, the delivery session and the scheduler at construction.
type ServiceConfig struct {
	Port              string        `yaml:"port"`
	MetricsPort       string        `yaml:"metricsPort"`
	APIKey            string        `yaml:"-"`
	ShutdownDrainWait time.Duration `yaml:"shutdownDrainWait"`

	SourceDir        string `yaml:"sourceDir"`
	OutputDir        string `yaml:"outputDir"`
	AuthorLabel      string `yaml:"authorLabel"`
	DestinationName  string `yaml:"destinationName"`
	Announcement     string `yaml:"announcement"`
	Schedule         string `yaml:"schedule"`
	RunOnStart       bool   `yaml:"runOnStart"`
	OverwritePending bool   `yaml:"overwritePending"`
}

// Defaults returns the configuration used when neither a file nor the
// environment supplies a value.
func Defaults() *ServiceConfig {
	return &ServiceConfig{
		Port:              "8080",
		MetricsPort:       "9090",
		ShutdownDrainWait: 0,
		SourceDir:         "./subjects",
		OutputDir:         "./pdf",
		AuthorLabel:       "John Doe",
		DestinationName:   "Class - II A Students",
		Announcement:      "Todays Notes for all subjects!!",
		Schedule:          "0 16 * * *",
		RunOnStart:        true,
		OverwritePending:  false,
	}
}

// LoadServiceConfig builds the service configuration. Values come from the
// YAML file named by CONFIG_FILE (if any), then environment variables, which
// take precedence over the file.
func LoadServiceConfig() (*ServiceConfig, error) {
	cfg := Defaults()
	if path := GetEnv("CONFIG_FILE", ""); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.MetricsPort = GetEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.APIKey = GetSecretFile(GetEnv("API_KEY_FILE", ""))
	cfg.ShutdownDrainWait = GetDurationEnv("SHUTDOWN_DRAIN_WAIT", cfg.ShutdownDrainWait)
	cfg.SourceDir = GetEnv("SOURCE_DIR", cfg.SourceDir)
	cfg.OutputDir = GetEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.AuthorLabel = GetEnv("AUTHOR_LABEL", cfg.AuthorLabel)
	cfg.DestinationName = GetEnv("DESTINATION_NAME", cfg.DestinationName)
	// An empty ANNOUNCEMENT disables the announcement.
	cfg.Announcement = LookupEnv("ANNOUNCEMENT", cfg.Announcement)
	cfg.Schedule = GetEnv("SCHEDULE", cfg.Schedule)
	cfg.RunOnStart = GetBoolEnv("RUN_ON_START", cfg.RunOnStart)
	cfg.OverwritePending = GetBoolEnv("OVERWRITE_PENDING", cfg.OverwritePending)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file leave the existing values untouched.
func LoadFile(path string, cfg *ServiceConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.Validation("configFile", fmt.Sprintf("parse config file %s: %v", path, err))
	}
	return nil
}

// Validate checks the values every run depends on.
func (c *ServiceConfig) Validate() error {
	if c.SourceDir == "" {
		return apperrors.Validation("sourceDir", "source directory is required")
	}
	if c.OutputDir == "" {
		return apperrors.Validation("outputDir", "output directory is required")
	}
	if c.DestinationName == "" {
		return apperrors.Validation("destinationName", "destination name is required")
	}
	if c.Schedule == "" {
		return apperrors.Validation("schedule", "schedule is required")
	}
	return nil
}
