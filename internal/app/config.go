package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/robfig/cron/v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkflowPath string // .hcl/.yaml file or directory
	InputPath    string // JSON file overriding the workflow input

	LogFormat string
	LogLevel  string
	// LogOutput receives log records; the app's output writer when nil.
	LogOutput io.Writer

	HealthcheckPort int
	JournalDSN      string
	// Every is a cron expression; when set the workflow runs on that schedule
	// until the context is cancelled.
	Every string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}

	if cfg.Every != "" {
		if _, err := cron.ParseStandard(cfg.Every); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Every, err)
		}
	}

	return &cfg, nil
}
