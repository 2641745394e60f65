package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lccweb/agentwave/internal/models"
)

// LoadSettings loads <workspace>/.agents/agentwave.yaml (or path, when set) over the
// defaults, then applies environment overrides and validates the result.
func LoadSettings(workspace, path string) (*models.Settings, error) {
	if path == "" {
		path = SettingsFile(workspace)
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}

	ApplyEnv(settings)

	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings saves the settings to <workspace>/.agents/agentwave.yaml.
func SaveSettings(workspace string, settings *models.Settings) error {
	return SaveYAML(SettingsFile(workspace), settings)
}

// ApplyEnv overrides settings from AGENTWAVE_* environment variables.
func ApplyEnv(s *models.Settings) {
	s.Server.Host = getEnv("AGENTWAVE_HOST", s.Server.Host)
	s.Server.Port = getIntEnv("AGENTWAVE_PORT", s.Server.Port)
	s.Server.ShutdownTimeout = getDurationEnv("AGENTWAVE_SHUTDOWN_TIMEOUT", s.Server.ShutdownTimeout)
	s.Logs.Dir = getEnv("AGENTWAVE_LOG_ROOT", s.Logs.Dir)
	s.Logs.RotateBytes = int64(getIntEnv("AGENTWAVE_ROTATE_BYTES", int(s.Logs.RotateBytes)))
	s.Runner.TaskTimeout = getDurationEnv("AGENTWAVE_TASK_TIMEOUT", s.Runner.TaskTimeout)
}

// Validate checks that settings values are usable.
func Validate(s *models.Settings) error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	if s.Logs.Dir == "" {
		return fmt.Errorf("logs.dir is required")
	}
	if s.Logs.RotateBytes <= 0 {
		return fmt.Errorf("logs.rotate_bytes must be positive")
	}
	if s.Logs.RetentionDays < 0 {
		return fmt.Errorf("logs.retention_days must not be negative")
	}
	if s.Logs.RetentionDays > 0 {
		if _, err := cron.ParseStandard(s.Logs.RetentionSchedule); err != nil {
			return fmt.Errorf("invalid logs.retention_schedule %q: %w", s.Logs.RetentionSchedule, err)
		}
	}
	if len(s.Runner.Command) == 0 {
		return fmt.Errorf("runner.command is required")
	}
	if s.Runner.TaskTimeout < 0 {
		return fmt.Errorf("runner.task_timeout must not be negative")
	}
	if s.Queue.MaxPending < 0 {
		return fmt.Errorf("queue.max_pending must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
