package models

import (
	"net"
	"strconv"
	"time"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"` // SSE keepalive comment interval
}

// LogsConfig holds console log settings.
type LogsConfig struct {
	Dir               string `yaml:"dir"`          // relative to the workspace unless absolute
	RotateBytes       int64  `yaml:"rotate_bytes"` // latest.log rotation threshold
	RetentionDays     int    `yaml:"retention_days"`
	RetentionSchedule string `yaml:"retention_schedule"` // cron spec
	FileBridge        string `yaml:"file_bridge"`        // file-bridge change log
}

// RunnerConfig holds settings for spawning agent processes.
type RunnerConfig struct {
	Command      []string          `yaml:"command"` // argv prefix; agent and instruction are appended
	Env          map[string]string `yaml:"env"`
	PTY          bool              `yaml:"pty"`
	TaskTimeout  time.Duration     `yaml:"task_timeout"` // 0 = no limit
	GeneratedDir string            `yaml:"generated_dir"`
}

// QueueConfig holds job queue settings.
type QueueConfig struct {
	MaxPending   int `yaml:"max_pending"`   // 0 = unbounded
	HistoryLimit int `yaml:"history_limit"` // jobs returned by listings
}

// StoreConfig holds job history database settings.
type StoreConfig struct {
	Path string `yaml:"path"` // empty disables persistence
}

// Settings represents the workspace settings.
// This corresponds to <workspace>/.agents/agentwave.yaml.
type Settings struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Logs    LogsConfig   `yaml:"logs"`
	Runner  RunnerConfig `yaml:"runner"`
	Queue   QueueConfig  `yaml:"queue"`
	Store   StoreConfig  `yaml:"store"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8001,
			ShutdownTimeout: 10 * time.Second,
			PingInterval:    15 * time.Second,
		},
		Logs: LogsConfig{
			Dir:               ".agents/logs/console",
			RotateBytes:       1024 * 1024,
			RetentionDays:     14,
			RetentionSchedule: "@daily",
			FileBridge:        "tools/logs/file-bridge.log",
		},
		Runner: RunnerConfig{
			Command: []string{"node", "tools/agent-run.js"},
			Env: map[string]string{
				"TEST_RUNNER_ENABLE_CYPRESS": "false",
			},
			GeneratedDir: "public/generated",
		},
		Queue: QueueConfig{
			MaxPending:   0,
			HistoryLimit: 50,
		},
		Store: StoreConfig{
			Path: ".agents/agentwave.db",
		},
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
