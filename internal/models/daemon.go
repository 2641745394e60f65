package models

import "time"

// DaemonInfo describes a running agentwaved process.
// This corresponds to ~/.agentwave/daemon.yaml.
type DaemonInfo struct {
	Version   int       `yaml:"version"`
	Host      string    `yaml:"host"`
	Port      int       `yaml:"port"`
	PID       int       `yaml:"pid"`
	Workspace string    `yaml:"workspace"`
	LogRoot   string    `yaml:"log_root"`
	StartedAt time.Time `yaml:"started_at"`
}

// NewDaemonInfo creates daemon info stamped with the current time.
func NewDaemonInfo(host string, port, pid int, workspace, logRoot string) *DaemonInfo {
	return &DaemonInfo{
		Version:   1,
		Host:      host,
		Port:      port,
		PID:       pid,
		Workspace: workspace,
		LogRoot:   logRoot,
		StartedAt: time.Now().UTC(),
	}
}

// Addr returns host:port.
func (d *DaemonInfo) Addr() string {
	return joinHostPort(d.Host, d.Port)
}

// BaseURL returns the daemon's HTTP base URL.
func (d *DaemonInfo) BaseURL() string {
	return "http://" + d.Addr()
}
