package tui

import "github.com/lccweb/agentwave/internal/models"

// StreamOpenedMsg signals the daemon accepted the log stream.
type StreamOpenedMsg struct{}

// LogLineMsg carries one raw line from the log stream.
type LogLineMsg struct {
	Raw string
}

// StreamClosedMsg signals the log stream ended.
type StreamClosedMsg struct {
	Err error
}

// JobUpdateMsg carries a job state change from the daemon.
type JobUpdateMsg struct {
	Job *models.Job
}

// reconnectMsg triggers a new stream attempt.
type reconnectMsg struct{}
