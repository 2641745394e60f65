// Package models contains shared data structures used across the application.
package models

import (
	"encoding/json"
	"time"
)

// Phase labels what stage of a conversation or job a log line belongs to.
type Phase string

// Log phases.
const (
	PhasePrompt     Phase = "PROMPT"
	PhaseInfo       Phase = "INFO"
	PhaseRun        Phase = "RUN"
	PhaseDone       Phase = "DONE"
	PhaseError      Phase = "ERROR"
	PhaseAnswer     Phase = "ANSWER"
	PhaseProposal   Phase = "PROPOSAL"
	PhaseDiscussion Phase = "DISCUSSION"
)

// Log roles.
const (
	RoleAgent   = "agent"
	RoleUser    = "user"
	RoleConsole = "console"
)

// Well-known agent names used by the daemon itself.
const (
	AgentCoordinator        = "coordinator"
	AgentUser               = "user"
	AgentProjectCoordinator = "project-coordinator"
	AgentBrowserConsole     = "browser-console"
)

// TimestampFormat is the layout used for LogLine.Timestamp (ISO-8601, millisecond precision, UTC).
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// LogLine is a single JSON line in a console log file.
type LogLine struct {
	Timestamp string          `json:"timestamp"`
	Agent     string          `json:"agent"`
	Role      string          `json:"role"`
	Phase     Phase           `json:"phase"`
	Text      string          `json:"text"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

// NewLogLine creates a log line stamped with the current time.
func NewLogLine(agent, role string, phase Phase, text string) *LogLine {
	return &LogLine{
		Timestamp: FormatTimestamp(time.Now()),
		Agent:     agent,
		Role:      role,
		Phase:     phase,
		Text:      text,
	}
}

// FormatTimestamp formats t the way log lines expect it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
