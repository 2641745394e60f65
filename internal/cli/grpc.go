package cli

import (
	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/logclient"
	"github.com/lccweb/agentwave/internal/models"
)

// connectDaemon opens a control connection to the daemon described by info.
func connectDaemon(info *models.DaemonInfo) (*control.Client, error) {
	return control.Dial(info.Addr())
}

// logsClient returns an HTTP log client for the daemon described by info.
func logsClient(info *models.DaemonInfo) *logclient.Client {
	return logclient.New(info.BaseURL())
}
