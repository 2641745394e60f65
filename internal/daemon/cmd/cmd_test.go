package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lccweb/agentwave/internal/config"
	"github.com/lccweb/agentwave/internal/models"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "no arg", args: nil, want: 8001},
		{name: "valid", args: []string{"9000"}, want: 9000},
		{name: "not a number", args: []string{"abc"}, want: 8001},
		{name: "zero", args: []string{"0"}, want: 8001},
		{name: "out of range", args: []string{"70000"}, want: 8001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePort(tt.args, 8001))
		})
	}
}

func TestResolveWorkspace(t *testing.T) {
	dir := t.TempDir()
	got, err := resolveWorkspace(dir)
	assert.NoError(t, err)
	assert.Equal(t, dir, got)

	got, err = resolveWorkspace("")
	assert.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestStartAndStopDaemon(t *testing.T) {
	t.Setenv("AGENTWAVE_HOME", t.TempDir())
	workspace := t.TempDir()

	settings := models.NewSettings()
	settings.Server.Host = "127.0.0.1"
	settings.Server.Port = 0

	d, err := startDaemon(workspace, settings, zaptest.NewLogger(t))
	require.NoError(t, err)

	running, info, err := config.IsDaemonRunning()
	require.NoError(t, err)
	assert.True(t, running)
	require.NotNil(t, info)
	assert.Equal(t, d.server.Port(), info.Port)
	assert.Equal(t, workspace, info.Workspace)
	assert.FileExists(t, filepath.Join(workspace, ".agents", "agentwave.db"))
	assert.DirExists(t, filepath.Join(workspace, ".agents", "logs", "console"))

	d.stop(5 * time.Second)

	info, err = config.LoadDaemonInfo()
	require.NoError(t, err)
	assert.Nil(t, info)
}
