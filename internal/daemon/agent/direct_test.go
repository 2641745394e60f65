package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lccweb/agentwave/internal/models"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"heart.html", "heart.html"},
		{"My File!.CSS", "My_File_.CSS"},
		{"../etc/passwd", ".._etc_passwd"},
		{"café.js", "caf_.js"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFileName(tt.in), tt.in)
	}
}

func TestFileExt(t *testing.T) {
	assert.Equal(t, "css", FileExt("a.CSS"))
	assert.Equal(t, "js", FileExt("a.min.js"))
	assert.Equal(t, "html", FileExt("trailing."))
	assert.Equal(t, "readme", FileExt("README"))
}

func TestGeneratedContent(t *testing.T) {
	heart := GeneratedContent("heart.html", "CREATE_FILE heart.html :: draw a coeur")
	assert.Contains(t, heart, "❤️")
	assert.Contains(t, heart, "height:100%;")
	assert.True(t, strings.HasPrefix(heart, "<!DOCTYPE html>"))

	star := GeneratedContent("generated.html", "CREATE_FILE generated.html :: a page")
	assert.Contains(t, star, "⭐")

	assert.Contains(t, GeneratedContent("x.css", ""), "@keyframes")
	assert.Contains(t, GeneratedContent("x.js", ""), "DOMContentLoaded")
	assert.Empty(t, GeneratedContent("x.txt", ""))
}

func TestDirectHandlerCreatesFile(t *testing.T) {
	book := newBook(t)
	outDir := filepath.Join(t.TempDir(), "public", "generated")
	h := NewDirectHandler(outDir, book)

	path, err := h.Run("CREATE_FILE heart.html :: write an html heart")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "heart.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "❤️")

	lines := logLines(t, book)
	require.Len(t, lines, 2)
	assert.Equal(t, "Direct action: CREATE_FILE heart.html :: write an html heart", lines[0].Text)
	assert.Equal(t, models.PhaseDone, lines[1].Phase)
	assert.Equal(t, "File created: "+path, lines[1].Text)
}

func TestDirectHandlerUnknownInstruction(t *testing.T) {
	book := newBook(t)
	h := NewDirectHandler(t.TempDir(), book)

	_, err := h.Run("DELETE_FILE x")
	require.Error(t, err)

	lines := logLines(t, book)
	require.Len(t, lines, 2)
	assert.Equal(t, models.PhaseError, lines[1].Phase)
	assert.Equal(t, "Unknown direct instruction: DELETE_FILE x", lines[1].Text)
}

func TestDirectHandlerWriteError(t *testing.T) {
	book := newBook(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	h := NewDirectHandler(filepath.Join(blocker, "generated"), book)
	_, err := h.Run("CREATE_FILE a.js :: write js")
	require.Error(t, err)

	lines := logLines(t, book)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1].Text, "Direct task error: "))
}
