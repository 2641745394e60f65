package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lccweb/agentwave/internal/daemon/logbook"
	"github.com/lccweb/agentwave/internal/models"
)

var (
	createFilePattern = regexp.MustCompile(`^CREATE_FILE\s+(\S+)\s*::\s*[\s\S]*$`)
	unsafeNameChars   = regexp.MustCompile(`(?i)[^a-z0-9_.-]`)
	heartPattern      = regexp.MustCompile(`(?i)heart|coeur|cœur`)
)

const (
	htmlTemplate = `<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>%[1]s Generated file</title><style>html,body{height:100%%;margin:0}body{display:flex;align-items:center;justify-content:center;background:#0f172a;color:#e6edf7;font-family:Inter,system-ui,sans-serif} .heart{font-size:14vmin;filter:drop-shadow(0 8px 30px rgba(255,0,130,.35));}</style></head><body><div class="heart" aria-label="heart">%[1]s</div></body></html>`
	cssTemplate = `:root{--accent:#667eea} .pulse{animation:p 1.2s infinite alternate ease-in-out}@keyframes p{from{transform:scale(1)}to{transform:scale(1.06)}}`
	jsTemplate  = `document.addEventListener('DOMContentLoaded',()=>{console.log('Generated file loaded')});`
)

// DirectHandler performs direct tasks without spawning a process.
type DirectHandler struct {
	outDir string
	book   *logbook.Logbook
}

// NewDirectHandler writes generated files under outDir.
func NewDirectHandler(outDir string, book *logbook.Logbook) *DirectHandler {
	return &DirectHandler{outDir: outDir, book: book}
}

// Run executes a direct instruction and returns the path written. Failures are
// logged as coordinator ERROR lines and returned.
func (h *DirectHandler) Run(instruction string) (string, error) {
	h.book.Logf(models.AgentCoordinator, models.PhaseRun, "Direct action: %s", instruction)

	m := createFilePattern.FindStringSubmatch(instruction)
	if m == nil {
		h.book.Logf(models.AgentCoordinator, models.PhaseError, "Unknown direct instruction: %s", instruction)
		return "", fmt.Errorf("unknown direct instruction")
	}

	name := SanitizeFileName(m[1])
	outPath := filepath.Join(h.outDir, name)

	if err := os.MkdirAll(h.outDir, 0o755); err != nil {
		h.book.Logf(models.AgentCoordinator, models.PhaseError, "Direct task error: %v", err)
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(GeneratedContent(name, instruction)), 0o644); err != nil {
		h.book.Logf(models.AgentCoordinator, models.PhaseError, "Direct task error: %v", err)
		return "", fmt.Errorf("failed to write generated file: %w", err)
	}

	h.book.Logf(models.AgentCoordinator, models.PhaseDone, "File created: %s", outPath)
	return outPath, nil
}

// SanitizeFileName replaces every character outside [A-Za-z0-9_.-] with '_'.
func SanitizeFileName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// FileExt returns the lower-cased text after the last '.' (the whole name when
// there is no dot), or "html" when that is empty.
func FileExt(name string) string {
	ext := strings.ToLower(name[strings.LastIndexByte(name, '.')+1:])
	if ext == "" {
		return "html"
	}
	return ext
}

// GeneratedContent renders the template for the file's extension. Unknown
// extensions produce an empty file.
func GeneratedContent(name, instruction string) string {
	switch FileExt(name) {
	case "html":
		symbol := "⭐"
		if heartPattern.MatchString(instruction) {
			symbol = "❤️"
		}
		return fmt.Sprintf(htmlTemplate, symbol)
	case "css":
		return cssTemplate
	case "js":
		return jsTemplate
	}
	return ""
}
