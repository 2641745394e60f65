// Package tui implements the interactive log viewer for agentwave.
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lccweb/agentwave/internal/control"
	"github.com/lccweb/agentwave/internal/logclient"
)

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// Options configures the viewer.
type Options struct {
	Logs *logclient.Client
	Jobs *control.Client // optional; enables the job line in the header
	File string
}

// Run launches the log viewer and blocks until the user quits.
func Run(opts Options) error {
	ref := &programRef{}
	model := NewModel(opts, ref)

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Store program reference for goroutine sends
	ref.Set(p)
	defer ref.Clear()

	_, err := p.Run()
	model.cancel()
	return err
}
