// Package testing drives Bubble Tea models without a terminal.
package testing

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultLimit bounds Drive so a command that keeps re-arming itself cannot hang a test.
const defaultLimit = 200

// TestRenderer captures the output of a Bubble Tea model without requiring a real terminal.
type TestRenderer struct {
	// Output contains the last rendered view
	Output string

	// Messages contains all messages sent to the model
	Messages []tea.Msg

	// UpdateCount tracks how many times Update was called
	UpdateCount int

	// Limit caps the messages one Drive call delivers
	Limit int

	// Quit is set once a command asked the program to exit
	Quit bool
}

// NewTestRenderer creates a new test renderer.
func NewTestRenderer() *TestRenderer {
	return &TestRenderer{Limit: defaultLimit}
}

// Render renders a model and captures its output.
func (r *TestRenderer) Render(model tea.Model) string {
	r.Output = model.View()
	return r.Output
}

// Update sends a message to the model and captures the result.
func (r *TestRenderer) Update(model tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	r.Messages = append(r.Messages, msg)
	r.UpdateCount++

	next, cmd := model.Update(msg)
	r.Output = next.View()
	return next, cmd
}

// Send delivers msg and then runs every command that follows from it.
func (r *TestRenderer) Send(model tea.Model, msg tea.Msg) tea.Model {
	next, cmd := r.Update(model, msg)
	return r.Drive(next, cmd)
}

// Drive runs cmd synchronously, feeding each resulting message back
// through Update until no commands remain. Batches are flattened and a
// quit request is recorded instead of delivered.
func (r *TestRenderer) Drive(model tea.Model, cmd tea.Cmd) tea.Model {
	limit := r.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	queue := []tea.Cmd{cmd}
	for delivered := 0; len(queue) > 0 && delivered < limit; {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			r.Quit = true
		default:
			var follow tea.Cmd
			model, follow = r.Update(model, msg)
			queue = append(queue, follow)
			delivered++
		}
	}
	return model
}

// StripANSI removes ANSI escape codes from the output for content-only testing.
func (r *TestRenderer) StripANSI() string {
	return StripANSI(r.Output)
}

// Lines returns the output split by newlines.
func (r *TestRenderer) Lines() []string {
	return strings.Split(r.Output, "\n")
}
