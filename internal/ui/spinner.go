// Package ui shows progress for long-running CLI work
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Spin runs fn while showing a spinner labelled message on out. When out is
// not a terminal a single line is printed before and after instead.
func Spin(out io.Writer, message string, fn func() error) error {
	if !IsTerminal(out) {
		fmt.Fprintf(out, "%s...\n", message)
		err := fn()
		fmt.Fprintln(out, result(message, err))
		return err
	}

	p := tea.NewProgram(newProgressModel(message), tea.WithOutput(out), tea.WithInput(nil))
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _ = p.Run()
	}()

	err := fn()
	p.Send(finishedMsg{err: err})
	<-finished
	return err
}

func result(message string, err error) string {
	if err != nil {
		return "❌ " + message
	}
	return "✅ " + message
}

// progressModel animates while work runs and prints the outcome line once
// finishedMsg arrives
type progressModel struct {
	spin    spinner.Model
	label   string
	started time.Time
	outcome *error
}

type finishedMsg struct {
	err error
}

var elapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

func newProgressModel(label string) progressModel {
	return progressModel{
		spin:    spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39")))),
		label:   label,
		started: time.Now(),
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.outcome != nil {
		return m, nil
	}
	switch msg := msg.(type) {
	case finishedMsg:
		err := msg.err
		m.outcome = &err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.outcome != nil {
		return result(m.label, *m.outcome) + "\n"
	}
	elapsed := time.Since(m.started).Truncate(time.Second)
	return fmt.Sprintf("%s %s... %s", m.spin.View(), m.label, elapsedStyle.Render(elapsed.String()))
}
