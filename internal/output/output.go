// Package output prints styled status lines for the roost CLI.
//
// Functions use lipgloss for styling but keep the details away from callers:
//
//	output.Success("Wrote shop.zip")
//	output.Step("unzip shop.zip && npm install")
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	nameStyle    = lipgloss.NewStyle().Bold(true)

	mu          sync.Mutex
	out         io.Writer = os.Stdout
	verboseMode bool
)

// SetVerbose enables or disables verbose output.
// The CLI calls this when --verbose is set.
func SetVerbose(v bool) {
	mu.Lock()
	verboseMode = v
	mu.Unlock()
}

// SetOutput redirects every printer; nil restores stdout
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stdout
	}
	out = w
}

func writeLine(s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, s)
}

// Success prints a completed operation in green
func Success(msg string) {
	writeLine(successStyle.Render("✅ " + msg))
}

// Error prints a failure in red
func Error(msg string) {
	writeLine(errorStyle.Render("❌ " + msg))
}

// Info prints a status update in cyan
func Info(msg string) {
	writeLine(infoStyle.Render("ℹ️  " + msg))
}

// Step prints an indented follow-up in gray
//
// Example:
//
//	output.Step("cd shop && npm install")
func Step(msg string) {
	writeLine(stepStyle.Render("   " + msg))
}

// Verbose prints msg only when verbose mode is on
func Verbose(msg string) {
	mu.Lock()
	on := verboseMode
	mu.Unlock()
	if on {
		writeLine(stepStyle.Render("🔍 " + msg))
	}
}

// TreeItem is one line of a printed tree
type TreeItem struct {
	Name     string
	Note     string
	Children []TreeItem
}

// Tree prints items as an indented tree with box-drawing branches
func Tree(items []TreeItem) {
	var b strings.Builder
	writeTree(&b, items, "")
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(out, b.String())
}

func writeTree(b *strings.Builder, items []TreeItem, indent string) {
	for i, item := range items {
		branch, next := "├── ", "│   "
		if i == len(items)-1 {
			branch, next = "└── ", "    "
		}
		line := indent + branch + nameStyle.Render(item.Name)
		if item.Note != "" {
			line += "  " + stepStyle.Render(item.Note)
		}
		b.WriteString(line + "\n")
		writeTree(b, item.Children, indent+next)
	}
}
