package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	accentColor = lipgloss.Color("#3B82F6")
	kindColor   = lipgloss.Color("#10B981")
	errorColor  = lipgloss.Color("#EF4444")
	mutedColor  = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(kindColor)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)
)

// isTerminal reports whether w is a terminal. Styles are only applied there.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// painter renders with styles or passes text through.
type painter bool

func (p painter) render(s lipgloss.Style, text string) string {
	if !p {
		return text
	}
	return s.Render(text)
}
