package cmd

import "github.com/charmbracelet/lipgloss"

// Terminal styles for status lines. Colors degrade to plain text when
// output is not a terminal.
var (
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const (
	symbolRun  = "▶"
	symbolOK   = "✓"
	symbolFail = "✗"
	symbolWarn = "!"
)

// previewWidth caps one-line previews in status lines.
const previewWidth = 60
