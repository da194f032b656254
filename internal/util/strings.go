// Package util provides small string helpers shared by the CLI commands
// and the dependency checker.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for line := range strings.Lines(s) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// Escape sequences and wide characters are measured by display width.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate includes the tail in the final width calculation
	return ansi.Truncate(s, maxWidth, "...")
}

// Preview renders the first line of s, stripped of escape sequences, in
// at most maxWidth columns. Used for one-line summaries of spec content
// and tool output.
func Preview(s string, maxWidth int) string {
	return TruncateANSI(FirstLine(ansi.Strip(s)), maxWidth)
}
