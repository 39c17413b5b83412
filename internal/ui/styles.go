package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("39")  // blue
	colorMuted  = lipgloss.Color("242") // gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	keyStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// Field is one key/value line in a listing.
type Field struct {
	Key   string
	Value string
}

// RenderFields renders a titled key/value listing. Keys are padded to a
// common width; styling is applied only when color is true.
func RenderFields(title string, fields []Field, color bool) string {
	width := 0
	for _, f := range fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}

	var sb strings.Builder
	if color {
		sb.WriteString(titleStyle.Render(title))
	} else {
		sb.WriteString(title)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	for _, f := range fields {
		key := fmt.Sprintf("%-*s", width, f.Key)
		value := f.Value
		if value == "" {
			value = "(unset)"
		}
		if color {
			key = keyStyle.Render(key)
			value = valueStyle.Render(value)
		}
		sb.WriteString("  ")
		sb.WriteString(key)
		sb.WriteString("  ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderMarkdown renders md for the terminal. Without color it returns md
// unchanged.
func RenderMarkdown(md string, color bool) (string, error) {
	if !color {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
