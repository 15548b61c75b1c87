package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Brand color palette
var (
	// Primary brand colors (clinical teal)
	colorPrimary      = lipgloss.Color("#1FA2A6")
	colorPrimaryLight = lipgloss.Color("#4CC3C6")
	colorPrimaryDark  = lipgloss.Color("#167A7D")

	// Neutral colors
	colorText  = lipgloss.Color("#F2F3F3")
	colorMuted = lipgloss.Color("240")

	// State colors
	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

// Styles
var (
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Foreground(colorPrimaryLight).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimaryDark).
			Padding(0, 1)
	errorPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorError).
			Padding(0, 1)
	tableHeaderStyle = lipgloss.NewStyle().Foreground(colorPrimaryLight).Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Foreground(colorText).Padding(0, 1)
)

// Icons
const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠"
	iconInfo    = "●"
)

// testIsTTYOverride forces TTY detection in tests.
var (
	testIsTTYOverride *bool
	testIsTTYMutex    sync.RWMutex
)

// isTTY returns true if stdout is a terminal
func isTTY() bool {
	testIsTTYMutex.RLock()
	override := testIsTTYOverride
	testIsTTYMutex.RUnlock()
	if override != nil {
		return *override
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printStyled prints a message with an icon, applying style only in TTY mode
func printStyled(w io.Writer, icon string, style lipgloss.Style, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isTTY() {
		fmt.Fprintf(w, "%s %s\n", style.Render(icon), msg)
	} else {
		fmt.Fprintf(w, "%s %s\n", icon, msg)
	}
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconSuccess, successStyle, format, args...)
}

func printError(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconError, errorStyle, format, args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconWarning, warningStyle, format, args...)
}

func printInfo(w io.Writer, format string, args ...interface{}) {
	printStyled(w, iconInfo, infoStyle, format, args...)
}

// printMuted prints muted/secondary text
func printMuted(w io.Writer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isTTY() {
		fmt.Fprintln(w, mutedStyle.Render(msg))
	} else {
		fmt.Fprintln(w, msg)
	}
}

// printField prints "label value" with the label styled on a TTY.
func printField(w io.Writer, label, value string) {
	if isTTY() {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
	} else {
		fmt.Fprintf(w, "%s %s\n", label, value)
	}
}

// renderPanel draws content inside a rounded border with an optional title.
// Plain text outside a terminal.
func renderPanel(title, content string) string {
	content = strings.TrimRight(content, "\n")
	if !isTTY() {
		if title == "" {
			return content
		}
		return title + "\n" + strings.Repeat("=", len(title)) + "\n" + content
	}
	if title != "" {
		content = labelStyle.Render(title) + "\n\n" + content
	}
	return panelStyle.Render(content)
}

// renderErrorPanel formats an error with optional context and suggestion.
func renderErrorPanel(msg, context, suggestion string) string {
	var sb strings.Builder
	sb.WriteString(msg)
	if context != "" {
		sb.WriteString("\n\nContext: " + context)
	}
	if suggestion != "" {
		sb.WriteString("\nSuggestion: " + suggestion)
	}
	if !isTTY() {
		return sb.String()
	}
	return errorPanelStyle.Render(errorStyle.Render(iconError) + " " + sb.String())
}

// renderTable renders rows under headers: a bordered lipgloss table on a
// TTY, aligned plain columns otherwise.
func renderTable(headers []string, rows [][]string) string {
	if isTTY() {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorPrimaryDark)).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tableHeaderStyle
				}
				return tableCellStyle
			}).
			Headers(headers...).
			Rows(rows...)
		return t.Render()
	}

	cols := len(headers)
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	widths := make([]int, cols)
	measure := func(cells []string) {
		for i, c := range cells {
			if w := lipgloss.Width(c); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(headers)
	for _, r := range rows {
		measure(r)
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c + strings.Repeat(" ", widths[i]-lipgloss.Width(c))
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		sb.WriteString("\n")
	}
	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, r := range rows {
		writeRow(r)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderMarkdown renders markdown content with glamour
func renderMarkdown(content string) string {
	if !isTTY() {
		return content
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimSpace(rendered)
}
