package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/empirlink/internal/session"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - open, on
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, closed
	WarningColor = lipgloss.Color("#FFA500") // Orange - connecting
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	ColumnHeaderStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Bold(true)

	IDStyle = lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Width(7).
		Align(lipgloss.Right)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Width(22)

	KindStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(9)

	OnStyle = lipgloss.NewStyle().
		Foreground(SuccessColor).
		Bold(true)

	OffStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	OnMarker      = "●"
	OffMarker     = "○"
)

// StateStyle returns the badge style for a session state
func StateStyle(s session.State) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch s {
	case session.StateOpen:
		return base.Foreground(lipgloss.Color("#000000")).Background(SuccessColor)
	case session.StateConnecting:
		return base.Foreground(lipgloss.Color("#000000")).Background(WarningColor)
	default:
		return base.Foreground(TextColor).Background(ErrorColor)
	}
}

// BoxStyle returns the rounded border used around the monitor
func BoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	return clampWidth(width, err)
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	return clampWidth(width, nil), height
}

func clampWidth(width int, err error) int {
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// IsTerminal reports whether stdout is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// RenderDivider creates a horizontal line of the specified width
func RenderDivider(width int) string {
	if width < 1 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}
