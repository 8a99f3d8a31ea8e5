// Package theme holds the terminal styles used by the command line output.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todo-overs/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for table headers and command titles.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// CellStyle is the base style for table cells.
var CellStyle = lipgloss.NewStyle().Padding(0, 1)

// HelpStyle is used for hints printed after command output.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// KindStyle returns a color-coded style for a recurrence kind.
func KindStyle(kind model.RecurrenceKind) lipgloss.Style {
	base := CellStyle.Bold(true)

	switch kind {
	case model.RecurrenceDay:
		return base.Foreground(ColorBlue)
	case model.RecurrenceWeek:
		return base.Foreground(ColorMagenta)
	case model.RecurrenceMonth:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGray)
	}
}

// PriorityStyle returns a color-coded style for a task difficulty.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := CellStyle

	switch p {
	case model.PriorityHard:
		return base.Foreground(ColorRed)
	case model.PriorityMedium:
		return base.Foreground(ColorYellow)
	case model.PriorityEasy:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// OutcomeStyle returns a color-coded style for a sync outcome name.
func OutcomeStyle(outcome string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch outcome {
	case "recreated":
		return base.Foreground(ColorGreen)
	case "deleted":
		return base.Foreground(ColorOrange)
	case "waiting", "unchanged":
		return base.Foreground(ColorGray)
	case "gave_up", "failed":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorWhite)
	}
}
