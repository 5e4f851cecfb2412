package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/roomlist/pkg/pressure"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Room tag colors (tags are 1..3)
	ColorTag1 = lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"}
	ColorTag2 = lipgloss.AdaptiveColor{Light: "#36B37E", Dark: "#57D9A3"}
	ColorTag3 = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Background(ColorBgSubtle)

	selectedRowStyle = lipgloss.NewStyle().
				Background(ColorBgHighlight).
				Bold(true)

	nameStyle    = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	messageStyle = lipgloss.NewStyle().Foreground(ColorSubtext)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorDanger).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	busyStyle    = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(ColorSuccess)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)
)

// RenderTagBadge returns a styled badge for a room tag.
func RenderTagBadge(tag int) string {
	var fg lipgloss.AdaptiveColor
	switch tag {
	case 1:
		fg = ColorTag1
	case 2:
		fg = ColorTag2
	case 3:
		fg = ColorTag3
	default:
		fg = ColorMuted
	}
	return lipgloss.NewStyle().
		Foreground(fg).
		Background(ColorBgSubtle).
		Bold(true).
		Render(tagLabel(tag))
}

func tagLabel(tag int) string {
	switch tag {
	case 1, 2, 3:
		return "T" + string(rune('0'+tag))
	default:
		return "T?"
	}
}

// RenderPressure returns the CPU pressure state, colored by severity.
func RenderPressure(s pressure.State) string {
	var fg lipgloss.AdaptiveColor
	switch s {
	case pressure.Nominal:
		fg = ColorSuccess
	case pressure.Fair:
		fg = ColorInfo
	case pressure.Serious:
		fg = ColorWarning
	case pressure.Critical:
		fg = ColorDanger
	default:
		fg = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(fg).Render("cpu " + string(s))
}

// RenderDivider returns a horizontal divider line.
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Foreground(ColorBgHighlight).Render(repeat("─", width))
}
