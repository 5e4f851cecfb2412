package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// renderRow renders one room on a single line:
// [sel] [tag] name  message…  age
func renderRow(r model.Room, width int, selected bool, now time.Time) string {
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	sel := "  "
	if selected {
		sel = "▸ "
	}
	tag := RenderTagBadge(r.Tag)
	age := FormatTimeRel(r.UpdatedAt(), now)

	const nameWidth = 10
	name := padRight(truncate(r.Name, nameWidth), nameWidth)

	rightWidth := 0
	right := ""
	if width > 50 {
		right = mutedStyle.Render(padLeft(age, 8))
		rightWidth = 9
	}

	used := lipgloss.Width(sel) + lipgloss.Width(tag) + 1 + nameWidth + 1 + rightWidth
	msgWidth := width - used
	msg := ""
	if msgWidth > 0 {
		msg = padRight(truncate(firstLine(r.Message), msgWidth), msgWidth)
	}

	var sb strings.Builder
	sb.WriteString(sel)
	sb.WriteString(tag)
	sb.WriteString(" ")
	sb.WriteString(nameStyle.Render(name))
	sb.WriteString(" ")
	sb.WriteString(messageStyle.Render(msg))
	if right != "" {
		sb.WriteString(" ")
		sb.WriteString(right)
	}

	line := sb.String()
	if selected {
		return selectedRowStyle.Render(line)
	}
	return line
}

func padLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}
