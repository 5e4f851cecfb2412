package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

func TestFormatTimeRel(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "unknown"},
		{now.Add(time.Minute), "now"},
		{now.Add(-30 * time.Second), "now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
		{now.Add(-14 * 24 * time.Hour), "2w ago"},
		{now.Add(-65 * 24 * time.Hour), "2mo ago"},
	}
	for _, tt := range tests {
		if got := FormatTimeRel(tt.t, now); got != tt.want {
			t.Errorf("FormatTimeRel(%v) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hell…"},
		{"日本語テキスト", 5, "日本…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(5, 0, 3); got != 3 {
		t.Errorf("clamp high = %d", got)
	}
	if got := clamp(-1, 0, 3); got != 0 {
		t.Errorf("clamp low = %d", got)
	}
	// An empty range clamps to lo.
	if got := clamp(4, 0, -1); got != 0 {
		t.Errorf("clamp empty = %d", got)
	}
}

func TestRenderRow_FitsWidth(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := model.Room{
		ID:      "r1",
		Name:    "Bartholomew Fitzgerald",
		Message: "a long first line that will not fit in a narrow terminal\nsecond line",
		Recency: now.Add(-2 * time.Hour).UnixMilli(),
		Tag:     2,
	}
	for _, width := range []int{40, 80, 120} {
		for _, selected := range []bool{false, true} {
			line := renderRow(r, width, selected, now)
			if w := lipgloss.Width(line); w > width {
				t.Errorf("width %d selected=%v: rendered %d cells", width, selected, w)
			}
			if strings.Contains(line, "second line") {
				t.Error("row rendered past the first message line")
			}
		}
	}
	if line := renderRow(r, 80, false, now); !strings.Contains(line, "2h ago") {
		t.Errorf("age missing at width 80: %q", line)
	}
	if line := renderRow(r, 40, false, now); strings.Contains(line, "ago") {
		t.Errorf("age shown at width 40: %q", line)
	}
}

func TestTagLabel(t *testing.T) {
	for tag, want := range map[int]string{1: "T1", 2: "T2", 3: "T3", 0: "T?", 9: "T?"} {
		if got := tagLabel(tag); got != want {
			t.Errorf("tagLabel(%d) = %q, want %q", tag, got, want)
		}
	}
}
