package model

import (
	"testing"
	"time"
)

func TestTimeWindow_ShiftOlder(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	w := NewTimeWindow(now, 3*Day)
	origFrom := w.From

	w.ShiftOlder(Day)
	if w.To != origFrom {
		t.Errorf("To=%d, want old From %d", w.To, origFrom)
	}
	if got := w.To - w.From; got != Day.Milliseconds() {
		t.Errorf("span=%d, want %d", got, Day.Milliseconds())
	}
	if !w.Valid() {
		t.Error("window should stay valid after shift")
	}
}

func TestTimeWindow_Contains(t *testing.T) {
	w := TimeWindow{From: 10, To: 20}
	tests := []struct {
		ms   int64
		want bool
	}{
		{9, false},
		{10, true},
		{15, true},
		{20, true},
		{21, false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.ms); got != tt.want {
			t.Errorf("Contains(%d)=%v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestIsSortedByRecency(t *testing.T) {
	if !IsSortedByRecency(nil) {
		t.Error("empty should be sorted")
	}
	if !IsSortedByRecency([]RoomSummary{{Recency: 3}, {Recency: 3}, {Recency: 1}}) {
		t.Error("non-increasing with ties should be sorted")
	}
	if IsSortedByRecency([]RoomSummary{{Recency: 1}, {Recency: 2}}) {
		t.Error("ascending pair should not be sorted")
	}
}

func TestRoom_Summary(t *testing.T) {
	r := Room{ID: "a", Index: 4, Name: "Ana", Recency: 42, Tag: 2}
	s := r.Summary()
	if s.ID != "a" || s.Recency != 42 || s.Tag != 2 {
		t.Errorf("Summary()=%+v", s)
	}
}
