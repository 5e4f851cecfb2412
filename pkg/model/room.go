// Package model defines the room records shared by the engine, the sort
// worker and the UI.
package model

import (
	"fmt"
	"time"
)

// Day is the span a TimeWindow moves by on each load-older call.
const Day = 24 * time.Hour

// Room is a chat-like list entry. Everything except Recency is fixed at
// creation time.
type Room struct {
	ID      string `json:"roomID"`
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	Recency int64  `json:"updatedAt"` // epoch ms, higher sorts first
	Message string `json:"message"`
	Tag     int    `json:"tag"` // 1..3
}

// Summary returns the sort-key projection of the room.
func (r Room) Summary() RoomSummary {
	return RoomSummary{ID: r.ID, Recency: r.Recency, Tag: r.Tag}
}

// UpdatedAt returns Recency as a time.Time.
func (r Room) UpdatedAt() time.Time {
	return time.UnixMilli(r.Recency)
}

// RoomSummary is the lightweight projection used for ordering. It carries
// the same ID as the full record it was taken from.
type RoomSummary struct {
	ID      string `json:"roomID"`
	Recency int64  `json:"updatedAt"`
	Tag     int    `json:"tag"`
}

// TimeWindow bounds the recency of generated rooms, in epoch ms.
type TimeWindow struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// NewTimeWindow returns the window [now-span, now].
func NewTimeWindow(now time.Time, span time.Duration) TimeWindow {
	to := now.UnixMilli()
	return TimeWindow{From: to - span.Milliseconds(), To: to}
}

// ShiftOlder moves the window back so the new To is the old From and the
// new window is span wide.
func (w *TimeWindow) ShiftOlder(span time.Duration) {
	w.To = w.From
	w.From = w.To - span.Milliseconds()
}

// Contains reports whether ms falls inside [From, To].
func (w TimeWindow) Contains(ms int64) bool {
	return ms >= w.From && ms <= w.To
}

// Valid reports whether From < To.
func (w TimeWindow) Valid() bool {
	return w.From < w.To
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s..%s",
		time.UnixMilli(w.From).UTC().Format(time.RFC3339),
		time.UnixMilli(w.To).UTC().Format(time.RFC3339))
}

// IsSortedByRecency reports whether summaries are in non-increasing
// recency order.
func IsSortedByRecency(summaries []RoomSummary) bool {
	for i := 1; i < len(summaries); i++ {
		if summaries[i-1].Recency < summaries[i].Recency {
			return false
		}
	}
	return true
}
