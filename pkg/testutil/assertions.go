// Package testutil holds assertions shared by the room list tests.
package testutil

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// AssertRoomCount verifies the expected number of rooms.
func AssertRoomCount(t testing.TB, rooms []model.RoomSummary, expected int) {
	t.Helper()
	if len(rooms) != expected {
		t.Errorf("expected %d rooms, got %d", expected, len(rooms))
	}
}

// AssertNoDuplicateIDs verifies all room IDs are unique.
func AssertNoDuplicateIDs(t testing.TB, rooms []model.RoomSummary) {
	t.Helper()
	seen := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		if seen[r.ID] {
			t.Errorf("duplicate room ID: %s", r.ID)
		}
		seen[r.ID] = true
	}
}

// AssertSortedByRecency verifies rooms are in non-increasing recency order
// and reports the first inversion.
func AssertSortedByRecency(t testing.TB, rooms []model.RoomSummary) {
	t.Helper()
	for i := 1; i < len(rooms); i++ {
		if rooms[i].Recency > rooms[i-1].Recency {
			t.Errorf("rooms not sorted at %d: %s (%d) after %s (%d)",
				i, rooms[i].ID, rooms[i].Recency, rooms[i-1].ID, rooms[i-1].Recency)
			return
		}
	}
}

// AssertSameIDs verifies both slices hold the same set of IDs, ignoring
// order.
func AssertSameIDs(t testing.TB, expected, actual []model.RoomSummary) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("expected %d rooms, got %d", len(expected), len(actual))
		return
	}
	want := make(map[string]int, len(expected))
	for _, r := range expected {
		want[r.ID]++
	}
	for _, r := range actual {
		if want[r.ID] == 0 {
			t.Errorf("unexpected room ID: %s", r.ID)
			continue
		}
		want[r.ID]--
	}
	for id, n := range want {
		if n > 0 {
			t.Errorf("missing room ID: %s", id)
		}
	}
}

// AssertWithinWindow verifies every room's recency lies inside w.
func AssertWithinWindow(t testing.TB, rooms []model.Room, w model.TimeWindow) {
	t.Helper()
	for _, r := range rooms {
		if !w.Contains(r.Recency) {
			t.Errorf("room %s recency %d outside %s", r.ID, r.Recency, w)
		}
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t testing.TB, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// IDs returns the room IDs in order.
func IDs(rooms []model.RoomSummary) []string {
	out := make([]string, len(rooms))
	for i, r := range rooms {
		out[i] = r.ID
	}
	return out
}
