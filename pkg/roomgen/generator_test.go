package roomgen

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

func TestFactory_Deterministic(t *testing.T) {
	w := model.TimeWindow{From: 1_000, To: 9_000}
	a := New(DefaultConfig()).Rooms(20, w)
	b := New(DefaultConfig()).Rooms(20, w)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("room %d differs between identical seeds:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func TestFactory_RoomFields(t *testing.T) {
	f := NewDefault()
	w := model.NewTimeWindow(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 3*model.Day)

	seen := make(map[string]bool)
	for i, r := range f.Rooms(500, w) {
		if r.Index != i+1 {
			t.Errorf("Index=%d, want %d", r.Index, i+1)
		}
		if seen[r.ID] {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true
		if !w.Contains(r.Recency) {
			t.Errorf("recency %d outside window %v", r.Recency, w)
		}
		if r.Tag < 1 || r.Tag > 3 {
			t.Errorf("tag %d out of range", r.Tag)
		}
		if r.Name == "" || r.Message == "" || !strings.HasPrefix(r.Avatar, "https://") {
			t.Errorf("incomplete room: %+v", r)
		}
	}
	if f.Count() != 500 {
		t.Errorf("Count()=%d, want 500", f.Count())
	}
}

func TestFactory_SwappedBounds(t *testing.T) {
	f := NewDefault()
	for i := 0; i < 50; i++ {
		r := f.Room(200, 100)
		if r.Recency < 100 || r.Recency > 200 {
			t.Fatalf("recency %d outside [100,200]", r.Recency)
		}
	}
}

func TestFactory_ConcurrentUse(t *testing.T) {
	f := New(Config{Seed: 7})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				f.Room(0, 10)
				f.Intn(5)
			}
		}()
	}
	wg.Wait()
	if f.Count() != 800 {
		t.Errorf("Count()=%d, want 800", f.Count())
	}
}

func TestFactory_IntnNonPositive(t *testing.T) {
	if got := NewDefault().Intn(0); got != 0 {
		t.Errorf("Intn(0)=%d, want 0", got)
	}
}
