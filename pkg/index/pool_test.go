package index

import (
	"testing"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

func TestSnapshotInto_MatchesSnapshot(t *testing.T) {
	x := New()
	x.Insert([]model.Room{{ID: "a", Recency: 1}, {ID: "b", Recency: 2}, {ID: "c", Recency: 3}})

	buf := GetSummaries()
	defer PutSummaries(buf)
	got := x.SnapshotInto(buf)
	want := x.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	// The buffer is a copy; later inserts do not show through.
	x.Insert([]model.Room{{ID: "d", Recency: 4}})
	if len(got) != 3 {
		t.Errorf("snapshot grew to %d", len(got))
	}
}

func TestSummaryPool_ResetsBuffers(t *testing.T) {
	buf := GetSummaries()
	*buf = append(*buf, model.RoomSummary{ID: "x"})
	PutSummaries(buf)

	again := GetSummaries()
	defer PutSummaries(again)
	if len(*again) != 0 {
		t.Errorf("pooled buffer len = %d, want 0", len(*again))
	}

	hits, misses := PoolStats()
	if hits+misses == 0 {
		t.Error("pool stats not recorded")
	}
}

func TestPutSummaries_Nil(t *testing.T) {
	PutSummaries(nil)
}
