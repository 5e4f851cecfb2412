package sortworker

import (
	"sort"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// SortInPlace orders summaries by descending recency. The sort is not
// stable: rooms with equal recency end up in an unspecified relative order.
func SortInPlace(summaries []model.RoomSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Recency > summaries[j].Recency
	})
}

// SortLocal returns a sorted copy of snapshot. It is the in-thread
// fallback with the same ordering as the worker.
func SortLocal(snapshot []model.RoomSummary) []model.RoomSummary {
	out := make([]model.RoomSummary, len(snapshot))
	copy(out, snapshot)
	SortInPlace(out)
	return out
}
