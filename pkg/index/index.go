// Package index holds the room collection in two tiers: the full records
// keyed by id, and the ordered sort-key projection the UI renders from.
package index

import (
	"sync"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// ApplyResult describes what Apply did with a sorted snapshot.
type ApplyResult struct {
	Committed bool   // false when the tag was stale
	Tag       uint64 // tag the result was issued under
	Latest    uint64 // most recently issued tag at apply time
	Appended  int    // rooms inserted after the snapshot, kept at the tail
	Drifted   int    // summaries whose recency changed since the snapshot
	Skipped   int    // ids in the snapshot no longer in the store
}

// NeedsResort reports whether the committed order may already be stale.
func (r ApplyResult) NeedsResort() bool {
	return r.Committed && (r.Appended > 0 || r.Drifted > 0)
}

// RecencyIndex is safe for concurrent use. Each method is atomic with
// respect to the others.
type RecencyIndex struct {
	mu        sync.RWMutex
	rooms     map[string]*model.Room
	order     []model.RoomSummary
	pos       map[string]int // id -> position in order
	latestTag uint64
}

// New returns an empty index.
func New() *RecencyIndex {
	return &RecencyIndex{
		rooms: make(map[string]*model.Room),
		pos:   make(map[string]int),
	}
}

// Insert adds rooms to the store and appends their summaries to the
// projection, unsorted. A room whose id is already present replaces the
// stored record without adding a second summary.
func (x *RecencyIndex) Insert(rooms []model.Room) {
	if len(rooms) == 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	for i := range rooms {
		r := rooms[i]
		if p, ok := x.pos[r.ID]; ok {
			x.rooms[r.ID] = &r
			x.order[p] = r.Summary()
			continue
		}
		x.rooms[r.ID] = &r
		x.pos[r.ID] = len(x.order)
		x.order = append(x.order, r.Summary())
	}
}

// Touch sets the recency of id to now (epoch ms) in both tiers. It is a
// no-op returning false if id is absent.
func (x *RecencyIndex) Touch(id string, now int64) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.touchLocked(id, now)
}

// TouchAt touches the room at position i of the projection.
func (x *RecencyIndex) TouchAt(i int, now int64) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if i < 0 || i >= len(x.order) {
		return "", false
	}
	id := x.order[i].ID
	return id, x.touchLocked(id, now)
}

func (x *RecencyIndex) touchLocked(id string, now int64) bool {
	r, ok := x.rooms[id]
	if !ok {
		return false
	}
	r.Recency = now
	if p, ok := x.pos[id]; ok {
		x.order[p].Recency = now
	}
	return true
}

// Snapshot returns a copy of the projection.
func (x *RecencyIndex) Snapshot() []model.RoomSummary {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]model.RoomSummary, len(x.order))
	copy(out, x.order)
	return out
}

// BeginSort issues the next sort tag and records it as the latest.
func (x *RecencyIndex) BeginSort() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.latestTag++
	return x.latestTag
}

// BeginSortAt records tag as the latest issued tag. Tags must increase;
// a tag at or below the current latest is bumped past it. The tag
// actually recorded is returned.
func (x *RecencyIndex) BeginSortAt(tag uint64) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	if tag <= x.latestTag {
		tag = x.latestTag + 1
	}
	x.latestTag = tag
	return tag
}

// LatestTag returns the most recently issued tag.
func (x *RecencyIndex) LatestTag() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.latestTag
}

// Apply replaces the projection with sorted if tag is the latest issued
// tag; otherwise the result is stale and dropped.
//
// On commit, recency comes from the store (it may have been touched since
// the snapshot), ids no longer stored are skipped, and stored rooms the
// snapshot did not include are appended in their previous relative order.
func (x *RecencyIndex) Apply(sorted []model.RoomSummary, tag uint64) ApplyResult {
	x.mu.Lock()
	defer x.mu.Unlock()

	res := ApplyResult{Tag: tag, Latest: x.latestTag}
	if tag != x.latestTag {
		return res
	}
	res.Committed = true

	order := make([]model.RoomSummary, 0, len(x.rooms))
	pos := make(map[string]int, len(x.rooms))
	for _, s := range sorted {
		r, ok := x.rooms[s.ID]
		if !ok {
			res.Skipped++
			continue
		}
		if _, dup := pos[s.ID]; dup {
			continue
		}
		if r.Recency != s.Recency {
			res.Drifted++
		}
		pos[s.ID] = len(order)
		order = append(order, r.Summary())
	}
	for _, s := range x.order {
		if _, ok := pos[s.ID]; ok {
			continue
		}
		r, ok := x.rooms[s.ID]
		if !ok {
			continue
		}
		pos[s.ID] = len(order)
		order = append(order, r.Summary())
		res.Appended++
	}

	x.order = order
	x.pos = pos
	return res
}

// Len returns the number of stored rooms.
func (x *RecencyIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// Get returns a copy of the room with the given id.
func (x *RecencyIndex) Get(id string) (model.Room, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	r, ok := x.rooms[id]
	if !ok {
		return model.Room{}, false
	}
	return *r, true
}

// Page returns copies of the full records for projection positions
// [offset, offset+limit), clamped to the projection.
func (x *RecencyIndex) Page(offset, limit int) []model.Room {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(x.order) {
		return nil
	}
	end := offset + limit
	if end > len(x.order) {
		end = len(x.order)
	}
	out := make([]model.Room, 0, end-offset)
	for _, s := range x.order[offset:end] {
		if r, ok := x.rooms[s.ID]; ok {
			out = append(out, *r)
		}
	}
	return out
}

// Consistent reports whether the projection and the store hold the same
// id set. Intended for tests and debug assertions.
func (x *RecencyIndex) Consistent() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if len(x.order) != len(x.rooms) || len(x.pos) != len(x.rooms) {
		return false
	}
	for i, s := range x.order {
		r, ok := x.rooms[s.ID]
		if !ok || r.Recency != s.Recency || x.pos[s.ID] != i {
			return false
		}
	}
	return true
}
