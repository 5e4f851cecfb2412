package engine

import (
	"time"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// Op names a bulk operation kind.
type Op string

const (
	OpInsert    Op = "insert"
	OpLoadOlder Op = "load_older"
	OpTouch     Op = "touch_random"
	OpSort      Op = "sort"
)

// Sort routes reported in SortCommittedMsg.Via.
const (
	ViaWorker = "worker"
	ViaLocal  = "local"
)

// RoomsChangedMsg is sent after each chunk an operation applies.
type RoomsChangedMsg struct {
	Op      Op
	Changed int // rooms added or touched by this chunk
	Len     int
}

// SortCommittedMsg is sent when a sort result replaced the visible order.
type SortCommittedMsg struct {
	Tag      uint64
	Via      string
	Len      int
	Appended int
	Drifted  int
	Duration time.Duration // issue to commit
}

// SortDroppedMsg is sent when a sort result was not applied.
type SortDroppedMsg struct {
	Tag    uint64
	Latest uint64
	Reason string // "stale" or "echo"
}

// WorkerLogMsg carries a diagnostic line from the sort worker.
type WorkerLogMsg struct {
	Text string
}

// OpDoneMsg is sent when an operation finishes, including after an error.
type OpDoneMsg struct {
	Op       Op
	Count    int
	Duration time.Duration
	Err      error
}

// State is a point-in-time view of the engine.
type State struct {
	Len          int
	Sorting      bool
	Inserting    bool
	Loading      bool
	Resetting    bool
	PendingSorts int64
	LatestTag    uint64
	Window       model.TimeWindow
	ChunkSize    int
	UseWorker    bool
}

// Sample is one timing observation handed to an Observer.
type Sample struct {
	Op        Op
	Phase     string // "chunk", "op" or "sort"
	Size      int
	Duration  time.Duration
	Via       string // sort samples only
	Tag       uint64 // sort samples only
	Committed bool   // sort samples only
}

// Observer receives timing samples. Observe must not block.
type Observer interface {
	Observe(Sample)
}
