package index

import (
	"sync"
	"sync/atomic"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

const defaultSnapshotCap = 256

// summaryPool holds snapshot buffers for callers that only need a
// snapshot long enough to encode it.
var summaryPool = sync.Pool{
	New: func() any {
		poolNews.Add(1)
		buf := make([]model.RoomSummary, 0, defaultSnapshotCap)
		return &buf
	},
}

var poolGets atomic.Uint64
var poolNews atomic.Uint64

// GetSummaries returns an empty buffer from the pool.
func GetSummaries() *[]model.RoomSummary {
	poolGets.Add(1)
	buf := summaryPool.Get().(*[]model.RoomSummary)
	*buf = (*buf)[:0]
	return buf
}

// PutSummaries returns a buffer to the pool. After this call the buffer
// and any slice taken from it must not be used.
func PutSummaries(buf *[]model.RoomSummary) {
	if buf == nil {
		return
	}
	clear(*buf)
	*buf = (*buf)[:0]
	summaryPool.Put(buf)
}

// PoolStats returns the total pool hits and misses since process start.
func PoolStats() (hits uint64, misses uint64) {
	gets := poolGets.Load()
	news := poolNews.Load()
	if gets >= news {
		return gets - news, news
	}
	return 0, news
}

// SnapshotInto appends the current visible order to (*buf)[:0] and
// returns the result, growing the buffer when needed.
func (x *RecencyIndex) SnapshotInto(buf *[]model.RoomSummary) []model.RoomSummary {
	x.mu.RLock()
	defer x.mu.RUnlock()
	*buf = append((*buf)[:0], x.order...)
	return *buf
}
