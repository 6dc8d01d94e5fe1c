package pipeline

import (
	"sync/atomic"

	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
)

// lane is the bounded queue between one loader worker and the scheduler.
// The channel capacity is the preload depth; the worker checks Len against
// Depth before every send, so the queue never holds more than depth frames
// and a send never blocks.
type lane struct {
	id    int
	queue chan *frames.Buffer

	loaded atomic.Int64
	cursor atomic.Int64
	failed atomic.Bool
	done   atomic.Bool
}

// LaneStats is a point-in-time snapshot of one lane, safe to read while the
// pipeline is running.
type LaneStats struct {
	ID     int   `json:"id"`
	Queued int   `json:"queued"`
	Depth  int   `json:"depth"`
	Loaded int64 `json:"loaded"`
	Cursor int64 `json:"cursor"`
	Failed bool  `json:"failed"`
	Done   bool  `json:"done"`
}

func newLane(id, depth int) *lane {
	return &lane{
		id:    id,
		queue: make(chan *frames.Buffer, depth),
	}
}

// Len returns the number of frames currently buffered.
func (l *lane) Len() int {
	return len(l.queue)
}

// Depth returns the queue capacity.
func (l *lane) Depth() int {
	return cap(l.queue)
}

// Stats returns a snapshot of the lane's counters.
func (l *lane) Stats() LaneStats {
	return LaneStats{
		ID:     l.id,
		Queued: len(l.queue),
		Depth:  cap(l.queue),
		Loaded: l.loaded.Load(),
		Cursor: l.cursor.Load(),
		Failed: l.failed.Load(),
		Done:   l.done.Load(),
	}
}
