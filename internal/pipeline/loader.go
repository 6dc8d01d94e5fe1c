package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
)

// throttleInterval is how long a worker sleeps when its lane is full before
// re-checking the queue.
const throttleInterval = 100 * time.Millisecond

// loader is one preload worker. It walks its lane's frame indices in
// ascending order, loads each frame from disk, and enqueues it. A load
// failure is fatal to the worker but never to its siblings.
type loader struct {
	lane   *lane
	source *frames.Source
	lanes  int
	begin  int
	total  int
	mode   FailureMode
	clk    clock.Clock
	stop   <-chan struct{}
	log    *zerolog.Logger
}

func (w *loader) run() {
	var (
		burstFrames int
		burstIO     time.Duration
		burstDecode time.Duration
		burstResize time.Duration
		burstFirst  int
	)

	flush := func() {
		if burstFrames == 0 {
			return
		}
		w.log.Debug().
			Int("lane", w.lane.id).
			Int("frames", burstFrames).
			Int("first_frame", burstFirst).
			Dur("io", burstIO).
			Dur("decode", burstDecode).
			Dur("resize", burstResize).
			Msg("Preload burst")
		burstFrames = 0
		burstIO, burstDecode, burstResize = 0, 0, 0
	}

	for index := w.begin; index < w.total; index++ {
		if Partition(index, w.lanes) != w.lane.id {
			continue
		}

		// Hold off while the lane is at depth. The worker is the only
		// sender, so once Len drops below Depth the send below cannot
		// block.
		for w.lane.Len() >= w.lane.Depth() {
			flush()
			select {
			case <-w.stop:
				return
			case <-w.clk.After(throttleInterval):
			}
		}

		buf, timing, err := w.source.Load(index)
		if err != nil {
			flush()
			w.lane.failed.Store(true)
			w.log.Error().
				Err(err).
				Int("lane", w.lane.id).
				Int("frame", index).
				Msg("Frame load failed, stopping lane")
			if w.mode == FailSignal {
				close(w.lane.queue)
			}
			return
		}

		w.lane.queue <- buf
		w.lane.loaded.Add(1)
		w.lane.cursor.Store(int64(index + w.lanes))

		if burstFrames == 0 {
			burstFirst = index
		}
		burstFrames++
		burstIO += timing.IO
		burstDecode += timing.Decode
		burstResize += timing.Resize
	}

	flush()
	w.lane.done.Store(true)
	close(w.lane.queue)
	w.log.Info().
		Int("lane", w.lane.id).
		Int64("frames", w.lane.loaded.Load()).
		Msg("Lane finished loading")
}
