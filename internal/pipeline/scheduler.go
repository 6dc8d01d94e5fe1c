package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/FrameStreamer/internal/display"
)

// yieldInterval is how long the scheduler parks between clock polls while
// waiting for the next frame deadline.
const yieldInterval = time.Millisecond

// ErrStopped is returned by Play when playback was cancelled via Stop before
// reaching the final frame.
var ErrStopped = errors.New("playback stopped")

// LaneClosedError reports that a lane shut down before producing a frame the
// scheduler still needed. It only occurs after a loader hit a fatal error in
// signal mode.
type LaneClosedError struct {
	Lane  int
	Frame int
}

// Error implements the error interface.
func (e *LaneClosedError) Error() string {
	return fmt.Sprintf("lane %d closed before frame %d was produced", e.Lane, e.Frame)
}

// scheduler drives frames to the sink at the configured rate. A single
// goroutine owns the cursor, so frames present strictly in ascending order.
type scheduler struct {
	lanes    []*lane
	sink     display.Sink
	interval time.Duration
	begin    int
	total    int
	clk      clock.Clock
	stop     <-chan struct{}
	log      *zerolog.Logger

	cursor    atomic.Int64
	rendered  atomic.Int64
	underruns atomic.Int64
}

// run paces playback with phase-resetting ticks: each presented or skipped
// tick re-anchors the deadline at the current instant, so a late frame delays
// the rest of the stream instead of triggering a catch-up burst.
func (s *scheduler) run() error {
	s.cursor.Store(int64(s.begin))

	var last time.Time
	cursor := s.begin

	for cursor < s.total {
		now := s.clk.Now()
		if now.Sub(last) > s.interval {
			last = now
			lane := s.lanes[Partition(cursor, len(s.lanes))]
			select {
			case buf, ok := <-lane.queue:
				if !ok {
					return &LaneClosedError{Lane: lane.id, Frame: cursor}
				}
				s.sink.Draw(0, 0, buf.Image)
				if err := s.sink.Present(); err != nil {
					return fmt.Errorf("failed to present frame %d: %w", cursor, err)
				}
				cursor++
				s.cursor.Store(int64(cursor))
				s.rendered.Add(1)
			default:
				s.underruns.Add(1)
				s.log.Warn().
					Int("frame", cursor).
					Int("lane", lane.id).
					Msg("Buffer underrun, waiting for loader to catch up")
			}
			continue
		}

		select {
		case <-s.stop:
			return ErrStopped
		case <-s.clk.After(yieldInterval):
		}
	}

	s.log.Info().
		Int64("frames", s.rendered.Load()).
		Int64("underruns", s.underruns.Load()).
		Msg("Playback complete")
	return nil
}
