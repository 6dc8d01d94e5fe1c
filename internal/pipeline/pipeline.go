// Package pipeline coordinates frame playback: a fixed set of loader workers
// preload frames from disk into per-lane bounded queues, and a single
// scheduler pops them in order and paces them onto a display sink.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/FrameStreamer/internal/display"
	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
	"github.com/bryanchriswhite/FrameStreamer/internal/logger"
)

// FailureMode selects what a loader does to its lane after a fatal load
// error.
type FailureMode string

const (
	// FailSignal closes the failed lane's queue so the scheduler aborts
	// with a LaneClosedError as soon as it reaches the missing frame.
	FailSignal FailureMode = "signal"

	// FailStall leaves the failed lane's queue open. The scheduler drains
	// whatever was buffered and then underruns forever on that lane.
	FailStall FailureMode = "stall"
)

// Options configures a Pipeline.
type Options struct {
	// Source loads and scales frames from disk.
	Source *frames.Source

	// Sink receives presented frames.
	Sink display.Sink

	// Lanes is the number of loader workers, each owning one lane.
	Lanes int

	// PreloadDepth bounds each lane's queue.
	PreloadDepth int

	// Begin is the first frame index to play.
	Begin int

	// TotalFrames is the exclusive upper bound of the stream.
	TotalFrames int

	// Framerate is the playback rate in frames per second.
	Framerate int

	// FailureMode defaults to FailSignal when empty.
	FailureMode FailureMode

	// Clock defaults to the wall clock when nil.
	Clock clock.Clock
}

// Status is a point-in-time snapshot of a running pipeline.
type Status struct {
	Cursor    int64       `json:"cursor"`
	Rendered  int64       `json:"rendered"`
	Underruns int64       `json:"underruns"`
	Total     int         `json:"total"`
	Framerate int         `json:"framerate"`
	Lanes     []LaneStats `json:"lanes"`
}

// Pipeline owns the loader workers and the playback scheduler for one run.
type Pipeline struct {
	opts  Options
	lanes []*lane
	sched *scheduler

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	log      *zerolog.Logger
}

// New validates opts and builds a pipeline. Start must be called before Play.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline requires a frame source")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("pipeline requires a display sink")
	}
	if opts.Lanes < 1 {
		return nil, fmt.Errorf("lane count must be at least 1, got %d", opts.Lanes)
	}
	if opts.PreloadDepth < 1 {
		return nil, fmt.Errorf("preload depth must be at least 1, got %d", opts.PreloadDepth)
	}
	if opts.Framerate < 1 {
		return nil, fmt.Errorf("framerate must be at least 1, got %d", opts.Framerate)
	}
	if opts.TotalFrames < 1 {
		return nil, fmt.Errorf("total frames must be at least 1, got %d", opts.TotalFrames)
	}
	if opts.Begin < 0 || opts.Begin >= opts.TotalFrames {
		return nil, fmt.Errorf("begin frame %d out of range [0, %d)", opts.Begin, opts.TotalFrames)
	}
	if opts.FailureMode == "" {
		opts.FailureMode = FailSignal
	}
	if opts.FailureMode != FailSignal && opts.FailureMode != FailStall {
		return nil, fmt.Errorf("unknown failure mode %q", opts.FailureMode)
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	p := &Pipeline{
		opts: opts,
		stop: make(chan struct{}),
		log:  logger.WithComponent("pipeline"),
	}

	p.lanes = make([]*lane, opts.Lanes)
	for i := range p.lanes {
		p.lanes[i] = newLane(i, opts.PreloadDepth)
	}

	p.sched = &scheduler{
		lanes:    p.lanes,
		sink:     opts.Sink,
		interval: time.Duration(1000/opts.Framerate) * time.Millisecond,
		begin:    opts.Begin,
		total:    opts.TotalFrames,
		clk:      opts.Clock,
		stop:     p.stop,
		log:      logger.WithComponent("scheduler"),
	}
	p.sched.cursor.Store(int64(opts.Begin))

	return p, nil
}

// Start launches the loader workers. It returns immediately; the workers
// begin filling their lanes in the background.
func (p *Pipeline) Start() {
	p.log.Info().
		Int("lanes", p.opts.Lanes).
		Int("preload_depth", p.opts.PreloadDepth).
		Int("total_frames", p.opts.TotalFrames).
		Int("framerate", p.opts.Framerate).
		Str("failure_mode", string(p.opts.FailureMode)).
		Msg("Starting loader workers")

	workerLog := logger.WithComponent("loader")
	for _, ln := range p.lanes {
		w := &loader{
			lane:   ln,
			source: p.opts.Source,
			lanes:  p.opts.Lanes,
			begin:  p.opts.Begin,
			total:  p.opts.TotalFrames,
			mode:   p.opts.FailureMode,
			clk:    p.opts.Clock,
			stop:   p.stop,
			log:    workerLog,
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run()
		}()
	}
}

// Play runs the scheduler until the stream completes, a lane fails in signal
// mode, the sink rejects a frame, or Stop is called. It blocks the calling
// goroutine and always waits for the loader workers to wind down before
// returning.
func (p *Pipeline) Play() error {
	err := p.sched.run()
	p.signalStop()
	p.wg.Wait()
	return err
}

// Stop cancels playback. Safe to call from any goroutine, more than once.
func (p *Pipeline) Stop() {
	p.signalStop()
}

func (p *Pipeline) signalStop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Status reports the pipeline's current progress.
func (p *Pipeline) Status() Status {
	st := Status{
		Cursor:    p.sched.cursor.Load(),
		Rendered:  p.sched.rendered.Load(),
		Underruns: p.sched.underruns.Load(),
		Total:     p.opts.TotalFrames,
		Framerate: p.opts.Framerate,
		Lanes:     make([]LaneStats, len(p.lanes)),
	}
	for i, ln := range p.lanes {
		st.Lanes[i] = ln.Stats()
	}
	return st
}
