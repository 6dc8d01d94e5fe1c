package pipeline_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
	"github.com/bryanchriswhite/FrameStreamer/internal/pipeline"
)

// writeSeq writes n uniform 8x6 PNG frames named 001.png..nnn.png. Frame i
// is filled with R=i so a presented frame identifies itself by its first
// pixel byte.
func writeSeq(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 6))
		c := color.RGBA{R: uint8(i), A: 255}
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = c.R
			img.Pix[p+1] = c.G
			img.Pix[p+2] = c.B
			img.Pix[p+3] = c.A
		}
		path := filepath.Join(dir, fmt.Sprintf("%03d.png", i+1))
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("create %s: %v", path, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatalf("encode %s: %v", path, err)
		}
		f.Close()
	}
}

// recordingSink captures the first pixel byte of every presented frame.
type recordingSink struct {
	mu      sync.Mutex
	running bool
	last    *image.RGBA
	drawn   []byte
}

func (s *recordingSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *recordingSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *recordingSink) Draw(x, y int, frame *image.RGBA) {
	s.mu.Lock()
	s.last = frame
	s.mu.Unlock()
}

func (s *recordingSink) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("sink not running")
	}
	s.drawn = append(s.drawn, s.last.Pix[0])
	return nil
}

func (s *recordingSink) frames() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.drawn...)
}

// advanceUntil steps the mock clock one frame interval at a time until cond
// holds, failing the test if five real seconds pass first.
func advanceUntil(t *testing.T, clk *clock.Mock, step time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		clk.Add(step)
		time.Sleep(time.Millisecond)
	}
}

// waitUntil polls cond without touching the clock, for work that only needs
// real goroutine scheduling.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestSink(t *testing.T) *recordingSink {
	t.Helper()
	sink := &recordingSink{}
	if err := sink.Start(); err != nil {
		t.Fatalf("sink start: %v", err)
	}
	return sink
}

func TestPlaybackCompletes(t *testing.T) {
	dir := t.TempDir()
	writeSeq(t, dir, 8)

	clk := clock.NewMock()
	sink := newTestSink(t)

	pipe, err := pipeline.New(pipeline.Options{
		Source:       frames.NewSource(dir, "png", 8, 6, "nearest"),
		Sink:         sink,
		Lanes:        2,
		PreloadDepth: 2,
		TotalFrames:  8,
		Framerate:    60,
		Clock:        clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pipe.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Play() }()

	advanceUntil(t, clk, 17*time.Millisecond, func() bool {
		return pipe.Status().Rendered == 8
	})

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Play: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after the final frame")
	}

	want := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	if got := sink.frames(); !bytes.Equal(got, want) {
		t.Errorf("presented frames %v, want %v", got, want)
	}

	st := pipe.Status()
	if st.Cursor != 8 {
		t.Errorf("cursor = %d, want 8", st.Cursor)
	}
	for _, lane := range st.Lanes {
		if lane.Loaded != 4 {
			t.Errorf("lane %d loaded %d frames, want 4", lane.ID, lane.Loaded)
		}
		if !lane.Done {
			t.Errorf("lane %d did not finish", lane.ID)
		}
		if lane.Failed {
			t.Errorf("lane %d reported failure", lane.ID)
		}
	}
}

func TestBeginOffset(t *testing.T) {
	dir := t.TempDir()
	writeSeq(t, dir, 6)

	clk := clock.NewMock()
	sink := newTestSink(t)

	pipe, err := pipeline.New(pipeline.Options{
		Source:       frames.NewSource(dir, "png", 8, 6, "nearest"),
		Sink:         sink,
		Lanes:        2,
		PreloadDepth: 2,
		Begin:        2,
		TotalFrames:  6,
		Framerate:    60,
		Clock:        clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pipe.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Play() }()

	advanceUntil(t, clk, 17*time.Millisecond, func() bool {
		return pipe.Status().Rendered == 4
	})

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Play: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after the final frame")
	}

	want := []byte{2, 3, 4, 5}
	if got := sink.frames(); !bytes.Equal(got, want) {
		t.Errorf("presented frames %v, want %v", got, want)
	}
	if st := pipe.Status(); st.Cursor != 6 {
		t.Errorf("cursor = %d, want 6", st.Cursor)
	}
}

func TestLaneFailureSignalsScheduler(t *testing.T) {
	dir := t.TempDir()
	writeSeq(t, dir, 8)

	// Frame index 4 lives in 005.png and belongs to lane 0
	if err := os.WriteFile(filepath.Join(dir, "005.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewMock()
	sink := newTestSink(t)

	pipe, err := pipeline.New(pipeline.Options{
		Source:       frames.NewSource(dir, "png", 8, 6, "nearest"),
		Sink:         sink,
		Lanes:        2,
		PreloadDepth: 2,
		TotalFrames:  8,
		Framerate:    60,
		FailureMode:  pipeline.FailSignal,
		Clock:        clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pipe.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Play() }()

	var playErr error
	returned := false
	advanceUntil(t, clk, 17*time.Millisecond, func() bool {
		select {
		case playErr = <-errCh:
			returned = true
		default:
		}
		return returned
	})

	var laneErr *pipeline.LaneClosedError
	if !errors.As(playErr, &laneErr) {
		t.Fatalf("Play error = %v, want *pipeline.LaneClosedError", playErr)
	}
	if laneErr.Lane != 0 || laneErr.Frame != 4 {
		t.Errorf("LaneClosedError = lane %d frame %d, want lane 0 frame 4", laneErr.Lane, laneErr.Frame)
	}

	// Frames buffered ahead of the failure still presented in order
	want := []byte{0, 1, 2, 3}
	if got := sink.frames(); !bytes.Equal(got, want) {
		t.Errorf("presented frames %v, want %v", got, want)
	}

	st := pipe.Status()
	if !st.Lanes[0].Failed {
		t.Error("lane 0 did not record its failure")
	}
	if st.Lanes[0].Loaded != 2 {
		t.Errorf("lane 0 loaded %d frames, want 2", st.Lanes[0].Loaded)
	}
	if st.Lanes[1].Failed {
		t.Error("failure leaked to lane 1")
	}
}

func TestLaneFailureStallDefersForever(t *testing.T) {
	dir := t.TempDir()
	writeSeq(t, dir, 8)
	if err := os.WriteFile(filepath.Join(dir, "005.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewMock()
	sink := newTestSink(t)

	pipe, err := pipeline.New(pipeline.Options{
		Source:       frames.NewSource(dir, "png", 8, 6, "nearest"),
		Sink:         sink,
		Lanes:        2,
		PreloadDepth: 2,
		TotalFrames:  8,
		Framerate:    60,
		FailureMode:  pipeline.FailStall,
		Clock:        clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pipe.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Play() }()

	// Playback reaches the dead lane's frame and starts deferring
	advanceUntil(t, clk, 17*time.Millisecond, func() bool {
		st := pipe.Status()
		return st.Rendered == 4 && st.Underruns >= 1
	})

	// Push well past the loader's retry window; the cursor must not move
	for i := 0; i < 20; i++ {
		clk.Add(17 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}

	st := pipe.Status()
	if st.Cursor != 4 {
		t.Errorf("cursor advanced to %d past the dead lane", st.Cursor)
	}
	if st.Rendered != 4 {
		t.Errorf("rendered %d frames, want 4", st.Rendered)
	}
	if !st.Lanes[0].Failed {
		t.Error("lane 0 did not record its failure")
	}
	if st.Lanes[0].Done {
		t.Error("failed lane reported done")
	}

	select {
	case err := <-errCh:
		t.Fatalf("Play returned %v during a stall", err)
	default:
	}

	pipe.Stop()
	select {
	case err := <-errCh:
		if !errors.Is(err, pipeline.ErrStopped) {
			t.Fatalf("Play after Stop = %v, want ErrStopped", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after Stop")
	}
}

func TestStopInterruptsPlayback(t *testing.T) {
	dir := t.TempDir()
	writeSeq(t, dir, 8)

	clk := clock.NewMock()
	sink := newTestSink(t)

	pipe, err := pipeline.New(pipeline.Options{
		Source:       frames.NewSource(dir, "png", 8, 6, "nearest"),
		Sink:         sink,
		Lanes:        2,
		PreloadDepth: 2,
		TotalFrames:  8,
		Framerate:    60,
		Clock:        clk,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pipe.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- pipe.Play() }()

	advanceUntil(t, clk, 17*time.Millisecond, func() bool {
		return pipe.Status().Rendered >= 2
	})

	pipe.Stop()
	select {
	case err := <-errCh:
		if !errors.Is(err, pipeline.ErrStopped) {
			t.Fatalf("Play after Stop = %v, want ErrStopped", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Play did not return after Stop")
	}

	if st := pipe.Status(); st.Rendered == 8 {
		t.Error("playback ran to completion despite Stop")
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	src := frames.NewSource(t.TempDir(), "png", 8, 6, "")
	sink := &recordingSink{}
	base := pipeline.Options{
		Source:       src,
		Sink:         sink,
		Lanes:        1,
		PreloadDepth: 1,
		TotalFrames:  1,
		Framerate:    1,
	}

	cases := []struct {
		name   string
		mutate func(*pipeline.Options)
	}{
		{"nil source", func(o *pipeline.Options) { o.Source = nil }},
		{"nil sink", func(o *pipeline.Options) { o.Sink = nil }},
		{"zero lanes", func(o *pipeline.Options) { o.Lanes = 0 }},
		{"zero preload", func(o *pipeline.Options) { o.PreloadDepth = 0 }},
		{"zero framerate", func(o *pipeline.Options) { o.Framerate = 0 }},
		{"zero total", func(o *pipeline.Options) { o.TotalFrames = 0 }},
		{"begin past end", func(o *pipeline.Options) { o.Begin = 1 }},
		{"negative begin", func(o *pipeline.Options) { o.Begin = -1 }},
		{"unknown failure mode", func(o *pipeline.Options) { o.FailureMode = "panic" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := base
			tc.mutate(&opts)
			if _, err := pipeline.New(opts); err == nil {
				t.Errorf("New accepted %s", tc.name)
			}
		})
	}
}
