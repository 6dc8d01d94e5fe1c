package display

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
)

// HeadlessSink discards frames while counting them. It stands in for a real
// display in tests and on machines without an X server.
type HeadlessSink struct {
	width  int
	height int

	draws    atomic.Int64
	presents atomic.Int64
	lastPix  atomic.Value // []byte copy of the most recent back buffer

	back    *image.RGBA
	running bool
	mu      sync.RWMutex
}

// NewHeadlessSink creates a sink that renders nowhere.
func NewHeadlessSink(cfg Config) *HeadlessSink {
	return &HeadlessSink{
		width:  cfg.Width,
		height: cfg.Height,
		back:   image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
}

// Name identifies the sink in logs and status output.
func (s *HeadlessSink) Name() string {
	return "headless"
}

// Start marks the sink active.
func (s *HeadlessSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("display already running")
	}
	s.running = true
	return nil
}

// Stop marks the sink inactive.
func (s *HeadlessSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// IsRunning returns whether the sink is currently active.
func (s *HeadlessSink) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Draw copies frame pixels into the back buffer at (x, y).
func (s *HeadlessSink) Draw(x, y int, frame *image.RGBA) {
	bounds := frame.Bounds()
	dst := image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy())
	draw.Draw(s.back, dst, frame, bounds.Min, draw.Src)
	s.draws.Add(1)
}

// Present records the frame and keeps a copy of the staged pixels.
func (s *HeadlessSink) Present() error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return fmt.Errorf("display not running")
	}

	pix := make([]byte, len(s.back.Pix))
	copy(pix, s.back.Pix)
	s.lastPix.Store(pix)
	s.presents.Add(1)
	return nil
}

// Draws returns how many frames were staged.
func (s *HeadlessSink) Draws() int64 {
	return s.draws.Load()
}

// Presents returns how many frames were presented.
func (s *HeadlessSink) Presents() int64 {
	return s.presents.Load()
}

// LastPix returns a copy of the most recently presented pixels, or nil if
// nothing has been presented yet.
func (s *HeadlessSink) LastPix() []byte {
	pix, _ := s.lastPix.Load().([]byte)
	return pix
}
