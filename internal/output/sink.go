package output

import (
	"image"
	"image/draw"

	"github.com/bryanchriswhite/FrameStreamer/internal/display"
)

// Sink adapts an MJPEGOutput to the display.Sink interface so the playback
// scheduler can drive HTTP clients the same way it drives an X11 window.
type Sink struct {
	out  *MJPEGOutput
	back *image.RGBA
}

// NewSink creates an MJPEG-backed display sink.
func NewSink(cfg display.Config) *Sink {
	return &Sink{
		out:  NewMJPEGOutput(cfg),
		back: image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
}

// Output exposes the underlying MJPEG output for HTTP mounting.
func (s *Sink) Output() *MJPEGOutput {
	return s.out
}

// Name identifies the sink in logs and status output.
func (s *Sink) Name() string {
	return "mjpeg"
}

// Start initializes the stream output.
func (s *Sink) Start() error {
	return s.out.Start()
}

// Stop shuts down the stream output and disconnects clients.
func (s *Sink) Stop() error {
	return s.out.Stop()
}

// IsRunning returns whether the stream output is active.
func (s *Sink) IsRunning() bool {
	return s.out.IsRunning()
}

// Draw copies frame pixels into the back buffer at (x, y).
func (s *Sink) Draw(x, y int, frame *image.RGBA) {
	bounds := frame.Bounds()
	dst := image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy())
	draw.Draw(s.back, dst, frame, bounds.Min, draw.Src)
}

// Present broadcasts the back buffer to all connected clients.
func (s *Sink) Present() error {
	return s.out.WriteFrame(s.back)
}
