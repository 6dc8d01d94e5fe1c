package display

import "image"

// Config holds display output settings
type Config struct {
	Width  int
	Height int
	FPS    int
	Title  string
}

// Sink receives frames from the playback scheduler. Draw stages pixels into
// the sink's back buffer and Present pushes the staged buffer to the device.
// Both are called from the scheduler goroutine only; Start and Stop may be
// called from elsewhere.
type Sink interface {
	// Start acquires the output device
	Start() error

	// Stop releases the output device
	Stop() error

	// Draw copies frame pixels into the back buffer at (x, y)
	Draw(x, y int, frame *image.RGBA)

	// Present pushes the back buffer to the device
	Present() error

	// Name identifies the sink in logs and status output
	Name() string

	// IsRunning returns whether the sink is currently active
	IsRunning() bool
}
