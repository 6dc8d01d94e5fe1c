package frames

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	// Frame sequences in the wild are JPEG or PNG; register both decoders.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Buffer is one decoded frame, scaled to the display resolution. A buffer
// is produced by exactly one loader worker and consumed by exactly one
// scheduler pop; it is never shared or mutated after creation.
type Buffer struct {
	Index int
	Image *image.RGBA
}

// IOError reports a frame file that could not be opened or read
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read frame %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DecodeError reports a frame file whose contents are not a valid image
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Timing breaks one frame load into its phases, for diagnostics only
type Timing struct {
	IO     time.Duration
	Decode time.Duration
	Resize time.Duration
}

// Source loads numbered frame images from a directory and scales each one
// to a fixed target resolution
type Source struct {
	dir    string
	ext    string
	width  int
	height int
	scaler draw.Scaler
}

// NewSource creates a frame source. The filter name selects the scaling
// algorithm, see ScalerFor.
func NewSource(dir, ext string, width, height int, filter string) *Source {
	return &Source{
		dir:    dir,
		ext:    ext,
		width:  width,
		height: height,
		scaler: ScalerFor(filter),
	}
}

// ScalerFor maps a filter name to a scaler. Unknown names fall back to
// bilinear.
func ScalerFor(name string) draw.Scaler {
	switch name {
	case "nearest":
		return draw.NearestNeighbor
	case "approx-bilinear":
		return draw.ApproxBiLinear
	case "catmull-rom":
		return draw.CatmullRom
	default:
		return draw.BiLinear
	}
}

// Dir returns the source directory
func (s *Source) Dir() string { return s.dir }

// Path returns the on-disk location of a frame. Files are numbered from 1
// and zero-padded to at least three digits: index 41 maps to "042.jpg".
func (s *Source) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%03d.%s", index+1, s.ext))
}

// MusicPath returns the location of the companion audio track
func (s *Source) MusicPath() string {
	return filepath.Join(s.dir, "music.mp3")
}

// Load reads, decodes, and scales one frame. The returned buffer is always
// exactly the target resolution, whatever the source aspect ratio.
func (s *Source) Load(index int) (*Buffer, Timing, error) {
	var t Timing
	path := s.Path(index)

	start := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, t, &IOError{Path: path, Err: err}
	}
	t.IO = time.Since(start)

	start = time.Now()
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, t, &DecodeError{Path: path, Err: err}
	}
	t.Decode = time.Since(start)

	start = time.Now()
	dst := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	s.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	t.Resize = time.Since(start)

	return &Buffer{Index: index, Image: dst}, t, nil
}
