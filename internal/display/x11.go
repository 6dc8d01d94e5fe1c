package display

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/FrameStreamer/internal/logger"
)

// X11Sink renders frames into a plain X11 window via PutImage.
type X11Sink struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext // Persistent graphics context

	width  int
	height int
	title  string

	back *image.RGBA // Staging buffer written by Draw

	// Cached from the server's pixmap formats at Start
	bitsPerPixel uint8
	stride       int
	rowsPerPut   int

	running bool
	mu      sync.RWMutex
}

// NewX11Sink connects to the X server and prepares a sink with the given
// geometry. The window itself is not created until Start.
func NewX11Sink(cfg Config) (*X11Sink, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	title := cfg.Title
	if title == "" {
		title = "FrameStreamer"
	}

	s := &X11Sink{
		conn:   conn,
		screen: screen,
		width:  cfg.Width,
		height: cfg.Height,
		title:  title,
		back:   image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}

	return s, nil
}

// Name identifies the sink in logs and status output.
func (s *X11Sink) Name() string {
	return "x11"
}

// Start creates and maps the playback window
func (s *X11Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("display already running")
	}

	windowID, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	s.window = windowID

	// Create window with black background
	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000, // Black background
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}

	err = xproto.CreateWindowChecked(
		s.conn,
		s.screen.RootDepth,
		s.window,
		s.screen.Root,
		0, 0, // x, y
		uint16(s.width), uint16(s.height),
		0, // border width
		xproto.WindowClassInputOutput,
		s.screen.RootVisual,
		mask,
		values,
	).Check()

	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := s.setWindowTitle(s.title); err != nil {
		logger.WithComponent("display").Warn().
			Err(err).
			Msg("Failed to set window title")
	}

	if err := s.setWindowClass("framestreamer", "FrameStreamer"); err != nil {
		logger.WithComponent("display").Warn().
			Err(err).
			Msg("Failed to set window class")
	}

	if err := xproto.MapWindowChecked(s.conn, s.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}

	s.conn.Sync()

	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	s.gc = gc

	err = xproto.CreateGCChecked(
		s.conn,
		s.gc,
		xproto.Drawable(s.window),
		0,
		nil,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}

	// Sync to ensure GC is fully created on server
	s.conn.Sync()

	if err := s.cacheFormat(); err != nil {
		return err
	}

	s.running = true
	logger.WithComponent("display").Info().
		Int("width", s.width).
		Int("height", s.height).
		Uint32("window_id", uint32(s.window)).
		Msg("Playback window created")

	return nil
}

// cacheFormat resolves the pixmap format for the root depth and derives the
// scanline stride plus how many rows fit into one PutImage request.
func (s *X11Sink) cacheFormat() error {
	depth := s.screen.RootDepth
	setup := xproto.Setup(s.conn)

	var bitsPerPixel uint8
	var scanlinePad uint8
	for _, format := range setup.PixmapFormats {
		if format.Depth == depth {
			bitsPerPixel = format.BitsPerPixel
			scanlinePad = format.ScanlinePad
			break
		}
	}
	if bitsPerPixel == 0 {
		return fmt.Errorf("no format found for depth %d", depth)
	}
	if bitsPerPixel != 24 && bitsPerPixel != 32 {
		return fmt.Errorf("unsupported bits per pixel: %d", bitsPerPixel)
	}
	s.bitsPerPixel = bitsPerPixel

	// Scanlines must be padded to scanlinePad bits (usually 32 bits = 4 bytes)
	bytesPerPixel := int(bitsPerPixel) / 8
	padBytes := int(scanlinePad) / 8
	s.stride = ((s.width*bytesPerPixel + padBytes - 1) / padBytes) * padBytes

	// PutImage payloads are capped by the server's maximum request length
	// (in 4-byte units). Leave room for the 24-byte request header.
	maxBytes := int(setup.MaximumRequestLength)*4 - 32
	s.rowsPerPut = maxBytes / s.stride
	if s.rowsPerPut < 1 {
		s.rowsPerPut = 1
	}
	if s.rowsPerPut > s.height {
		s.rowsPerPut = s.height
	}

	logger.WithComponent("display").Debug().
		Uint8("depth", depth).
		Uint8("bits_per_pixel", bitsPerPixel).
		Int("stride", s.stride).
		Int("rows_per_put", s.rowsPerPut).
		Msg("Resolved pixmap format")

	return nil
}

// Stop destroys the window and releases the X connection
func (s *X11Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.gc != 0 {
		xproto.FreeGC(s.conn, s.gc)
	}
	if s.window != 0 {
		xproto.DestroyWindow(s.conn, s.window)
		s.conn.Sync()
	}
	s.conn.Close()

	s.running = false
	logger.WithComponent("display").Info().Msg("Playback window closed")
	return nil
}

// IsRunning returns whether the display is currently running
func (s *X11Sink) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Draw copies frame pixels into the back buffer at (x, y)
func (s *X11Sink) Draw(x, y int, frame *image.RGBA) {
	bounds := frame.Bounds()
	dst := image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy())
	draw.Draw(s.back, dst, frame, bounds.Min, draw.Src)
}

// Present converts the back buffer to the server's pixel layout and uploads
// it row-chunked so each request stays under the server limit.
func (s *X11Sink) Present() error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return fmt.Errorf("display not running")
	}

	depth := s.screen.RootDepth
	bytesPerPixel := int(s.bitsPerPixel) / 8
	data := make([]byte, s.stride*s.height)

	for y := 0; y < s.height; y++ {
		dstRowStart := y * s.stride
		for x := 0; x < s.width; x++ {
			srcIdx := (y*s.width + x) * 4
			dstIdx := dstRowStart + x*bytesPerPixel

			// Byte order matches X11 visual masks: 0xff (B), 0xff00 (G), 0xff0000 (R)
			data[dstIdx] = s.back.Pix[srcIdx+2]
			data[dstIdx+1] = s.back.Pix[srcIdx+1]
			data[dstIdx+2] = s.back.Pix[srcIdx]
			if bytesPerPixel == 4 {
				if depth == 32 {
					data[dstIdx+3] = s.back.Pix[srcIdx+3]
				} else {
					data[dstIdx+3] = 0 // Padding byte for depth 24
				}
			}
		}
		// Padding bytes are already zero-initialized
	}

	for y := 0; y < s.height; y += s.rowsPerPut {
		rows := s.rowsPerPut
		if y+rows > s.height {
			rows = s.height - y
		}

		err := xproto.PutImageChecked(
			s.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(s.window),
			s.gc,
			uint16(s.width),
			uint16(rows),
			0, int16(y), // dst x, y
			0, // left pad
			depth,
			data[y*s.stride:(y+rows)*s.stride],
		).Check()

		if err != nil {
			return fmt.Errorf("failed to put image rows %d-%d: %w", y, y+rows-1, err)
		}
	}

	s.conn.Sync()
	return nil
}

// setWindowTitle sets the window title
func (s *X11Sink) setWindowTitle(title string) error {
	titleAtom, err := s.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}

	utf8Atom, err := s.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	return xproto.ChangePropertyChecked(
		s.conn,
		xproto.PropModeReplace,
		s.window,
		titleAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

// setWindowClass sets the window class
func (s *X11Sink) setWindowClass(instance, class string) error {
	classAtom, err := s.getAtom("WM_CLASS")
	if err != nil {
		return err
	}

	// WM_CLASS format: instance\0class\0
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		s.conn,
		xproto.PropModeReplace,
		s.window,
		classAtom,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

// getAtom gets an atom ID by name
func (s *X11Sink) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(s.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
