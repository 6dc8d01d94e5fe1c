package main

import (
	"image"
	"image/color"
	"log"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/FrameStreamer/internal/display"
)

func main() {
	cfg := display.Config{
		Width:  640,
		Height: 480,
		FPS:    60,
		Title:  "FrameStreamer - Sink Probe",
	}

	sink, err := display.NewX11Sink(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to X11: %v", err)
	}

	if err := sink.Start(); err != nil {
		log.Fatalf("Failed to start sink: %v", err)
	}
	defer sink.Stop()

	// Dump the server's pixmap formats alongside the probe so upload
	// failures can be matched to a format mismatch
	conn, _ := xgb.NewConn()
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	log.Printf("Screen depth: %d", screen.RootDepth)
	log.Printf("Available pixmap formats:")
	for _, format := range setup.PixmapFormats {
		log.Printf("  Depth=%d, BitsPerPixel=%d, ScanlinePad=%d",
			format.Depth, format.BitsPerPixel, format.ScanlinePad)
	}
	log.Printf("Max request length: %d bytes", int(setup.MaximumRequestLength)*4)
	conn.Close()

	// A gradient makes byte-order mistakes visible at a glance
	frame := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			r := uint8((x * 255) / cfg.Width)
			g := uint8((y * 255) / cfg.Height)
			frame.Set(x, y, color.RGBA{R: r, G: g, B: 128, A: 255})
		}
	}

	log.Println("Rendering gradient, red should grow left-to-right...")
	sink.Draw(0, 0, frame)
	if err := sink.Present(); err != nil {
		log.Fatalf("Failed to present (this tests the PutImage path): %v", err)
	}

	log.Println("SUCCESS! PutImage worked without errors")
	time.Sleep(3 * time.Second)
}
