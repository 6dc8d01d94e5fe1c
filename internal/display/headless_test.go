package display_test

import (
	"image"
	"testing"

	"github.com/bryanchriswhite/FrameStreamer/internal/display"
)

func TestHeadlessSinkLifecycle(t *testing.T) {
	sink := display.NewHeadlessSink(display.Config{Width: 4, Height: 4})

	if sink.Name() != "headless" {
		t.Errorf("Name() = %q, want %q", sink.Name(), "headless")
	}
	if sink.IsRunning() {
		t.Fatal("new sink reports running before Start")
	}
	if err := sink.Present(); err == nil {
		t.Fatal("Present succeeded before Start")
	}

	if err := sink.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sink.IsRunning() {
		t.Fatal("sink not running after Start")
	}
	if err := sink.Start(); err == nil {
		t.Fatal("second Start succeeded, want error")
	}

	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sink.IsRunning() {
		t.Fatal("sink still running after Stop")
	}
	if err := sink.Present(); err == nil {
		t.Fatal("Present succeeded after Stop")
	}
}

func TestHeadlessSinkCountsAndRecords(t *testing.T) {
	sink := display.NewHeadlessSink(display.Config{Width: 4, Height: 4})
	if err := sink.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sink.Stop()

	if pix := sink.LastPix(); pix != nil {
		t.Fatalf("LastPix() = %v before any Present, want nil", pix)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range frame.Pix {
		frame.Pix[i] = 0xff
	}
	frame.Pix[0] = 77

	sink.Draw(0, 0, frame)
	if err := sink.Present(); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	sink.Draw(0, 0, frame)
	if err := sink.Present(); err != nil {
		t.Fatalf("second Present failed: %v", err)
	}

	if got := sink.Draws(); got != 2 {
		t.Errorf("Draws() = %d, want 2", got)
	}
	if got := sink.Presents(); got != 2 {
		t.Errorf("Presents() = %d, want 2", got)
	}

	pix := sink.LastPix()
	if pix == nil {
		t.Fatal("LastPix() = nil after Present")
	}
	if pix[0] != 77 {
		t.Errorf("LastPix()[0] = %d, want 77", pix[0])
	}

	// The copy is detached from the back buffer.
	frame.Pix[0] = 1
	sink.Draw(0, 0, frame)
	if pix[0] != 77 {
		t.Errorf("LastPix copy mutated by later Draw: got %d, want 77", pix[0])
	}
}
