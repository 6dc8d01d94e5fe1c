package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bryanchriswhite/FrameStreamer/internal/config"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Directory != "/usr/share/bad-apple/" {
		t.Errorf("Directory = %q, want default", cfg.Directory)
	}
	if cfg.Framerate != 60 || cfg.TotalFrames != 6571 {
		t.Errorf("pacing defaults = %dfps/%d frames, want 60/6571", cfg.Framerate, cfg.TotalFrames)
	}
	if cfg.PreloadFrames != 0 || cfg.Lanes != 0 {
		t.Errorf("preload/lanes = %d/%d, want 0/0 placeholders", cfg.PreloadFrames, cfg.Lanes)
	}
	if cfg.InitDelayMS != 500 {
		t.Errorf("InitDelayMS = %d, want 500", cfg.InitDelayMS)
	}
	if cfg.LaneFailure != config.LaneFailureSignal {
		t.Errorf("LaneFailure = %q, want %q", cfg.LaneFailure, config.LaneFailureSignal)
	}
	if !cfg.Audio.Enabled {
		t.Error("Audio.Enabled = false, want true")
	}
	if cfg.Monitor.Enabled || cfg.Monitor.Port != 8089 {
		t.Errorf("Monitor = %+v, want disabled with port 8089", cfg.Monitor)
	}

	// The defaults were persisted; a second manager reads the same values.
	if _, err := os.Stat(mgr.GetConfigPath()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	mgr2, err := config.NewManager(mgr.GetConfigPath())
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	if got := mgr2.Get(); *got != *cfg {
		t.Errorf("reloaded config = %+v, want %+v", got, cfg)
	}
}

func TestNewManagerExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")

	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if mgr.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", mgr.GetConfigPath(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not created at explicit path: %v", err)
	}
}

func TestUpdatePersists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	mgr, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cfg := mgr.Get()
	cfg.Framerate = 30
	cfg.Directory = "/data/frames"
	cfg.Audio.Enabled = false
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	mgr2, err := config.NewManager(path)
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	got := mgr2.Get()
	if got.Framerate != 30 || got.Directory != "/data/frames" || got.Audio.Enabled {
		t.Errorf("reloaded config = %+v, want updated values", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mgr, err := config.NewManager("")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cfg := mgr.Get()
	cfg.Framerate = 1
	if mgr.Get().Framerate != 60 {
		t.Error("mutating the returned config changed the manager's copy")
	}
}

func TestDerivedResolvesPlaceholders(t *testing.T) {
	cfg := config.Config{Framerate: 24}
	d := cfg.Derived()

	if d.PreloadFrames != 24 {
		t.Errorf("PreloadFrames = %d, want one second of frames (24)", d.PreloadFrames)
	}
	if d.Lanes < 1 {
		t.Errorf("Lanes = %d, want at least 1", d.Lanes)
	}
	if d.FrameFormat != "jpg" {
		t.Errorf("FrameFormat = %q, want jpg", d.FrameFormat)
	}
	if d.ResizeFilter != "bilinear" {
		t.Errorf("ResizeFilter = %q, want bilinear", d.ResizeFilter)
	}
	if d.LaneFailure != config.LaneFailureSignal {
		t.Errorf("LaneFailure = %q, want %q", d.LaneFailure, config.LaneFailureSignal)
	}
	if d.Display.Sink != config.SinkX11 {
		t.Errorf("Display.Sink = %q, want %q", d.Display.Sink, config.SinkX11)
	}

	// Explicit values survive derivation.
	cfg = config.Config{Framerate: 24, PreloadFrames: 5, Lanes: 3, FrameFormat: "png"}
	d = cfg.Derived()
	if d.PreloadFrames != 5 || d.Lanes != 3 || d.FrameFormat != "png" {
		t.Errorf("derived = %d preload, %d lanes, %q format; explicit values were overridden", d.PreloadFrames, d.Lanes, d.FrameFormat)
	}
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Directory:     "/data/frames",
			Framerate:     60,
			TotalFrames:   100,
			PreloadFrames: 10,
			Lanes:         2,
			FrameFormat:   "jpg",
			ResizeFilter:  "bilinear",
			LaneFailure:   config.LaneFailureSignal,
			Display:       config.DisplayConfig{Sink: config.SinkX11, Width: 640, Height: 480},
		}
	}

	v := valid()
	if err := v.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty directory", func(c *config.Config) { c.Directory = "" }},
		{"zero framerate", func(c *config.Config) { c.Framerate = 0 }},
		{"zero total frames", func(c *config.Config) { c.TotalFrames = 0 }},
		{"begin past end", func(c *config.Config) { c.Begin = 100 }},
		{"negative begin", func(c *config.Config) { c.Begin = -1 }},
		{"zero preload", func(c *config.Config) { c.PreloadFrames = 0 }},
		{"zero lanes", func(c *config.Config) { c.Lanes = 0 }},
		{"negative init delay", func(c *config.Config) { c.InitDelayMS = -1 }},
		{"unknown lane failure", func(c *config.Config) { c.LaneFailure = "explode" }},
		{"unknown sink", func(c *config.Config) { c.Display.Sink = "hologram" }},
		{"zero width", func(c *config.Config) { c.Display.Width = 0 }},
		{"monitor port out of range", func(c *config.Config) {
			c.Monitor.Enabled = true
			c.Monitor.Port = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}
