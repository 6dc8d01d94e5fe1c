package commands

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/FrameStreamer/internal/api"
	"github.com/bryanchriswhite/FrameStreamer/internal/audio"
	"github.com/bryanchriswhite/FrameStreamer/internal/config"
	"github.com/bryanchriswhite/FrameStreamer/internal/display"
	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
	"github.com/bryanchriswhite/FrameStreamer/internal/logger"
	"github.com/bryanchriswhite/FrameStreamer/internal/output"
	"github.com/bryanchriswhite/FrameStreamer/internal/pipeline"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a frame sequence",
	Long: `Play a directory of numbered frames as paced video.

Frames named 001.jpg, 002.jpg, ... are preloaded by parallel loader lanes
and presented in order at the configured framerate. A music.mp3 in the same
directory plays alongside when audio is enabled.`,
	Example: `  # Play with settings from the config file
  framestreamer play

  # Play a specific sequence at 30 fps
  framestreamer play --directory /data/frames --framerate 30 --total-frames 2190

  # Stream over HTTP instead of opening a window
  framestreamer play --sink mjpeg --monitor

  # Resume from frame 1200 without sound
  framestreamer play --begin 1200 --no-audio`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("directory", "d", "", "frame sequence directory")
	playCmd.Flags().Int("framerate", 0, "playback rate in frames per second")
	playCmd.Flags().Int("total-frames", 0, "number of frames in the sequence")
	playCmd.Flags().Int("preload", 0, "per-lane preload depth (0 = one second of frames)")
	playCmd.Flags().Int("lanes", 0, "loader worker count (0 = CPU count)")
	playCmd.Flags().Int("begin", -1, "first frame index to play")
	playCmd.Flags().String("frame-format", "", "frame file extension (jpg, png)")
	playCmd.Flags().String("filter", "", "resize filter (nearest, bilinear, approx-bilinear, catmull-rom)")
	playCmd.Flags().Int("init-delay", -1, "preload warm-up delay in milliseconds")
	playCmd.Flags().String("lane-failure", "", "lane failure mode (signal or stall)")
	playCmd.Flags().String("sink", "", "display sink (x11, mjpeg, headless)")
	playCmd.Flags().Int("width", 0, "output width in pixels")
	playCmd.Flags().Int("height", 0, "output height in pixels")
	playCmd.Flags().Bool("no-audio", false, "disable soundtrack playback")
	playCmd.Flags().Bool("monitor", false, "enable the HTTP monitor server")
	playCmd.Flags().Int("monitor-port", 0, "monitor server port")

	viper.BindPFlag("directory", playCmd.Flags().Lookup("directory"))
	viper.BindPFlag("framerate", playCmd.Flags().Lookup("framerate"))
	viper.BindPFlag("total_frames", playCmd.Flags().Lookup("total-frames"))
	viper.BindPFlag("preload_frames", playCmd.Flags().Lookup("preload"))
	viper.BindPFlag("lanes", playCmd.Flags().Lookup("lanes"))
	viper.BindPFlag("begin", playCmd.Flags().Lookup("begin"))
	viper.BindPFlag("frame_format", playCmd.Flags().Lookup("frame-format"))
	viper.BindPFlag("resize_filter", playCmd.Flags().Lookup("filter"))
	viper.BindPFlag("init_delay_ms", playCmd.Flags().Lookup("init-delay"))
	viper.BindPFlag("lane_failure", playCmd.Flags().Lookup("lane-failure"))
	viper.BindPFlag("display.sink", playCmd.Flags().Lookup("sink"))
	viper.BindPFlag("display.width", playCmd.Flags().Lookup("width"))
	viper.BindPFlag("display.height", playCmd.Flags().Lookup("height"))
	viper.BindPFlag("monitor.port", playCmd.Flags().Lookup("monitor-port"))
}

func runPlay(cmd *cobra.Command, args []string) error {
	fmt.Println("🎬 FrameStreamer - Paced Frame Sequence Playback")
	fmt.Println("================================================")

	// Initialize configuration manager
	log.Println("Loading configuration...")
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Flag overrides apply to this run only and are never persisted
	cfg := configMgr.Get()
	applyFlagOverrides(cmd, cfg)

	derived := cfg.Derived()

	// An MJPEG sink is unreachable without the HTTP server in front of it
	if derived.Display.Sink == config.SinkMJPEG && !derived.Monitor.Enabled {
		log.Println("MJPEG sink selected, enabling monitor server")
		derived.Monitor.Enabled = true
	}

	if err := derived.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(derived.LogLevel, viper.GetBool("pretty"))
	log.Printf("Configuration loaded from: %s", configMgr.GetConfigPath())

	source := frames.NewSource(
		derived.Directory,
		derived.FrameFormat,
		derived.Display.Width,
		derived.Display.Height,
		derived.ResizeFilter,
	)

	// Pick the display sink
	var (
		sink     display.Sink
		mjpegOut *output.MJPEGOutput
	)
	sinkCfg := display.Config{
		Width:  derived.Display.Width,
		Height: derived.Display.Height,
		FPS:    derived.Framerate,
		Title:  "FrameStreamer",
	}
	switch derived.Display.Sink {
	case config.SinkX11:
		log.Println("Connecting to X11 server...")
		x11, err := display.NewX11Sink(sinkCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to X11: %w", err)
		}
		sink = x11
	case config.SinkMJPEG:
		ms := output.NewSink(sinkCfg)
		mjpegOut = ms.Output()
		sink = ms
	case config.SinkHeadless:
		sink = display.NewHeadlessSink(sinkCfg)
	default:
		return fmt.Errorf("unknown display sink: %s", derived.Display.Sink)
	}

	if err := sink.Start(); err != nil {
		return fmt.Errorf("failed to start %s sink: %w", sink.Name(), err)
	}
	defer sink.Stop()

	// Soundtrack
	var player audio.Player = audio.NopPlayer{}
	if derived.Audio.Enabled {
		player = audio.NewMP3Player(source.MusicPath())
	}
	defer func() { player.Stop() }()

	pipe, err := pipeline.New(pipeline.Options{
		Source:       source,
		Sink:         sink,
		Lanes:        derived.Lanes,
		PreloadDepth: derived.PreloadFrames,
		Begin:        derived.Begin,
		TotalFrames:  derived.TotalFrames,
		Framerate:    derived.Framerate,
		FailureMode:  pipeline.FailureMode(derived.LaneFailure),
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	// Monitor server
	var monSrv *api.Server
	if derived.Monitor.Enabled {
		monSrv = api.NewServer(pipe.Status, configMgr, mjpegOut)
		go func() {
			if err := monSrv.Start(derived.Monitor.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Monitor server error: %v", err)
			}
		}()
		defer monSrv.Stop()
	}

	// First interrupt stops playback; the soundtrack drain below watches
	// the same signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	interrupted := make(chan struct{})
	go func() {
		<-sigChan
		fmt.Println()
		log.Println("Interrupt received, stopping playback...")
		pipe.Stop()
		close(interrupted)
	}()

	pipe.Start()

	log.Printf("Preloading frames (%dms warm-up)...", derived.InitDelayMS)
	time.Sleep(time.Duration(derived.InitDelayMS) * time.Millisecond)

	if err := player.Start(); err != nil {
		log.Printf("Audio unavailable: %v (continuing without sound)", err)
		player = audio.NopPlayer{}
	}

	fmt.Println()
	log.Println("✅ FrameStreamer is playing!")
	log.Printf("   - Source: %s", derived.Directory)
	log.Printf("   - Frames: %d through %d @ %d fps", derived.Begin, derived.TotalFrames-1, derived.Framerate)
	log.Printf("   - Sink: %s (%dx%d)", sink.Name(), derived.Display.Width, derived.Display.Height)
	if monSrv != nil {
		log.Printf("   - Monitor: http://localhost:%d", derived.Monitor.Port)
	}
	log.Println("   - Press Ctrl+C to stop")
	fmt.Println()

	playErr := pipe.Play()

	switch {
	case playErr == nil:
		st := pipe.Status()
		log.Printf("Playback finished: %d frames rendered, %d underruns", st.Rendered, st.Underruns)

		// Let the soundtrack run out before tearing down
	drain:
		for player.IsPlaying() {
			select {
			case <-interrupted:
				break drain
			case <-time.After(100 * time.Millisecond):
			}
		}
	case errors.Is(playErr, pipeline.ErrStopped):
		// Interrupt path, already logged
	default:
		return fmt.Errorf("playback failed: %w", playErr)
	}

	fmt.Println()
	log.Println("Shutting down gracefully...")
	return nil
}

// applyFlagOverrides copies explicitly-set play flags onto cfg
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if viper.IsSet("directory") {
		if dir := viper.GetString("directory"); dir != "" {
			cfg.Directory = dir
		}
	}
	if viper.IsSet("framerate") {
		if fps := viper.GetInt("framerate"); fps > 0 {
			cfg.Framerate = fps
		}
	}
	if viper.IsSet("total_frames") {
		if n := viper.GetInt("total_frames"); n > 0 {
			cfg.TotalFrames = n
		}
	}
	if viper.IsSet("preload_frames") {
		if n := viper.GetInt("preload_frames"); n > 0 {
			cfg.PreloadFrames = n
		}
	}
	if viper.IsSet("lanes") {
		if n := viper.GetInt("lanes"); n > 0 {
			cfg.Lanes = n
		}
	}
	if viper.IsSet("begin") {
		if n := viper.GetInt("begin"); n >= 0 {
			cfg.Begin = n
		}
	}
	if viper.IsSet("frame_format") {
		if f := viper.GetString("frame_format"); f != "" {
			cfg.FrameFormat = f
		}
	}
	if viper.IsSet("resize_filter") {
		if f := viper.GetString("resize_filter"); f != "" {
			cfg.ResizeFilter = f
		}
	}
	if viper.IsSet("init_delay_ms") {
		if d := viper.GetInt("init_delay_ms"); d >= 0 {
			cfg.InitDelayMS = d
		}
	}
	if viper.IsSet("lane_failure") {
		if m := viper.GetString("lane_failure"); m != "" {
			cfg.LaneFailure = m
		}
	}
	if viper.IsSet("display.sink") {
		if sink := viper.GetString("display.sink"); sink != "" {
			cfg.Display.Sink = sink
		}
	}
	if viper.IsSet("display.width") {
		if w := viper.GetInt("display.width"); w > 0 {
			cfg.Display.Width = w
		}
	}
	if viper.IsSet("display.height") {
		if h := viper.GetInt("display.height"); h > 0 {
			cfg.Display.Height = h
		}
	}
	if viper.IsSet("monitor.port") {
		if p := viper.GetInt("monitor.port"); p > 0 {
			cfg.Monitor.Port = p
		}
	}
	if viper.IsSet("log_level") {
		if lvl := viper.GetString("log_level"); lvl != "" {
			cfg.LogLevel = lvl
		}
	}
	if cmd.Flags().Changed("no-audio") {
		cfg.Audio.Enabled = false
	}
	if cmd.Flags().Changed("monitor") {
		cfg.Monitor.Enabled = true
	}
}
