package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/FrameStreamer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FrameStreamer configuration",
	Long:  `View and manage FrameStreamer configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current FrameStreamer configuration.`,
	Example: `  # Show configuration as YAML (default)
  framestreamer config show

  # Show configuration as JSON
  framestreamer config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a specific configuration value and save it.`,
	Example: `  # Set the frame sequence directory
  framestreamer config set directory /data/frames

  # Set the playback rate
  framestreamer config set framerate 30

  # Disable audio
  framestreamer config set audio.enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get the frame sequence directory
  framestreamer config get directory

  # Get the playback rate
  framestreamer config get framerate`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	// Handle different types
	switch key {
	case "directory":
		cfg.Directory = value
	case "frame_format":
		cfg.FrameFormat = value
	case "resize_filter":
		cfg.ResizeFilter = value
	case "display.sink":
		cfg.Display.Sink = value
	case "lane_failure":
		if value != config.LaneFailureSignal && value != config.LaneFailureStall {
			return fmt.Errorf("invalid lane failure mode: %s (use: signal or stall)", value)
		}
		cfg.LaneFailure = value
	case "log_level":
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		cfg.LogLevel = value
	case "framerate", "total_frames", "preload_frames", "lanes", "begin",
		"init_delay_ms", "display.width", "display.height", "monitor.port":
		var num int
		if _, err := fmt.Sscanf(value, "%d", &num); err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		switch key {
		case "framerate":
			cfg.Framerate = num
		case "total_frames":
			cfg.TotalFrames = num
		case "preload_frames":
			cfg.PreloadFrames = num
		case "lanes":
			cfg.Lanes = num
		case "begin":
			cfg.Begin = num
		case "init_delay_ms":
			cfg.InitDelayMS = num
		case "display.width":
			cfg.Display.Width = num
		case "display.height":
			cfg.Display.Height = num
		case "monitor.port":
			cfg.Monitor.Port = num
		}
	case "audio.enabled", "monitor.enabled":
		var enabled bool
		if _, err := fmt.Sscanf(value, "%t", &enabled); err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		if key == "audio.enabled" {
			cfg.Audio.Enabled = enabled
		} else {
			cfg.Monitor.Enabled = enabled
		}
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	// Placeholders resolve at play time; validate the resolved form
	derived := cfg.Derived()
	if err := derived.Validate(); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}

	if err := configMgr.Update(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch key {
	case "directory":
		fmt.Println(cfg.Directory)
	case "framerate":
		fmt.Println(cfg.Framerate)
	case "total_frames":
		fmt.Println(cfg.TotalFrames)
	case "preload_frames":
		fmt.Println(cfg.PreloadFrames)
	case "lanes":
		fmt.Println(cfg.Lanes)
	case "begin":
		fmt.Println(cfg.Begin)
	case "frame_format":
		fmt.Println(cfg.FrameFormat)
	case "resize_filter":
		fmt.Println(cfg.ResizeFilter)
	case "init_delay_ms":
		fmt.Println(cfg.InitDelayMS)
	case "lane_failure":
		fmt.Println(cfg.LaneFailure)
	case "log_level":
		fmt.Println(cfg.LogLevel)
	case "display.sink":
		fmt.Println(cfg.Display.Sink)
	case "display.width":
		fmt.Println(cfg.Display.Width)
	case "display.height":
		fmt.Println(cfg.Display.Height)
	case "audio.enabled":
		fmt.Println(cfg.Audio.Enabled)
	case "monitor.enabled":
		fmt.Println(cfg.Monitor.Enabled)
	case "monitor.port":
		fmt.Println(cfg.Monitor.Port)
	default:
		return fmt.Errorf("configuration key not found: %s", key)
	}

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}
