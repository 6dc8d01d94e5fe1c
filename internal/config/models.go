package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bryanchriswhite/FrameStreamer/internal/logger"
	"gopkg.in/yaml.v3"
)

// Lane failure modes. Signal closes a failed lane's queue so playback
// aborts at the gap; stall leaves it open so playback waits forever.
const (
	LaneFailureSignal = "signal"
	LaneFailureStall  = "stall"
)

// Render sink names accepted by Config.Display.Sink.
const (
	SinkX11      = "x11"
	SinkMJPEG    = "mjpeg"
	SinkHeadless = "headless"
)

// Config captures everything needed to construct a playback run. All of it
// is fixed before the pipeline starts; there is no runtime reconfiguration.
type Config struct {
	Directory     string `json:"directory" yaml:"directory"`
	Framerate     int    `json:"framerate" yaml:"framerate"`
	TotalFrames   int    `json:"total_frames" yaml:"total_frames"`
	PreloadFrames int    `json:"preload_frames" yaml:"preload_frames"` // 0 = one second of frames
	Lanes         int    `json:"lanes" yaml:"lanes"`                   // 0 = CPU count
	Begin         int    `json:"begin" yaml:"begin"`
	FrameFormat   string `json:"frame_format" yaml:"frame_format"`
	ResizeFilter  string `json:"resize_filter" yaml:"resize_filter"`
	InitDelayMS   int    `json:"init_delay_ms" yaml:"init_delay_ms"`
	LaneFailure   string `json:"lane_failure" yaml:"lane_failure"`
	LogLevel      string `json:"log_level" yaml:"log_level"`

	Display DisplayConfig `json:"display" yaml:"display"`
	Audio   AudioConfig   `json:"audio" yaml:"audio"`
	Monitor MonitorConfig `json:"monitor" yaml:"monitor"`
}

// DisplayConfig selects the render sink and its fixed resolution
type DisplayConfig struct {
	Sink   string `json:"sink" yaml:"sink"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

// AudioConfig controls the companion audio track
type AudioConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// MonitorConfig controls the status HTTP server
type MonitorConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// Derived returns a copy with the zero-value placeholders resolved: preload
// depth defaults to one second of frames, lane count to the CPU count.
func (c Config) Derived() Config {
	if c.PreloadFrames == 0 {
		c.PreloadFrames = c.Framerate
	}
	if c.Lanes == 0 {
		c.Lanes = runtime.NumCPU()
	}
	if c.FrameFormat == "" {
		c.FrameFormat = "jpg"
	}
	if c.LaneFailure == "" {
		c.LaneFailure = LaneFailureSignal
	}
	if c.ResizeFilter == "" {
		c.ResizeFilter = "bilinear"
	}
	if c.Display.Sink == "" {
		c.Display.Sink = SinkX11
	}
	return c
}

// Validate checks a derived config for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("directory is required")
	}
	if c.Framerate < 1 {
		return fmt.Errorf("framerate must be at least 1, got %d", c.Framerate)
	}
	if c.TotalFrames < 1 {
		return fmt.Errorf("total_frames must be at least 1, got %d", c.TotalFrames)
	}
	if c.Begin < 0 || c.Begin >= c.TotalFrames {
		return fmt.Errorf("begin %d out of range [0, %d)", c.Begin, c.TotalFrames)
	}
	if c.PreloadFrames < 1 {
		return fmt.Errorf("preload_frames must be at least 1, got %d", c.PreloadFrames)
	}
	if c.Lanes < 1 {
		return fmt.Errorf("lanes must be at least 1, got %d", c.Lanes)
	}
	if c.InitDelayMS < 0 {
		return fmt.Errorf("init_delay_ms must not be negative, got %d", c.InitDelayMS)
	}
	switch c.LaneFailure {
	case LaneFailureSignal, LaneFailureStall:
	default:
		return fmt.Errorf("lane_failure must be %q or %q, got %q", LaneFailureSignal, LaneFailureStall, c.LaneFailure)
	}
	switch c.Display.Sink {
	case SinkX11, SinkMJPEG, SinkHeadless:
	default:
		return fmt.Errorf("display.sink must be %q, %q, or %q, got %q", SinkX11, SinkMJPEG, SinkHeadless, c.Display.Sink)
	}
	if c.Display.Width < 1 || c.Display.Height < 1 {
		return fmt.Errorf("display resolution must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Monitor.Enabled && (c.Monitor.Port < 1 || c.Monitor.Port > 65535) {
		return fmt.Errorf("monitor.port must be in [1, 65535], got %d", c.Monitor.Port)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	// Set default configuration path
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "framestreamer")
	defaultConfigPath := filepath.Join(configDir, "config.yaml")

	// Use provided config file or default
	actualConfigPath := defaultConfigPath
	if configFile != "" {
		actualConfigPath = configFile
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	// Try to read config file
	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("total_frames", m.config.TotalFrames).
		Int("framerate", m.config.Framerate).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		Directory:     "/usr/share/bad-apple/",
		Framerate:     60,
		TotalFrames:   6571,
		PreloadFrames: 0,
		Lanes:         0,
		Begin:         0,
		FrameFormat:   "jpg",
		ResizeFilter:  "bilinear",
		InitDelayMS:   500,
		LaneFailure:   LaneFailureSignal,
		LogLevel:      "info",
		Display: DisplayConfig{
			Sink:   SinkX11,
			Width:  640,
			Height: 480,
		},
		Audio: AudioConfig{
			Enabled: true,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Port:    8089,
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}

	// Return a copy to prevent external modification
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	// Ensure the directory exists
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Update replaces the entire configuration and persists it
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}
