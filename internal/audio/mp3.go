package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"

	"github.com/bryanchriswhite/FrameStreamer/internal/logger"
)

// MP3Player streams an MP3 file to the system audio device.
type MP3Player struct {
	path string

	file   *os.File
	player *oto.Player

	mu      sync.Mutex
	started bool
}

// NewMP3Player creates a player for the given file. The file is not opened
// until Start.
func NewMP3Player(path string) *MP3Player {
	return &MP3Player{path: path}
}

// Name identifies the player in logs.
func (p *MP3Player) Name() string {
	return "mp3"
}

// Start opens the track and begins playback. The oto context is created
// lazily here because it binds the process to the audio device.
func (p *MP3Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("audio already playing")
	}

	file, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open audio track: %w", err)
	}

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to decode audio track: %w", err)
	}

	// go-mp3 always emits signed 16-bit little-endian stereo.
	op := &oto.NewContextOptions{
		SampleRate:   dec.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	<-ready

	p.file = file
	p.player = ctx.NewPlayer(dec)
	p.player.Play()
	p.started = true

	logger.WithComponent("audio").Info().
		Str("track", p.path).
		Int("sample_rate", dec.SampleRate()).
		Msg("Audio playback started")

	return nil
}

// Stop halts playback and releases the track.
func (p *MP3Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false

	var err error
	if p.player != nil {
		err = p.player.Close()
		p.player = nil
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}

	if err != nil {
		return fmt.Errorf("failed to close audio player: %w", err)
	}

	logger.WithComponent("audio").Info().Msg("Audio playback stopped")
	return nil
}

// IsPlaying returns whether the track is still audible.
func (p *MP3Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && p.player != nil && p.player.IsPlaying()
}
