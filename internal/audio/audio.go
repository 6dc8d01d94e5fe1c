// Package audio plays the soundtrack that accompanies frame playback.
package audio

// Player controls soundtrack playback. Playback failures are never fatal to
// the video pipeline; a player that cannot start simply leaves the run
// silent.
type Player interface {
	// Start begins playback from the top of the track.
	Start() error

	// Stop halts playback and releases the device.
	Stop() error

	// IsPlaying returns whether the track is still audible.
	IsPlaying() bool

	// Name identifies the player in logs.
	Name() string
}

// NopPlayer silently satisfies Player when audio is disabled or no track
// exists.
type NopPlayer struct{}

// Start does nothing.
func (NopPlayer) Start() error { return nil }

// Stop does nothing.
func (NopPlayer) Stop() error { return nil }

// IsPlaying always reports false.
func (NopPlayer) IsPlaying() bool { return false }

// Name identifies the player in logs.
func (NopPlayer) Name() string { return "none" }
