package audio

import (
	"context"
	"errors"
	"time"

	"github.com/petems/live-tray/internal/pcm"
)

var (
	// ErrPermissionDenied is returned when the OS refuses microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned when the requested device cannot be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Capture defines the interface for microphone capture
type Capture interface {
	// Start opens a new input stream and delivers mono chunks of
	// framesPerBuffer samples on out until ctx is cancelled or Stop is called.
	Start(ctx context.Context, deviceID string, sampleRate, framesPerBuffer int, out chan<- []float32) error
	Stop() error
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// Speaker is a per-session output stream with its own playback clock.
type Speaker interface {
	Now() time.Duration
	Schedule(buf pcm.Buffer, at time.Duration)
	Close() error
}

// SpeakerFactory opens a fresh output stream on the named device
// (system default when empty) at the given sample rate.
type SpeakerFactory func(deviceID string, sampleRate int) (Speaker, error)

// AudioDevice represents an audio input or output device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}
