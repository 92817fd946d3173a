package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/live-tray/internal/pcm"
)

// Output is a mono playback stream. Scheduled buffers are mixed into a
// timeline that the PortAudio callback drains, so the stream's own
// frame count serves as the playback clock.
type Output struct {
	stream *portaudio.Stream
	tl     *timeline
	rate   int

	closeOnce sync.Once
	closeErr  error
}

// OpenOutput starts a playback stream on the named device (default when empty).
func OpenOutput(deviceID string, sampleRate int) (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize PortAudio: %v", ErrDeviceUnavailable, err)
	}

	device, err := findDevice(deviceID, false)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	o := &Output{tl: newTimeline(sampleRate), rate: sampleRate}
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  device.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, o.tl.render)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to open output stream on %s: %v", ErrDeviceUnavailable, device.Name, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: failed to start output stream: %v", ErrDeviceUnavailable, err)
	}

	o.stream = stream
	return o, nil
}

// OpenSpeaker is OpenOutput as a SpeakerFactory.
func OpenSpeaker(deviceID string, sampleRate int) (Speaker, error) {
	out, err := OpenOutput(deviceID, sampleRate)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Now is the duration of audio rendered so far.
func (o *Output) Now() time.Duration {
	return o.tl.now()
}

// Schedule plays buf starting at the given clock position, downmixed and
// resampled to the stream's format.
func (o *Output) Schedule(buf pcm.Buffer, at time.Duration) {
	samples := pcm.Resample(buf.Mono(), buf.SampleRate, o.rate)
	o.tl.schedule(samples, at)
}

// Close stops playback immediately, discarding anything still scheduled.
func (o *Output) Close() error {
	o.closeOnce.Do(func() {
		if err := o.stream.Abort(); err != nil {
			o.closeErr = err
		}
		if err := o.stream.Close(); err != nil && o.closeErr == nil {
			o.closeErr = err
		}
		portaudio.Terminate()
	})
	return o.closeErr
}
