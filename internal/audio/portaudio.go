package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/live-tray/internal/config"
	"github.com/petems/live-tray/internal/permissions"
)

// inputStream is the subset of *portaudio.Stream the read loop uses.
type inputStream interface {
	Read() error
	Stop() error
	Close() error
}

type portAudioCapture struct {
	channels int

	mu     sync.Mutex
	stream inputStream
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new PortAudio-based audio capture
func New(cfg config.AudioConfig) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	channels := cfg.InputChannels
	if channels < 1 {
		channels = 1
	}
	return &portAudioCapture{channels: channels}, nil
}

func (p *portAudioCapture) Start(ctx context.Context, deviceID string, sampleRate, framesPerBuffer int, out chan<- []float32) error {
	if err := permissions.Microphone(); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return fmt.Errorf("%w: capture already running", ErrDeviceUnavailable)
	}

	device, err := findDevice(deviceID, true)
	if err != nil {
		return err
	}

	channels := min(p.channels, device.MaxInputChannels)
	buffer := make([]float32, framesPerBuffer*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, buffer)
	if err != nil {
		return fmt.Errorf("%w: failed to open input stream on %s: %v", ErrDeviceUnavailable, device.Name, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: failed to start input stream: %v", ErrDeviceUnavailable, err)
	}

	p.run(ctx, stream, buffer, channels, framesPerBuffer, out)
	return nil
}

// run starts the read loop. Callers hold p.mu. Only Stop closes the stream.
func (p *portAudioCapture) run(ctx context.Context, stream inputStream, buffer []float32, channels, framesPerBuffer int, out chan<- []float32) {
	readCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.stream, p.cancel, p.done = stream, cancel, done

	go func() {
		defer close(done)
		readLoop(readCtx, stream, buffer, channels, framesPerBuffer, out)
	}()
}

func readLoop(ctx context.Context, stream inputStream, buffer []float32, channels, framesPerBuffer int, out chan<- []float32) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := stream.Read(); err != nil {
			// Overflow only means samples were lost; the stream is still good.
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return
		}
		samples := downmixInterleaved(buffer, channels, framesPerBuffer)

		select {
		case out <- samples:
		case <-ctx.Done():
			return
		default:
			// Drop if channel full (backpressure)
		}
	}
}

// Stop ends the current stream, waits for the read loop to exit and then
// releases the stream.
func (p *portAudioCapture) Stop() error {
	p.mu.Lock()
	stream, cancel, done := p.stream, p.cancel, p.done
	p.stream, p.cancel, p.done = nil, nil, nil
	p.mu.Unlock()

	if stream == nil {
		return nil
	}
	cancel()
	err := stream.Stop()
	<-done
	if cerr := stream.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	return listDevices(true)
}

func (p *portAudioCapture) Close() error {
	err := p.Stop()
	portaudio.Terminate()
	return err
}

// ListOutputDevices enumerates playback devices.
func ListOutputDevices() ([]AudioDevice, error) {
	return listDevices(false)
}

func listDevices(input bool) ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var defaultDevice *portaudio.DeviceInfo
	if input {
		defaultDevice, _ = portaudio.DefaultInputDevice()
	} else {
		defaultDevice, _ = portaudio.DefaultOutputDevice()
	}

	result := make([]AudioDevice, 0, len(devices))
	for _, d := range devices {
		if (input && d.MaxInputChannels > 0) || (!input && d.MaxOutputChannels > 0) {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

// findDevice resolves a device name, or the system default when empty.
func findDevice(deviceID string, input bool) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		var (
			device *portaudio.DeviceInfo
			err    error
		)
		if input {
			device, err = portaudio.DefaultInputDevice()
		} else {
			device, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("%w: no default device: %v", ErrDeviceUnavailable, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to enumerate devices: %v", ErrDeviceUnavailable, err)
	}
	for _, d := range devices {
		if d.Name != deviceID {
			continue
		}
		if (input && d.MaxInputChannels > 0) || (!input && d.MaxOutputChannels > 0) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, deviceID)
}
