// Package pcm converts between float32 sample buffers and the signed 16-bit
// little-endian PCM used on the wire by the Live API.
package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// InputSampleRate is the rate the service expects for microphone audio.
	InputSampleRate = 16000
	// OutputSampleRate is the rate of audio produced by the service.
	OutputSampleRate = 24000

	bytesPerSample = 2
	scale          = 32768.0
)

// ErrMalformedPayload is returned when inbound audio cannot be decoded.
var ErrMalformedPayload = errors.New("malformed audio payload")

// Blob is an encoded audio segment ready for transmission.
type Blob struct {
	PCM      []byte
	MIMEType string
}

// Base64 returns the text-safe form of the blob data.
func (b Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.PCM)
}

// MIMEType builds the audio/pcm MIME type for a sample rate.
func MIMEType(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}

// RateFromMIME extracts the rate parameter from an audio/pcm MIME type,
// returning def when absent or unparseable.
func RateFromMIME(mimeType string, def int) int {
	for _, param := range strings.Split(mimeType, ";")[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || rate <= 0 {
			return def
		}
		return rate
	}
	return def
}

// EncodeOutbound converts microphone samples into a wire blob.
//
// Samples are scaled by 32768 and truncated toward zero. No clamping is
// applied: values at or beyond full scale wrap around the int16 range, so
// 1.0 encodes as -32768.
func EncodeOutbound(samples []float32, sampleRate int) Blob {
	return Blob{
		PCM:      Float32ToPCM16(samples),
		MIMEType: MIMEType(sampleRate),
	}
}

// Float32ToPCM16 serializes samples as little-endian signed 16-bit integers.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(toInt16(s)))
	}
	return out
}

// toInt16 scales a sample and reduces it modulo 2^16, so any finite input
// wraps the same way regardless of magnitude. NaN and infinities encode as 0.
func toInt16(s float32) int16 {
	v := math.Trunc(float64(s) * scale)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int16(int64(math.Mod(v, 65536)))
}

// DecodeInbound reverses the base64 transport encoding and decodes PCM16LE
// audio into a de-interleaved buffer.
func DecodeInbound(data string, sampleRate, channels int) (Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return PCM16ToFloat32(raw, sampleRate, channels)
}

// PCM16ToFloat32 decodes interleaved PCM16LE bytes.
func PCM16ToFloat32(raw []byte, sampleRate, channels int) (Buffer, error) {
	if channels <= 0 {
		return Buffer{}, fmt.Errorf("%w: invalid channel count %d", ErrMalformedPayload, channels)
	}
	frameBytes := bytesPerSample * channels
	if len(raw)%frameBytes != 0 {
		return Buffer{}, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMalformedPayload, len(raw), frameBytes)
	}

	frames := len(raw) / frameBytes
	buf := Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bytesPerSample
			v := int16(binary.LittleEndian.Uint16(raw[off:]))
			buf.Channels[ch][i] = float32(v) / scale
		}
	}
	return buf, nil
}

// Buffer is decoded audio, one slice per channel.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of sample frames in the buffer.
func (b Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return FramesToDuration(int64(b.Frames()), b.SampleRate)
}

// Mono averages all channels into a single slice. Single-channel buffers
// are returned without copying.
func (b Buffer) Mono() []float32 {
	switch len(b.Channels) {
	case 0:
		return nil
	case 1:
		return b.Channels[0]
	}
	frames := b.Frames()
	out := make([]float32, frames)
	for _, ch := range b.Channels {
		for i, s := range ch {
			out[i] += s
		}
	}
	n := float32(len(b.Channels))
	for i := range out {
		out[i] /= n
	}
	return out
}

// FramesToDuration converts a frame count at the given rate to a duration.
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	return time.Duration(frames * int64(time.Second) / int64(sampleRate))
}

// DurationToFrames converts a duration to the nearest frame index.
func DurationToFrames(d time.Duration, sampleRate int) int64 {
	return (int64(d)*int64(sampleRate) + int64(time.Second)/2) / int64(time.Second)
}

// Resample converts mono samples between rates using linear interpolation.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx] + (samples[idx+1]-samples[idx])*frac
	}
	return out
}
