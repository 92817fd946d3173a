package pcm

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func TestRoundTripWithinQuantizationError(t *testing.T) {
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = float32(0.999 * math.Sin(2*math.Pi*440*float64(i)/InputSampleRate))
	}
	samples[0] = -1.0
	samples[1] = 0
	samples[2] = 0.5

	blob := EncodeOutbound(samples, InputSampleRate)
	if blob.MIMEType != "audio/pcm;rate=16000" {
		t.Fatalf("unexpected mime type %q", blob.MIMEType)
	}

	buf, err := DecodeInbound(blob.Base64(), InputSampleRate, 1)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Frames() != len(samples) {
		t.Fatalf("expected %d frames, got %d", len(samples), buf.Frames())
	}
	for i, want := range samples {
		got := buf.Channels[0][i]
		if diff := math.Abs(float64(got - want)); diff > 1.0/32768 {
			t.Fatalf("sample %d: got %f want %f (diff %g)", i, got, want, diff)
		}
	}
}

func TestEncodeOutboundLittleEndian(t *testing.T) {
	blob := EncodeOutbound([]float32{0.5, -0.5}, InputSampleRate)
	// 0.5*32768 = 16384 = 0x4000, -16384 = 0xC000
	want := []byte{0x00, 0x40, 0x00, 0xC0}
	if string(blob.PCM) != string(want) {
		t.Fatalf("got % x, want % x", blob.PCM, want)
	}
	if blob.Base64() != base64.StdEncoding.EncodeToString(want) {
		t.Fatalf("unexpected base64 %q", blob.Base64())
	}
}

func TestEncodeOutboundWrapsOutOfRange(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{1.0, -32768},
		// 1.5*32768 = 49152 wraps to 49152-65536
		{1.5, -16384},
		{-1.5, 16384},
		{2.0, 0},
		// far beyond the int32 range the wrap still follows modulo 2^16
		{65537.5, -16384},
		{-70000.25, -8192},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 0},
		{float32(math.Inf(-1)), 0},
	}

	for _, tt := range tests {
		blob := EncodeOutbound([]float32{tt.in}, InputSampleRate)
		got := int16(binary.LittleEndian.Uint16(blob.PCM))
		if got != tt.want {
			t.Errorf("encode(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeInboundDeinterleaves(t *testing.T) {
	raw := Float32ToPCM16([]float32{0.25, -0.25, 0.5, -0.5})
	buf, err := PCM16ToFloat32(raw, OutputSampleRate, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Channels) != 2 || buf.Frames() != 2 {
		t.Fatalf("unexpected shape: %d channels, %d frames", len(buf.Channels), buf.Frames())
	}
	if buf.Channels[0][1] != 0.5 || buf.Channels[1][1] != -0.5 {
		t.Fatalf("unexpected channel data: %v", buf.Channels)
	}
	mono := buf.Mono()
	if mono[0] != 0 || mono[1] != 0 {
		t.Fatalf("expected silent downmix, got %v", mono)
	}
}

func TestDecodeInboundMalformed(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		channels int
	}{
		{"odd byte count", base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), 1},
		{"partial stereo frame", base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6}), 2},
		{"invalid base64", "not base64!", 1},
		{"zero channels", base64.StdEncoding.EncodeToString([]byte{1, 2}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInbound(tt.data, OutputSampleRate, tt.channels)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestBufferDuration(t *testing.T) {
	buf := Buffer{SampleRate: OutputSampleRate, Channels: [][]float32{make([]float32, 12000)}}
	if buf.Duration() != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", buf.Duration())
	}
	if got := DurationToFrames(500*time.Millisecond, OutputSampleRate); got != 12000 {
		t.Fatalf("expected 12000 frames, got %d", got)
	}
}

func TestRateFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/pcm;rate=24000", 24000},
		{"audio/pcm; rate=16000", 16000},
		{"audio/pcm", 24000},
		{"audio/pcm;rate=abc", 24000},
		{"audio/pcm;channels=1;RATE=48000", 48000},
	}
	for _, tt := range tests {
		if got := RateFromMIME(tt.mime, OutputSampleRate); got != tt.want {
			t.Errorf("RateFromMIME(%q) = %d, want %d", tt.mime, got, tt.want)
		}
	}
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	if got := Resample(in, 16000, 16000); &got[0] != &in[0] {
		t.Fatal("same-rate resample should return the input")
	}
	out := Resample(in, 16000, 32000)
	if len(out) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(out))
	}
	if out[1] != 0.5 || out[2] != 1 {
		t.Fatalf("unexpected interpolation: %v", out)
	}
}
