// Package transport opens duplex audio sessions with the Gemini Live API.
package transport

import (
	"context"
	"errors"
	"io"

	"github.com/gorilla/websocket"

	"github.com/petems/live-tray/internal/pcm"
)

const (
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	DefaultVoice = "Kore"
)

// Voices lists the prebuilt voices offered in the voice menu.
var Voices = []string{"Kore", "Puck", "Charon", "Fenrir", "Aoede", "Leda", "Orus", "Zephyr"}

// Config describes a live session request.
type Config struct {
	Model               string
	Voice               string
	InputTranscription  bool
	OutputTranscription bool
}

// AudioPart is one inline audio payload in its base64 transport form.
type AudioPart struct {
	Data     string
	MIMEType string
}

// Message is the subset of a server message the session acts on.
type Message struct {
	InputText    string
	OutputText   string
	Audio        []AudioPart
	TurnComplete bool
	Interrupted  bool
	GoAway       bool
}

// Empty reports whether the message carries nothing to dispatch.
func (m *Message) Empty() bool {
	return m.InputText == "" && m.OutputText == "" && len(m.Audio) == 0 &&
		!m.TurnComplete && !m.Interrupted && !m.GoAway
}

// Dialer opens live sessions.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Conn, error)
}

// Conn is an open duplex session.
//
// Send may be called from one goroutine while another calls Receive.
// Receive returns io.EOF once the server closes the session normally.
type Conn interface {
	Send(blob pcm.Blob) error
	Receive() (*Message, error)
	Close() error
}

// ErrSetupRejected is returned when the server closes the socket before
// acknowledging the session setup.
var ErrSetupRejected = errors.New("live setup rejected")

// normalizeCloseError maps a normal websocket closure to io.EOF so callers
// can tell a server hang-up from a failure.
func normalizeCloseError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return err
}
