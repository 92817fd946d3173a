package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petems/live-tray/internal/pcm"
)

const (
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultSetupTimeout = 15 * time.Second
	closeWriteTimeout   = time.Second
)

// WebsocketDialer speaks the BidiGenerateContent protocol directly.
type WebsocketDialer struct {
	Endpoint     string
	APIKey       string
	SetupTimeout time.Duration
	Dialer       *websocket.Dialer
}

func (d *WebsocketDialer) Dial(ctx context.Context, cfg Config) (Conn, error) {
	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if d.APIKey != "" {
		q := u.Query()
		q.Set("key", d.APIKey)
		u.RawQuery = q.Encode()
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}

	conn := &wsConn{ws: ws}
	if err := conn.setup(ctx, cfg, d.setupTimeout()); err != nil {
		ws.Close()
		return nil, err
	}
	return conn, nil
}

func (d *WebsocketDialer) setupTimeout() time.Duration {
	if d.SetupTimeout > 0 {
		return d.SetupTimeout
	}
	return defaultSetupTimeout
}

type wsConn struct {
	ws *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) setup(ctx context.Context, cfg Config, timeout time.Duration) error {
	if err := c.writeJSON(newSetup(cfg)); err != nil {
		return fmt.Errorf("send setup: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.ws.SetReadDeadline(deadline)
	defer c.ws.SetReadDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		msg, err := c.read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.ClosePolicyViolation) {
				return fmt.Errorf("%w: %v", ErrSetupRejected, err)
			}
			return fmt.Errorf("await setup: %w", err)
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

func (c *wsConn) Send(blob pcm.Blob) error {
	return c.writeJSON(realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: &wireBlob{MIMEType: blob.MIMEType, Data: blob.Base64()},
		},
	})
}

func (c *wsConn) Receive() (*Message, error) {
	for {
		msg, err := c.read()
		if err != nil {
			return nil, normalizeCloseError(err)
		}
		if msg.SetupComplete != nil && msg.ServerContent == nil && msg.GoAway == nil {
			continue
		}
		return msg.toMessage(), nil
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// read decodes one frame. The service sends JSON in binary frames.
func (c *wsConn) read() (*serverMessage, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server message: %w", err)
	}
	return &msg, nil
}

// Wire types for the BidiGenerateContent protocol.

type setupMessage struct {
	Setup setup `json:"setup"`
}

type setup struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio *wireBlob `json:"audio,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *goAway        `json:"goAway,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

type serverContent struct {
	ModelTurn           *wireContent   `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *wireBlob `json:"inlineData,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

func newSetup(cfg Config) setupMessage {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	s := setup{
		Model:            model,
		GenerationConfig: generationConfig{ResponseModalities: []string{"AUDIO"}},
	}
	if cfg.Voice != "" {
		s.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice}},
		}
	}
	if cfg.InputTranscription {
		s.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		s.OutputAudioTranscription = &struct{}{}
	}
	return setupMessage{Setup: s}
}

func (m *serverMessage) toMessage() *Message {
	out := &Message{GoAway: m.GoAway != nil}
	sc := m.ServerContent
	if sc == nil {
		return out
	}
	out.TurnComplete = sc.TurnComplete
	out.Interrupted = sc.Interrupted
	if sc.InputTranscription != nil {
		out.InputText = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		out.OutputText = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			out.Audio = append(out.Audio, AudioPart{
				Data:     part.InlineData.Data,
				MIMEType: part.InlineData.MIMEType,
			})
		}
	}
	return out
}
