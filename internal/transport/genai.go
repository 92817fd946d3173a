package transport

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/petems/live-tray/internal/pcm"
)

// GenAIDialer opens sessions through the official Go SDK.
type GenAIDialer struct {
	client *genai.Client
}

func NewGenAIDialer(ctx context.Context, apiKey string) (*GenAIDialer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIDialer{client: client}, nil
}

func (d *GenAIDialer) Dial(ctx context.Context, cfg Config) (Conn, error) {
	session, err := d.client.Live.Connect(ctx, cfg.Model, liveConnectConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &genaiConn{session: session}, nil
}

func liveConnectConfig(cfg Config) *genai.LiveConnectConfig {
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if cfg.InputTranscription {
		lc.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.OutputTranscription {
		lc.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.Voice != "" {
		lc.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	return lc
}

type genaiConn struct {
	session *genai.Session
}

func (c *genaiConn) Send(blob pcm.Blob) error {
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: blob.PCM, MIMEType: blob.MIMEType},
	})
}

func (c *genaiConn) Receive() (*Message, error) {
	msg, err := c.session.Receive()
	if err != nil {
		return nil, normalizeCloseError(err)
	}
	return fromGenAI(msg), nil
}

func (c *genaiConn) Close() error {
	return c.session.Close()
}

func fromGenAI(msg *genai.LiveServerMessage) *Message {
	out := &Message{GoAway: msg.GoAway != nil}
	sc := msg.ServerContent
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
			if part == nil || part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			// The SDK hands back raw bytes; sessions decode from the base64 wire form.
			out.Audio = append(out.Audio, AudioPart{
				Data:     pcm.Blob{PCM: part.InlineData.Data}.Base64(),
				MIMEType: part.InlineData.MIMEType,
			})
		}
	}
	return out
}
