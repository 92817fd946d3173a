package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/petems/live-tray/internal/audio"
	"github.com/petems/live-tray/internal/config"
	"github.com/petems/live-tray/internal/pcm"
	"github.com/petems/live-tray/internal/playback"
	"github.com/petems/live-tray/internal/transcript"
	"github.com/petems/live-tray/internal/transport"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkSize       = 4096
	DefaultFramesPerBuffer = 1024

	micQueueLen      = 8
	outboundQueueLen = 16
)

// Settings are read at each Start; changes apply to the next session.
type Settings struct {
	Model            string
	Voice            string
	InputDeviceID    string
	OutputDeviceID   string
	InputSampleRate  int
	OutputSampleRate int
	FramesPerBuffer  int
	ChunkSize        int
}

// SettingsFromConfig extracts the session settings from the app config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Model:            cfg.Live.Model,
		Voice:            cfg.Live.Voice,
		InputDeviceID:    cfg.Audio.DeviceID,
		OutputDeviceID:   cfg.Audio.OutputDeviceID,
		InputSampleRate:  cfg.Audio.InputSampleRate,
		OutputSampleRate: cfg.Audio.OutputSampleRate,
		FramesPerBuffer:  cfg.Audio.FramesPerBuffer,
		ChunkSize:        cfg.Audio.ChunkSize,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Model == "" {
		s.Model = transport.DefaultModel
	}
	if s.Voice == "" {
		s.Voice = transport.DefaultVoice
	}
	if s.InputSampleRate <= 0 {
		s.InputSampleRate = pcm.InputSampleRate
	}
	if s.OutputSampleRate <= 0 {
		s.OutputSampleRate = pcm.OutputSampleRate
	}
	if s.FramesPerBuffer <= 0 {
		s.FramesPerBuffer = DefaultFramesPerBuffer
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = DefaultChunkSize
	}
	return s
}

type Config struct {
	Dialer   transport.Dialer
	Capture  audio.Capture
	Speakers audio.SpeakerFactory
	Observer Observer // Optional - can be nil
	Logger   zerolog.Logger
	Settings Settings
}

// Controller owns at most one live session at a time: it acquires the
// microphone, speaker and transport together, dispatches server messages,
// and releases everything on every exit path.
type Controller struct {
	dialer   transport.Dialer
	capture  audio.Capture
	speakers audio.SpeakerFactory
	obs      Observer
	log      zerolog.Logger

	mu        sync.Mutex
	settings  Settings
	state     State
	sess      *session
	history   transcript.History
	sessionID string
}

type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	// Guarded by Controller.mu.
	stopped    bool
	micStarted bool
	speaker    audio.Speaker
	conn       transport.Conn
	pump       *Pump

	closing      atomic.Bool
	teardownOnce sync.Once
	done         chan struct{}

	// Receive goroutine only.
	agg       *transcript.Aggregator
	scheduler *playback.Scheduler
}

func NewController(cfg Config) *Controller {
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	return &Controller{
		dialer:   cfg.Dialer,
		capture:  cfg.Capture,
		speakers: cfg.Speakers,
		obs:      obs,
		log:      cfg.Logger,
		settings: cfg.Settings,
	}
}

// Configure replaces the settings used by the next Start.
func (c *Controller) Configure(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the turns of the current or most recent session.
func (c *Controller) History() []transcript.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

// SessionID identifies the current or most recent session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Start opens a new session. ctx bounds the connection attempt only;
// the session runs until Stop or a transport failure.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	settings := c.settings.withDefaults()
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &session{
		id:     uuid.NewString(),
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
		agg:    transcript.NewAggregator(),
	}
	s.log = c.log.With().Str("session_id", s.id).Logger()
	c.sess = s
	c.sessionID = s.id
	c.history = transcript.History{}
	c.state = Connecting
	c.mu.Unlock()
	c.obs.OnStateChange(Connecting)

	s.log.Info().
		Str("model", settings.Model).
		Str("voice", settings.Voice).
		Str("device", settings.InputDeviceID).
		Msg("Starting live session")

	mic := make(chan []float32, micQueueLen)
	if err := c.capture.Start(sctx, settings.InputDeviceID, settings.InputSampleRate, settings.FramesPerBuffer, mic); err != nil {
		return c.abort(s, fmt.Errorf("failed to acquire microphone: %w", err))
	}

	speaker, err := c.speakers(settings.OutputDeviceID, settings.OutputSampleRate)
	if err != nil {
		c.stopCapture(s)
		return c.abort(s, fmt.Errorf("failed to open speaker: %w", err))
	}

	dialCtx, stopDial := context.WithCancel(ctx)
	unlink := context.AfterFunc(sctx, stopDial)
	conn, err := c.dialer.Dial(dialCtx, transport.Config{
		Model:               settings.Model,
		Voice:               settings.Voice,
		InputTranscription:  true,
		OutputTranscription: true,
	})
	unlink()
	stopDial()
	if err != nil {
		c.stopCapture(s)
		speaker.Close()
		return c.abort(s, fmt.Errorf("%w: %w", ErrTransportOpenFailed, err))
	}

	c.mu.Lock()
	if s.stopped {
		c.mu.Unlock()
		c.stopCapture(s)
		speaker.Close()
		conn.Close()
		return c.abort(s, ErrStopped)
	}
	s.micStarted = true
	s.speaker = speaker
	s.conn = conn
	s.pump = NewPump(conn, settings.InputSampleRate, settings.ChunkSize, outboundQueueLen, s.log)
	s.scheduler = playback.NewScheduler(speaker, speaker)
	c.state = Connected
	c.mu.Unlock()

	s.log.Info().Msg("Live session connected")
	c.obs.OnStateChange(Connected)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return s.pump.Run(gctx, mic)
	})
	g.Go(func() error {
		return c.receive(s)
	})
	go func() {
		c.finish(s, g.Wait())
	}()

	return nil
}

// Stop ends the current session, if any, and waits for its teardown.
// Safe to call in any state and more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	s := c.sess
	if s == nil {
		rest := c.state != Disconnected
		c.state = Disconnected
		c.mu.Unlock()
		if rest {
			c.obs.OnStateChange(Disconnected)
		}
		return
	}
	first := !s.stopped
	s.stopped = true
	c.mu.Unlock()

	if first {
		s.log.Info().Msg("Stopping live session")
		c.teardown(s)
	}
	<-s.done
}

// abort finishes a session that never reached Connected.
func (c *Controller) abort(s *session, err error) error {
	s.cancel()

	c.mu.Lock()
	stopped := s.stopped
	c.sess = nil
	if stopped {
		c.state = Disconnected
	} else {
		c.state = Errored
	}
	c.mu.Unlock()
	defer close(s.done)

	if stopped {
		s.log.Info().Msg("Live session stopped while connecting")
		c.obs.OnStateChange(Disconnected)
		c.obs.OnClosed()
		return ErrStopped
	}

	s.log.Error().Err(err).Msg("Failed to start live session")
	c.obs.OnStateChange(Errored)
	c.obs.OnError(err)
	return err
}

// finish runs once the session goroutines have exited.
func (c *Controller) finish(s *session, err error) {
	c.teardown(s)
	sent, dropped, failed := s.pump.Stats()

	c.mu.Lock()
	stopped := s.stopped
	c.sess = nil
	var (
		states   []State
		terminal error
	)
	switch {
	case stopped:
		states = []State{Disconnected}
	case errors.Is(err, io.EOF):
		states = []State{Closed, Disconnected}
	default:
		states = []State{Errored}
		terminal = fmt.Errorf("%w: %w", ErrTransport, err)
	}
	c.state = states[len(states)-1]
	turns := c.history.Len()
	c.mu.Unlock()
	defer close(s.done)

	logEvent := s.log.Info()
	if terminal != nil {
		logEvent = s.log.Error().Err(err)
	}
	logEvent.
		Int64("chunks_sent", sent).
		Int64("chunks_dropped", dropped).
		Int64("chunks_failed", failed).
		Int("turns", turns).
		Str("state", states[len(states)-1].String()).
		Msg("Live session ended")
	if user, model := s.agg.Pending(); user != "" || model != "" {
		s.log.Info().Str("user", user).Str("model", model).Msg("Discarded unfinished turn")
	}

	for _, st := range states {
		c.obs.OnStateChange(st)
	}
	if terminal != nil {
		c.obs.OnError(terminal)
		return
	}
	c.obs.OnClosed()
}

// teardown releases session resources in order: pump, microphone,
// speaker, transport.
func (c *Controller) teardown(s *session) {
	s.teardownOnce.Do(func() {
		s.closing.Store(true)

		c.mu.Lock()
		pump, micStarted, speaker, conn := s.pump, s.micStarted, s.speaker, s.conn
		c.mu.Unlock()

		if pump != nil {
			pump.Stop()
		}
		if micStarted {
			c.stopCapture(s)
		}
		s.cancel()
		if speaker != nil {
			if err := speaker.Close(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to close speaker")
			}
		}
		if conn != nil {
			if err := conn.Close(); err != nil {
				s.log.Debug().Err(err).Msg("Transport close")
			}
		}
	})
}

func (c *Controller) stopCapture(s *session) {
	if err := c.capture.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop microphone")
	}
}

func (c *Controller) receive(s *session) error {
	for {
		msg, err := s.conn.Receive()
		if err != nil {
			return err
		}
		if msg == nil || msg.Empty() || s.closing.Load() {
			continue
		}
		c.dispatch(s, msg)
	}
}

// dispatch applies one server message. Audio is decoded up front so a
// malformed payload drops the whole message.
func (c *Controller) dispatch(s *session, msg *transport.Message) {
	buffers := make([]pcm.Buffer, 0, len(msg.Audio))
	for _, part := range msg.Audio {
		buf, err := pcm.DecodeInbound(part.Data, pcm.RateFromMIME(part.MIMEType, pcm.OutputSampleRate), 1)
		if err != nil {
			s.log.Warn().Err(err).Str("mime_type", part.MIMEType).Msg("Dropping message with malformed audio")
			return
		}
		buffers = append(buffers, buf)
	}

	if msg.InputText != "" {
		c.obs.OnUserText(s.agg.AppendUser(msg.InputText))
	}
	if msg.OutputText != "" {
		c.obs.OnModelText(s.agg.AppendModel(msg.OutputText))
	}

	for _, buf := range buffers {
		at := s.scheduler.Enqueue(buf)
		s.log.Debug().
			Int("frames", buf.Frames()).
			Dur("at", at).
			Msg("Scheduled audio")
	}

	if msg.Interrupted {
		s.log.Info().Msg("Model turn interrupted")
	}

	if msg.TurnComplete {
		turn := s.agg.Finalize()
		c.mu.Lock()
		c.history.Append(turn)
		c.mu.Unlock()

		s.log.Info().Str("user", turn.User).Str("model", turn.Model).Msg("Turn complete")
		c.obs.OnTurn(turn)
		c.obs.OnUserText("")
		c.obs.OnModelText("")
	}

	if msg.GoAway {
		s.log.Warn().Msg("Server requested session end")
	}
}
