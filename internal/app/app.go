package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/petems/live-tray/internal/audio"
	"github.com/petems/live-tray/internal/config"
	"github.com/petems/live-tray/internal/live"
	"github.com/petems/live-tray/internal/transcript"
	"github.com/rs/zerolog"
)

const connectTimeout = 30 * time.Second

var clipboardDefault = clipboard.WriteAll

// Overridden in tests.
var (
	writeClipboard    = clipboardDefault
	listOutputDevices = audio.ListOutputDevices
)

// ErrNoTranscript is returned by CopyTranscript when there is nothing to copy.
var ErrNoTranscript = errors.New("no transcript yet")

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetConnecting()
	SetListening()
	SetError()
	SetPending(user, model string)
}

// Session is the live conversation the app drives.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	State() live.State
	History() []transcript.Turn
	SessionID() string
	Configure(live.Settings)
}

// TranscriptStore persists finished conversations.
type TranscriptStore interface {
	SaveTranscript(sessionID string, turns []transcript.Turn) (string, error)
}

type Config struct {
	Session       Session // Optional here - can be set with SetSession
	Audio         audio.Capture
	Store         TranscriptStore // Optional - can be nil
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater         // Optional - can be nil
	OnTurn        func(transcript.Turn) // Optional - can be nil
}

// App maps hotkey and tray actions onto the live session and fans
// session notifications out to the UI, clipboard and transcript store.
type App struct {
	audio  audio.Capture
	store  TranscriptStore
	cfg    *config.Config
	log    zerolog.Logger
	status StatusUpdater
	onTurn func(transcript.Turn)

	mu           sync.Mutex
	session      Session
	talking      bool
	pendingUser  string
	pendingModel string
}

func New(cfg Config) *App {
	return &App{
		audio:   cfg.Audio,
		store:   cfg.Store,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
		onTurn:  cfg.OnTurn,
		session: cfg.Session,
	}
}

// SetSession sets the session reference (for circular dependency resolution)
func (a *App) SetSession(s Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

// SetStatusUpdater sets the status updater (for circular dependency resolution)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.cfg.Mode {
	case config.ModePushToTalk:
		if pressed {
			a.startLocked()
		} else {
			a.stopLocked()
		}
	default:
		if !pressed {
			return
		}
		if !a.talking {
			a.startLocked()
		} else {
			a.stopLocked()
		}
	}
}

// StartConversation starts a session if none is running.
func (a *App) StartConversation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startLocked()
}

// StopConversation ends the current session, if any.
func (a *App) StopConversation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *App) startLocked() {
	if a.talking || a.session == nil {
		return
	}

	a.log.Info().Msg("Starting conversation")
	a.talking = true
	a.pendingUser, a.pendingModel = "", ""
	go a.runStart(a.session)
}

// runStart connects off the hotkey goroutine. A stop that lands before
// the session registered is applied once Start returns.
func (a *App) runStart(s Session) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	err := s.Start(ctx)
	if err != nil && !errors.Is(err, live.ErrSessionActive) {
		// OnError / OnClosed already reported it.
		a.mu.Lock()
		a.talking = false
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	wanted := a.talking
	a.mu.Unlock()
	if !wanted {
		s.Stop()
	}
}

func (a *App) stopLocked() {
	if !a.talking || a.session == nil {
		return
	}

	a.log.Info().Msg("Stopping conversation")
	a.talking = false
	go a.session.Stop()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.talking = false
	a.mu.Unlock()

	if s == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session teardown: %w", ctx.Err())
	}
}

// live.Observer

func (a *App) OnStateChange(state live.State) {
	a.log.Debug().Str("state", state.String()).Msg("Session state")

	a.mu.Lock()
	if state == live.Disconnected || state == live.Errored {
		a.talking = false
	}
	status := a.status
	a.mu.Unlock()

	if status == nil {
		return
	}
	switch state {
	case live.Connecting:
		status.SetConnecting()
	case live.Connected:
		status.SetListening()
	case live.Errored:
		status.SetError()
	default:
		status.SetIdle()
	}
}

func (a *App) OnUserText(pending string) {
	a.mu.Lock()
	a.pendingUser = pending
	a.mu.Unlock()
	a.showPending()
}

func (a *App) OnModelText(pending string) {
	a.mu.Lock()
	a.pendingModel = pending
	a.mu.Unlock()
	a.showPending()
}

func (a *App) showPending() {
	a.mu.Lock()
	user, model, status := a.pendingUser, a.pendingModel, a.status
	a.mu.Unlock()

	a.log.Debug().Str("user", user).Str("model", model).Msg("Pending transcript")
	if status != nil {
		status.SetPending(user, model)
	}
}

func (a *App) OnTurn(turn transcript.Turn) {
	if a.onTurn != nil {
		a.onTurn(turn)
	}

	a.mu.Lock()
	copyOnTurn := a.cfg.CopyOnTurn
	a.mu.Unlock()

	if copyOnTurn {
		if err := writeClipboard(transcript.Format([]transcript.Turn{turn})); err != nil {
			a.log.Error().Err(err).Msg("Clipboard error")
		}
	}
}

func (a *App) OnError(err error) {
	a.log.Error().Err(err).Msg("Conversation failed")
	a.saveTranscript()
}

func (a *App) OnClosed() {
	a.log.Info().Msg("Conversation ended")
	a.saveTranscript()
}

func (a *App) saveTranscript() {
	a.mu.Lock()
	s, save := a.session, a.cfg.Transcripts.Save
	a.mu.Unlock()

	if !save || a.store == nil || s == nil {
		return
	}
	turns := s.History()
	if len(turns) == 0 {
		return
	}
	if _, err := a.store.SaveTranscript(s.SessionID(), turns); err != nil {
		a.log.Error().Err(err).Msg("Failed to save transcript")
	}
}

// Tray actions

// CopyTranscript copies the current or most recent conversation to the clipboard.
func (a *App) CopyTranscript() error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return ErrNoTranscript
	}

	turns := s.History()
	if len(turns) == 0 {
		return ErrNoTranscript
	}
	if err := writeClipboard(transcript.Format(turns)); err != nil {
		return fmt.Errorf("failed to copy transcript: %w", err)
	}
	a.log.Info().Int("turns", len(turns)).Msg("Copied transcript")
	return nil
}

func (a *App) SetMode(mode string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if mode != config.ModePushToTalk && mode != config.ModeToggle {
		return fmt.Errorf("unknown mode %q", mode)
	}
	a.cfg.Mode = mode
	return a.cfg.Save()
}

func (a *App) SetDevice(id string) error {
	return a.updateSession(func(c *config.Config) { c.Audio.DeviceID = id })
}

func (a *App) SetOutputDevice(id string) error {
	return a.updateSession(func(c *config.Config) { c.Audio.OutputDeviceID = id })
}

func (a *App) SetVoice(voice string) error {
	return a.updateSession(func(c *config.Config) { c.Live.Voice = voice })
}

func (a *App) SetSaveTranscripts(save bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Transcripts.Save = save
	return a.cfg.Save()
}

// updateSession applies a setting that takes effect on the next conversation.
func (a *App) updateSession(apply func(*config.Config)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.talking {
		return fmt.Errorf("cannot change while in a conversation")
	}

	apply(a.cfg)
	if a.session != nil {
		a.session.Configure(live.SettingsFromConfig(a.cfg))
	}
	return a.cfg.Save()
}

func (a *App) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.talking
}

// Config returns the live configuration shared with the tray.
func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.audio.ListDevices()
}

func (a *App) ListOutputDevices() ([]audio.AudioDevice, error) {
	return listOutputDevices()
}
