package tray

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/petems/live-tray/internal/app"
	"github.com/petems/live-tray/internal/audio"
	"github.com/petems/live-tray/internal/config"
	"github.com/petems/live-tray/internal/logging"
	"github.com/petems/live-tray/internal/transport"
	"github.com/rs/zerolog"
)

const maxTooltip = 120

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu     sync.Mutex
	ready  bool
	status string

	// Menu items
	mStartStop  *systray.MenuItem
	mMode       *systray.MenuItem
	mDevices    *systray.MenuItem
	mOutputs    *systray.MenuItem
	mVoices     *systray.MenuItem
	mCopy       *systray.MenuItem
	mSave       *systray.MenuItem
	mCopyOnTurn *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetConnecting() {
	u.updateStatus("connecting")
}

func (u *UI) SetListening() {
	u.updateStatus("listening")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

// SetPending shows the in-progress turn in the tooltip.
func (u *UI) SetPending(user, model string) {
	if !u.isReady() {
		return
	}
	systray.SetTooltip(tooltipFor(user, model))
}

func New(application *app.App, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
		status:  "idle",
	}
}

func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.mu.Lock()
	u.ready = true
	status := u.status
	u.mu.Unlock()

	// Use emoji instead of icon - speech balloon with initial status
	u.applyStatus(status)
	systray.SetTooltip("Live voice conversation with Gemini")

	// Build menu
	u.mStartStop = systray.AddMenuItem(startStopTitle(status), "Press hotkey to talk")
	systray.AddSeparator()

	u.mMode = systray.AddMenuItem(modeTitle(u.cfg.Mode), "Toggle between modes")
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Microphone", "Select input device")
	u.buildDeviceMenu(u.mDevices, u.cfg.Audio.DeviceID, u.app.ListDevices, u.app.SetDevice)

	u.mOutputs = systray.AddMenuItem("Speaker", "Select output device")
	u.buildDeviceMenu(u.mOutputs, u.cfg.Audio.OutputDeviceID, u.app.ListOutputDevices, u.app.SetOutputDevice)

	u.mVoices = systray.AddMenuItem("Voice", "Select Gemini voice")
	u.buildVoiceMenu()

	systray.AddSeparator()
	u.mCopy = systray.AddMenuItem("Copy Transcript", "Copy the last conversation")
	u.mSave = systray.AddMenuItemCheckbox("Save Transcripts", "Write each conversation to disk", u.cfg.Transcripts.Save)
	u.mCopyOnTurn = systray.AddMenuItemCheckbox("Copy Each Turn", "Copy every finished turn to the clipboard", u.cfg.CopyOnTurn)

	systray.AddSeparator()
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About LiveTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			if u.app.IsActive() {
				u.app.StopConversation()
			} else {
				u.app.StartConversation()
			}
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-u.mCopy.ClickedCh:
			u.copyTranscript()
		case <-u.mSave.ClickedCh:
			u.toggleSaveTranscripts()
		case <-u.mCopyOnTurn.ClickedCh:
			u.toggleCopyOnTurn()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu(parent *systray.MenuItem, selected string, list func() ([]audio.AudioDevice, error), choose func(string) error) {
	devices, err := list()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		return
	}

	deviceItems := make(map[string]*systray.MenuItem)

	for _, dev := range devices {
		item := parent.AddSubMenuItem(dev.Name, "")
		if dev.ID == selected || (selected == "" && dev.Default) {
			item.Check()
		}
		deviceItems[dev.ID] = item

		go func(deviceID, deviceName string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := choose(deviceID); err != nil {
					u.log.Warn().Err(err).Str("device", deviceName).Msg("Cannot change audio device")
					continue
				}
				// Uncheck all other items
				for id, itm := range deviceItems {
					if id != deviceID {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
				u.log.Info().Str("device", deviceName).Msg("Changed audio device")
			}
		}(dev.ID, dev.Name, item)
	}
}

func (u *UI) buildVoiceMenu() {
	voiceItems := make(map[string]*systray.MenuItem)

	for _, voice := range transport.Voices {
		item := u.mVoices.AddSubMenuItem(voice, "")
		if voice == u.cfg.Live.Voice {
			item.Check()
		}
		voiceItems[voice] = item

		go func(v string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				oldVoice := u.cfg.Live.Voice
				if err := u.app.SetVoice(v); err != nil {
					u.log.Warn().Err(err).Str("voice", v).Msg("Cannot change voice")
					continue
				}
				// Uncheck all other items
				for name, itm := range voiceItems {
					if name != v {
						itm.Uncheck()
					}
				}
				// Check this item
				menuItem.Check()
				u.log.Info().Str("from", oldVoice).Str("to", v).Msg("Changed voice")
			}
		}(voice, item)
	}
}

func (u *UI) toggleMode() {
	oldMode := u.cfg.Mode
	newMode := config.ModePushToTalk
	if oldMode == config.ModePushToTalk {
		newMode = config.ModeToggle
	}
	if err := u.app.SetMode(newMode); err != nil {
		u.log.Error().Err(err).Msg("Failed to save mode")
	}
	u.mMode.SetTitle(modeTitle(newMode))
	u.log.Info().Str("from", oldMode).Str("to", newMode).Msg("Changed mode")
}

func (u *UI) copyTranscript() {
	err := u.app.CopyTranscript()
	switch {
	case errors.Is(err, app.ErrNoTranscript):
		u.log.Info().Msg("Nothing to copy yet")
	case err != nil:
		u.log.Error().Err(err).Msg("Copy transcript failed")
	}
}

func (u *UI) toggleSaveTranscripts() {
	save := !u.cfg.Transcripts.Save
	if err := u.app.SetSaveTranscripts(save); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
	if save {
		u.mSave.Check()
		u.log.Info().Str("dir", u.cfg.Transcripts.Dir).Msg("Enabled transcript saving")
	} else {
		u.mSave.Uncheck()
		u.log.Info().Msg("Disabled transcript saving")
	}
}

func (u *UI) toggleCopyOnTurn() {
	u.cfg.CopyOnTurn = !u.cfg.CopyOnTurn
	if u.cfg.CopyOnTurn {
		u.mCopyOnTurn.Check()
		u.log.Info().Msg("Enabled copy on turn")
	} else {
		u.mCopyOnTurn.Uncheck()
		u.log.Info().Msg("Disabled copy on turn")
	}
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
}

func (u *UI) openLogs() {
	cmd := openCommand(logging.LogPath())
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", logging.LogPath()).Msg("Failed to open logs")
	}
}

func openCommand(path string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

func (u *UI) showAbout() {
	// TODO: Show about dialog with native UI
	fmt.Printf("LiveTray %s (%s)\nReal-time voice conversation with Gemini\n", u.version, u.commit)
}

func (u *UI) onExit() {
	// Cleanup
}

func (u *UI) isReady() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ready
}

// updateStatus records the status and reflects it in the tray once ready.
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	ready := u.ready
	u.mu.Unlock()

	if ready {
		u.applyStatus(status)
	}
}

func (u *UI) applyStatus(status string) {
	systray.SetTitle(fmt.Sprintf("💬 %s", emojiForStatus(status)))
	if u.mStartStop != nil {
		u.mStartStop.SetTitle(startStopTitle(status))
	}
	if status == "idle" || status == "error" {
		systray.SetTooltip("Live voice conversation with Gemini")
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "listening":
		return "🔴" // Red - live conversation
	case "connecting":
		return "🟡" // Yellow - opening session
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func startStopTitle(status string) string {
	switch status {
	case "listening":
		return "Stop Conversation"
	case "connecting":
		return "Connecting..."
	case "error":
		return "Retry Conversation"
	default:
		return "Start Conversation"
	}
}

func modeTitle(mode string) string {
	if mode == config.ModeToggle {
		return "Mode: Toggle"
	}
	return "Mode: Push-to-Talk"
}

// tooltipFor renders the pending turn, keeping the newest text when long.
func tooltipFor(user, model string) string {
	if user == "" && model == "" {
		return "Listening..."
	}
	text := "You: " + user
	if model != "" {
		text = "Gemini: " + model
	}
	runes := []rune(text)
	if len(runes) > maxTooltip {
		return "…" + string(runes[len(runes)-maxTooltip+1:])
	}
	return text
}
