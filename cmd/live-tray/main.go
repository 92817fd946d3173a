package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/live-tray/internal/app"
	"github.com/petems/live-tray/internal/audio"
	"github.com/petems/live-tray/internal/config"
	"github.com/petems/live-tray/internal/hotkey"
	"github.com/petems/live-tray/internal/live"
	"github.com/petems/live-tray/internal/logging"
	"github.com/petems/live-tray/internal/permissions"
	"github.com/petems/live-tray/internal/store"
	"github.com/petems/live-tray/internal/transcript"
	"github.com/petems/live-tray/internal/transport"
	"github.com/petems/live-tray/internal/tray"
	"github.com/rs/zerolog"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	headless := flag.Bool("headless", false, "run without tray or hotkey: start a conversation and print turns to stdout")
	listDevices := flag.Bool("list-devices", false, "print audio input and output devices and exit")
	showTranscript := flag.String("transcript", "", "print a saved transcript by session id and exit")
	flag.Parse()

	// Load config from XDG/Library/AppData, then .env and environment
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	if *showTranscript != "" {
		if err := printSavedTranscript(cfg, *showTranscript, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to read transcript")
		}
		return
	}

	// Initialize audio capture
	capture, err := audio.New(cfg.Audio)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer capture.Close()

	if *listDevices {
		printDevices(capture)
		return
	}

	if cfg.APIKey == "" {
		log.Fatal().Msg("GEMINI_API_KEY (or API_KEY) is required")
	}

	// macOS requires explicit microphone approval before capture works
	if err := permissions.Microphone(); err != nil {
		log.Warn().Err(err).Msg("Microphone access not granted yet; conversations will fail until it is")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dialer, err := newDialer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize live transport")
	}

	// Saving can be switched on from the tray, so the store always exists
	var transcripts app.TranscriptStore
	if fs, err := store.NewFileStore(cfg.Transcripts.Dir, log); err != nil {
		log.Error().Err(err).Msg("Transcript saving unavailable")
	} else {
		transcripts = fs
	}

	appCfg := app.Config{
		Audio:  capture,
		Store:  transcripts,
		Config: cfg,
		Logger: log,
	}
	if *headless {
		appCfg.OnTurn = printTurn
	}
	application := app.New(appCfg)

	controller := live.NewController(live.Config{
		Dialer:   dialer,
		Capture:  capture,
		Speakers: audio.OpenSpeaker,
		Observer: application,
		Logger:   log,
		Settings: live.SettingsFromConfig(cfg),
	})
	application.SetSession(controller)

	log.Info().
		Str("version", Version).
		Str("transport", cfg.Live.Transport).
		Str("model", cfg.Live.Model).
		Bool("headless", *headless).
		Msg("LiveTray starting...")

	if *headless {
		runHeadless(ctx, application, log)
		return
	}

	// Global hotkeys need accessibility approval on macOS
	if err := permissions.Accessibility(); err != nil {
		log.Warn().Err(err).Msg("Hotkey may not work until accessibility access is granted")
	}

	// Initialize hotkey manager
	hkManager, err := hotkey.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize hotkeys")
	}
	defer hkManager.Close()

	// Create tray UI with app as its backend, then route status back to it
	trayUI := tray.New(application, cfg, Version, Commit, log)
	application.SetStatusUpdater(trayUI)

	// Register global hotkey
	if err := hkManager.Register(cfg.PlatformHotkey(), application.OnHotkey); err != nil {
		log.Fatal().Err(err).Msg("Failed to register hotkey")
	}

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Tray error")
	}

	log.Info().Msg("Shutting down...")
	shutdown(application, log)
}

func newDialer(ctx context.Context, cfg *config.Config) (transport.Dialer, error) {
	switch cfg.Live.Transport {
	case config.TransportWebsocket:
		return &transport.WebsocketDialer{
			Endpoint: cfg.Live.Endpoint,
			APIKey:   cfg.APIKey,
		}, nil
	default:
		d, err := transport.NewGenAIDialer(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func runHeadless(ctx context.Context, application *app.App, log zerolog.Logger) {
	fmt.Println("Listening... press Ctrl+C to stop.")
	application.StartConversation()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")
	shutdown(application, log)
}

func shutdown(application *app.App, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

func printTurn(turn transcript.Turn) {
	fmt.Println(transcript.Format([]transcript.Turn{turn}))
}

func printSavedTranscript(cfg *config.Config, sessionID string, log zerolog.Logger) error {
	fs, err := store.NewFileStore(cfg.Transcripts.Dir, log)
	if err != nil {
		return err
	}
	turns, err := fs.LoadTranscript(sessionID)
	if err != nil {
		return err
	}
	fmt.Print(transcript.Format(turns))
	return nil
}

func printDevices(capture audio.Capture) {
	inputs, err := capture.ListDevices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	outputs, err := audio.ListOutputDevices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	fmt.Println("Input devices:")
	for _, d := range inputs {
		fmt.Println(deviceLine(d))
	}
	fmt.Println("Output devices:")
	for _, d := range outputs {
		fmt.Println(deviceLine(d))
	}
}

func deviceLine(d audio.AudioDevice) string {
	if d.Default {
		return fmt.Sprintf("  * %s (default)", d.Name)
	}
	return fmt.Sprintf("    %s", d.Name)
}
