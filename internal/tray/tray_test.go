package tray

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/petems/live-tray/internal/config"
	"github.com/rs/zerolog"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"listening", "🔴"},
		{"connecting", "🟡"},
		{"idle", "🟢"},
		{"error", "⚪️"},
		{"bogus", "🟢"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := emojiForStatus(tt.status); got != tt.want {
				t.Errorf("emojiForStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestStartStopTitle(t *testing.T) {
	tests := map[string]string{
		"idle":       "Start Conversation",
		"connecting": "Connecting...",
		"listening":  "Stop Conversation",
		"error":      "Retry Conversation",
	}
	for status, want := range tests {
		if got := startStopTitle(status); got != want {
			t.Errorf("startStopTitle(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestModeTitle(t *testing.T) {
	if got := modeTitle(config.ModeToggle); got != "Mode: Toggle" {
		t.Errorf("got %q", got)
	}
	if got := modeTitle(config.ModePushToTalk); got != "Mode: Push-to-Talk" {
		t.Errorf("got %q", got)
	}
}

func TestTooltipFor(t *testing.T) {
	if got := tooltipFor("", ""); got != "Listening..." {
		t.Errorf("empty pending = %q", got)
	}
	if got := tooltipFor("Hello", ""); got != "You: Hello" {
		t.Errorf("user pending = %q", got)
	}
	if got := tooltipFor("Hello", "Hi there"); got != "Gemini: Hi there" {
		t.Errorf("model pending = %q", got)
	}

	long := tooltipFor("", strings.Repeat("word ", 100)+"end")
	if n := utf8.RuneCountInString(long); n != maxTooltip {
		t.Errorf("tooltip has %d runes, want %d", n, maxTooltip)
	}
	if !strings.HasSuffix(long, "end") || !strings.HasPrefix(long, "…") {
		t.Errorf("long tooltip should keep the newest text, got %q", long)
	}
}

func TestStatusBeforeReadyIsRecorded(t *testing.T) {
	u := New(nil, config.Default(), "dev", "none", zerolog.Nop())
	u.SetConnecting()
	if u.status != "connecting" {
		t.Errorf("status = %q, want connecting", u.status)
	}
	// Not ready: no systray calls, no panic.
	u.SetPending("a", "b")
}
