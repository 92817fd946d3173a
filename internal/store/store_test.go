package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/petems/live-tray/internal/transcript"
	"github.com/rs/zerolog"
)

func TestSaveAndLoadTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "transcripts")
	s, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	turns := []transcript.Turn{
		{User: "Hello world", Model: "Hi there", Completed: when},
		{User: "", Model: "Anything else?", Completed: when.Add(time.Second)},
	}

	path, err := s.SaveTranscript("abc", turns)
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if filepath.Base(path) != "abc.jsonl" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("expected 2 JSONL lines, got %d", lines)
	}

	loaded, err := s.LoadTranscript("abc")
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded))
	}
	if loaded[0].User != "Hello world" || loaded[1].Model != "Anything else?" {
		t.Errorf("unexpected turns %+v", loaded)
	}
	if !loaded[0].Completed.Equal(when) {
		t.Errorf("timestamp lost: %v", loaded[0].Completed)
	}
}

func TestSaveTranscriptRequiresSessionID(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveTranscript("", nil); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestLoadMissingTranscript(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadTranscript("missing"); err == nil {
		t.Fatal("expected error for missing transcript")
	}
}
