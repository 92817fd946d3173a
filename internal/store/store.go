package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/petems/live-tray/internal/transcript"
	"github.com/rs/zerolog"
)

// FileStore writes one JSONL file of turns per session.
type FileStore struct {
	baseDir string
	log     zerolog.Logger
}

func NewFileStore(baseDir string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}

	return &FileStore{
		baseDir: baseDir,
		log:     log,
	}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.jsonl", sessionID))
}

// SaveTranscript writes turns to <baseDir>/<sessionID>.jsonl, replacing any
// earlier file for the same session.
func (s *FileStore) SaveTranscript(sessionID string, turns []transcript.Turn) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	path := s.path(sessionID)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, turn := range turns {
		if err := encoder.Encode(turn); err != nil {
			return "", fmt.Errorf("failed to encode turn: %w", err)
		}
	}

	s.log.Info().
		Str("session_id", sessionID).
		Str("file", path).
		Int("turns", len(turns)).
		Msg("Saved transcript")

	return path, nil
}

func (s *FileStore) LoadTranscript(sessionID string) ([]transcript.Turn, error) {
	file, err := os.Open(s.path(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file: %w", err)
	}
	defer file.Close()

	var turns []transcript.Turn
	decoder := json.NewDecoder(file)

	for decoder.More() {
		var turn transcript.Turn
		if err := decoder.Decode(&turn); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, nil
}
