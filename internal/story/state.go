// Package story owns the shared narrative state: the append-only progress
// log, the keyword dictionary, and the generation pipeline that advances
// them. All mutation goes through a single serialized action at a time; the
// gate enforcing that lives with the session handling, not here.
package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tunable defaults applied when the persisted state omits them.
const (
	DefaultTextWindowSize  = 1000
	DefaultWordSearchDepth = 2
)

// Window coefficients relative to TextWindowSize.
const (
	continuationCoeff = 1.0
	spottingCoeff     = 0.5
)

// GameState is the persisted narrative state. It is saved in full on every
// mutation; Progress only ever grows.
type GameState struct {
	OverallContext  string            `json:"overall_context"`
	Keywords        map[string]string `json:"keywords"`
	Progress        string            `json:"progress"`
	TextWindowSize  int               `json:"text_window_size,omitempty"`
	WordSearchDepth int               `json:"word_search_depth,omitempty"`
}

// newGameState returns an empty state with defaults applied.
func newGameState() *GameState {
	return &GameState{
		Keywords:        make(map[string]string),
		TextWindowSize:  DefaultTextWindowSize,
		WordSearchDepth: DefaultWordSearchDepth,
	}
}

// applyDefaults fills in zero-valued tunables and a nil keyword map.
func (s *GameState) applyDefaults() {
	if s.Keywords == nil {
		s.Keywords = make(map[string]string)
	}
	if s.TextWindowSize <= 0 {
		s.TextWindowSize = DefaultTextWindowSize
	}
	if s.WordSearchDepth <= 0 {
		s.WordSearchDepth = DefaultWordSearchDepth
	}
}

// loadState reads the state file at path. A missing file yields a fresh
// state.
func loadState(path string) (*GameState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newGameState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}

	state := &GameState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse game state: %w", err)
	}
	state.applyDefaults()
	return state, nil
}

// saveState writes the full state to path via a temp file and rename, so a
// crash mid-write never leaves a truncated narrative behind.
func saveState(path string, state *GameState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode game state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".game-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write game state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace game state: %w", err)
	}
	return nil
}

// tailRunes returns the last n runes of s. Slicing on rune boundaries keeps
// the windows from starting inside a multi-byte character.
func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
