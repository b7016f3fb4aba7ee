package story

import (
	"context"
	"fmt"

	"github.com/taleforge/taleforge/internal/keyword"
	"github.com/taleforge/taleforge/internal/logger"
)

// Generator is the text-generation boundary the store depends on.
type Generator interface {
	ContinueStory(ctx context.Context, progress, overallContext, player, playerInput string, keywords map[string]string, model string) (string, error)
	ExtractKeywords(ctx context.Context, current map[string]string, text, model string) (map[string]string, error)
}

// Models names the model used for each generation task.
type Models struct {
	StoryContinuation string
	KeywordExtraction string
}

// ModelSource yields the model selection at the time of a call, so config
// edits take effect without a restart.
type ModelSource func() Models

// StaticModels returns a ModelSource that always yields m.
func StaticModels(m Models) ModelSource {
	return func() Models { return m }
}

// Store loads, advances and persists the game state. Callers must serialize
// mutating calls; the action gate in the server guarantees at most one
// ContinueStory/ExtractAndMergeKeywords pipeline runs at a time.
type Store struct {
	path   string
	gen    Generator
	models ModelSource
}

// NewStore creates a store persisting to path and generating through gen.
func NewStore(path string, gen Generator, models ModelSource) *Store {
	return &Store{path: path, gen: gen, models: models}
}

// Load returns the current persisted state.
func (s *Store) Load() (*GameState, error) {
	return loadState(s.path)
}

// Progress returns the current narrative log.
func (s *Store) Progress() (string, error) {
	state, err := loadState(s.path)
	if err != nil {
		return "", err
	}
	return state.Progress, nil
}

// ContinueStory advances the narrative with one player action and returns
// the new segment. The continuation window (full base size) feeds the
// generator; the spotting window (half base size) plus the player input
// selects which keyword entries ride along, bounding prompt size.
func (s *Store) ContinueStory(ctx context.Context, userInput, actingUser string) (string, error) {
	state, err := loadState(s.path)
	if err != nil {
		return "", err
	}

	continuationWindow := tailRunes(state.Progress, int(float64(state.TextWindowSize)*continuationCoeff))
	spottingWindow := tailRunes(state.Progress, int(float64(state.TextWindowSize)*spottingCoeff))

	graph := keyword.BuildGraph(state.Keywords)
	spotted, err := keyword.Spot(spottingWindow+" "+userInput, state.Keywords, state.WordSearchDepth, graph)
	if err != nil {
		return "", fmt.Errorf("keyword spotting failed: %w", err)
	}
	relevant := keyword.Filter(state.Keywords, spotted)

	segment, err := s.gen.ContinueStory(ctx, continuationWindow, state.OverallContext,
		actingUser, userInput, relevant, s.models().StoryContinuation)
	if err != nil {
		return "", err
	}

	// Single append; nothing before it is ever rewritten.
	state.Progress += " " + segment

	if err := saveState(s.path, state); err != nil {
		return "", err
	}

	logger.Info("Story advanced by %s (%d spotted keywords, progress now %d chars)",
		actingUser, len(relevant), len(state.Progress))

	return segment, nil
}

// ExtractAndMergeKeywords asks the generator for dictionary updates based on
// a freshly generated segment and merges them in: new keys are added,
// existing descriptions overwritten. A failed call or unparseable response
// leaves the dictionary untouched and is not an error; the action pipeline
// carries on either way.
func (s *Store) ExtractAndMergeKeywords(ctx context.Context, segment string) error {
	state, err := loadState(s.path)
	if err != nil {
		return err
	}

	graph := keyword.BuildGraph(state.Keywords)
	// Fixed depth 2 here regardless of the configured search depth: the
	// segment is short and one hop of neighbors is enough context for the
	// updater.
	spotted, err := keyword.Spot(segment, state.Keywords, 2, graph)
	if err != nil {
		return fmt.Errorf("keyword spotting failed: %w", err)
	}
	relevant := keyword.Filter(state.Keywords, spotted)

	updated, err := s.gen.ExtractKeywords(ctx, relevant, segment, s.models().KeywordExtraction)
	if err != nil {
		logger.Warn("Keyword extraction skipped: %v", err)
		return nil
	}

	for key, desc := range updated {
		state.Keywords[key] = desc
	}

	if err := saveState(s.path, state); err != nil {
		return err
	}

	logger.Info("Keyword dictionary updated (%d entries merged, %d total)",
		len(updated), len(state.Keywords))

	return nil
}
