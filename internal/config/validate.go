package config

import (
	"fmt"

	"github.com/vovakirdan/blockfall/internal/tetris"
)

// ValidationError reports a single invalid rules field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match validation failures with tetris.ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return tetris.ErrInvalidConfig
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks every field and returns the first problem found.
func (r Rules) Validate() error {
	if r.Board.Width <= 0 {
		return invalid("board.width", "must be positive, got %d", r.Board.Width)
	}
	if r.Board.Height <= 0 {
		return invalid("board.height", "must be positive, got %d", r.Board.Height)
	}
	if !tetris.SpawnPolicy(r.Spawner.Policy).Valid() {
		return invalid("spawner.policy", "must be bag or random, got %q", r.Spawner.Policy)
	}
	if r.Spawner.Preview < 1 {
		return invalid("spawner.preview", "must be at least 1, got %d", r.Spawner.Preview)
	}
	if r.Gravity.MinIntervalMS <= 0 {
		return invalid("gravity.min_interval_ms", "must be positive, got %d", r.Gravity.MinIntervalMS)
	}
	if r.Difficulty.StartLevel < 0 {
		return invalid("difficulty.start_level", "must not be negative, got %d", r.Difficulty.StartLevel)
	}
	switch r.Difficulty.Progression.Type {
	case "lines", "none":
	default:
		return invalid("difficulty.progression.type", "must be lines or none, got %q", r.Difficulty.Progression.Type)
	}
	if r.Difficulty.Progression.LinesPerLevel <= 0 {
		return invalid("difficulty.progression.lines_per_level", "must be positive, got %d", r.Difficulty.Progression.LinesPerLevel)
	}
	if r.Difficulty.Progression.MaxLevel < 0 {
		return invalid("difficulty.progression.max_level", "must not be negative, got %d", r.Difficulty.Progression.MaxLevel)
	}
	if r.Agent.MaxSteps < 0 {
		return invalid("agent.max_steps", "must not be negative, got %d", r.Agent.MaxSteps)
	}
	if r.Agent.GravityEvery < 0 {
		return invalid("agent.gravity_every", "must not be negative, got %d", r.Agent.GravityEvery)
	}

	// The point table rules live with the engine.
	if err := r.ToEngine().Scoring.Validate(); err != nil {
		return &ValidationError{Field: "scoring", Message: err.Error()}
	}
	return nil
}
