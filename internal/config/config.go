// Package config provides YAML-based rules loading, validation and
// difficulty presets for the engine and its drivers.
package config

import (
	"time"

	"github.com/vovakirdan/blockfall/internal/tetris"
)

// Rules contains everything needed to build a game and an agent environment.
type Rules struct {
	Board      BoardConfig      `yaml:"board"`
	Spawner    SpawnerConfig    `yaml:"spawner"`
	Rotation   RotationConfig   `yaml:"rotation"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Gravity    GravityConfig    `yaml:"gravity"`
	Difficulty DifficultyConfig `yaml:"difficulty"`
	Agent      AgentConfig      `yaml:"agent"`
}

// BoardConfig defines the playfield size in cells.
type BoardConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// SpawnerConfig defines piece sequencing.
type SpawnerConfig struct {
	Policy  string `yaml:"policy"`  // "bag" or "random"
	Preview int    `yaml:"preview"` // upcoming pieces shown
}

// RotationConfig defines rotation behavior.
type RotationConfig struct {
	WallKicks bool `yaml:"wall_kicks"`
}

// ScoringConfig defines the point table.
type ScoringConfig struct {
	LinePoints []int `yaml:"line_points"` // indexed by lines cleared, 0..4
	SoftDrop   int   `yaml:"soft_drop"`   // points per soft-dropped row
	HardDrop   int   `yaml:"hard_drop"`   // points per hard-dropped row
}

// GravityConfig defines the fall speed floor.
type GravityConfig struct {
	MinIntervalMS int `yaml:"min_interval_ms"`
}

// DifficultyConfig defines the level progression system.
type DifficultyConfig struct {
	Enabled     bool              `yaml:"enabled"`
	StartLevel  int               `yaml:"start_level"`
	Progression ProgressionConfig `yaml:"progression"`
}

// ProgressionConfig defines how the level increases.
type ProgressionConfig struct {
	Type          string `yaml:"type"` // "lines" or "none"
	LinesPerLevel int    `yaml:"lines_per_level"`
	MaxLevel      int    `yaml:"max_level"` // 0 = uncapped
}

// AgentConfig defines observation encoding and reward shaping for automated
// agents.
type AgentConfig struct {
	ScoreWeight     float64 `yaml:"score_weight"`
	StepPenalty     float64 `yaml:"step_penalty"`
	GameOverPenalty float64 `yaml:"game_over_penalty"`
	MaxSteps        int     `yaml:"max_steps"`     // 0 = never truncate
	GravityEvery    int     `yaml:"gravity_every"` // 0 = no automatic ticks
	BinaryBoard     bool    `yaml:"binary_board"`
	IncludeActive   bool    `yaml:"include_active"`
}

// ProgressionEnabled reports whether the level advances with cleared lines.
func (r Rules) ProgressionEnabled() bool {
	return r.Difficulty.Enabled && r.Difficulty.Progression.Type != "none"
}

// ToEngine converts the rules into an engine configuration. Call Validate
// first; ToEngine does not check values.
func (r Rules) ToEngine() tetris.Config {
	points := make([]int, len(r.Scoring.LinePoints))
	copy(points, r.Scoring.LinePoints)

	return tetris.Config{
		Width:      r.Board.Width,
		Height:     r.Board.Height,
		Spawn:      tetris.SpawnPolicy(r.Spawner.Policy),
		WallKicks:  r.Rotation.WallKicks,
		StartLevel: r.Difficulty.StartLevel,
		Preview:    r.Spawner.Preview,
		Scoring: tetris.ScoringPolicy{
			LinePoints:     points,
			SoftDropPoints: r.Scoring.SoftDrop,
			HardDropPoints: r.Scoring.HardDrop,
			LinesPerLevel:  r.Difficulty.Progression.LinesPerLevel,
			MaxLevel:       r.Difficulty.Progression.MaxLevel,
			Fixed:          !r.ProgressionEnabled(),
			MinInterval:    time.Duration(r.Gravity.MinIntervalMS) * time.Millisecond,
		},
	}
}
