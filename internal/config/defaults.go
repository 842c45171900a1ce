package config

import (
	_ "embed"
)

//go:embed defaults/blockfall.yaml
var defaultRulesYAML []byte

// DefaultRules returns the marathon rules: 10x20 board, 7-bag, wall kicks,
// guideline point table.
func DefaultRules() Rules {
	return Rules{
		Board: BoardConfig{
			Width:  10,
			Height: 20,
		},
		Spawner: SpawnerConfig{
			Policy:  "bag",
			Preview: 3,
		},
		Rotation: RotationConfig{
			WallKicks: true,
		},
		Scoring: ScoringConfig{
			LinePoints: []int{0, 100, 300, 500, 800},
			SoftDrop:   1,
			HardDrop:   2,
		},
		Gravity: GravityConfig{
			MinIntervalMS: 50,
		},
		Difficulty: DifficultyConfig{
			Enabled:    true,
			StartLevel: 0,
			Progression: ProgressionConfig{
				Type:          "lines",
				LinesPerLevel: 10,
				MaxLevel:      0,
			},
		},
		Agent: AgentConfig{
			ScoreWeight:     1.0,
			StepPenalty:     -0.01,
			GameOverPenalty: -100,
			MaxSteps:        0,
			GravityEvery:    0,
			BinaryBoard:     false,
			IncludeActive:   false,
		},
	}
}

// DefaultYAML returns the embedded default rules file.
func DefaultYAML() []byte {
	return defaultRulesYAML
}
