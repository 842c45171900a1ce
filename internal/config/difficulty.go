package config

import "fmt"

// DifficultyPreset represents a named difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
	DifficultyFixed  DifficultyPreset = "fixed"
)

// Presets lists every preset in increasing difficulty.
var Presets = []DifficultyPreset{DifficultyEasy, DifficultyNormal, DifficultyHard, DifficultyFixed}

// ParsePreset validates a preset name. The empty string means normal.
func ParsePreset(s string) (DifficultyPreset, error) {
	if s == "" {
		return DifficultyNormal, nil
	}
	for _, p := range Presets {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: unknown difficulty %q (want easy, normal, hard or fixed)", s)
}

// StartLevelForPreset returns the starting level for a difficulty preset.
func StartLevelForPreset(preset DifficultyPreset) int {
	switch preset {
	case DifficultyEasy:
		return 0
	case DifficultyNormal:
		return 3
	case DifficultyHard:
		return 8
	default:
		return 0
	}
}

// IsFixedPreset returns true if the preset disables progression.
func IsFixedPreset(preset DifficultyPreset) bool {
	return preset == DifficultyFixed
}

// ApplyPreset modifies the rules based on a difficulty preset. The fixed
// preset keeps the configured start level and freezes it.
func ApplyPreset(r *Rules, preset DifficultyPreset) {
	if IsFixedPreset(preset) {
		r.Difficulty.Enabled = false
		return
	}
	r.Difficulty.Enabled = true
	r.Difficulty.StartLevel = StartLevelForPreset(preset)

	switch preset {
	case DifficultyEasy:
		r.Spawner.Preview = max(r.Spawner.Preview, 3)
		r.Rotation.WallKicks = true
	case DifficultyHard:
		r.Spawner.Preview = 1
	}
}
