package tetris

import (
	"fmt"
	"math"
	"time"
)

// ScoringPolicy holds the point table, level progression and gravity curve.
type ScoringPolicy struct {
	// LinePoints[n] is the base award for clearing n lines at once. The award
	// is multiplied by level+1. Index 0 must be zero.
	LinePoints []int
	// SoftDropPoints is awarded per row of a player-initiated soft drop.
	SoftDropPoints int
	// HardDropPoints is awarded per row a hard drop descends.
	HardDropPoints int
	// LinesPerLevel is how many cleared lines raise the level by one.
	LinesPerLevel int
	// MaxLevel caps progression; zero means uncapped.
	MaxLevel int
	// Fixed disables level progression entirely.
	Fixed bool
	// MinInterval is the gravity floor.
	MinInterval time.Duration
}

// gravityCurveLevels is where the guideline curve stops changing noticeably.
const gravityCurveLevels = 20

// MarathonScoring returns the guideline point table.
func MarathonScoring() ScoringPolicy {
	return ScoringPolicy{
		LinePoints:     []int{0, 100, 300, 500, 800},
		SoftDropPoints: 1,
		HardDropPoints: 2,
		LinesPerLevel:  10,
		MinInterval:    50 * time.Millisecond,
	}
}

// ClassicScoring returns the older 40/100/300/1200 table.
func ClassicScoring() ScoringPolicy {
	return ScoringPolicy{
		LinePoints:     []int{0, 40, 100, 300, 1200},
		SoftDropPoints: 1,
		HardDropPoints: 2,
		LinesPerLevel:  10,
		MinInterval:    50 * time.Millisecond,
	}
}

// Validate checks the table is usable: clearing nothing is worth nothing and
// the per-line award strictly grows with the number of lines cleared at once.
func (p ScoringPolicy) Validate() error {
	if len(p.LinePoints) < 5 {
		return fmt.Errorf("%w: line points need entries for 0..4 lines, got %d", ErrInvalidConfig, len(p.LinePoints))
	}
	if p.LinePoints[0] != 0 {
		return fmt.Errorf("%w: clearing zero lines must score 0, got %d", ErrInvalidConfig, p.LinePoints[0])
	}
	if p.LinePoints[1] <= 0 {
		return fmt.Errorf("%w: single line must score more than 0", ErrInvalidConfig)
	}
	for n := 2; n < len(p.LinePoints); n++ {
		// points[n]/n > points[n-1]/(n-1), kept in integers
		if p.LinePoints[n]*(n-1) <= p.LinePoints[n-1]*n {
			return fmt.Errorf("%w: clearing %d lines must pay more per line than %d", ErrInvalidConfig, n, n-1)
		}
	}
	if p.SoftDropPoints < 0 || p.HardDropPoints < 0 {
		return fmt.Errorf("%w: drop points must not be negative", ErrInvalidConfig)
	}
	if p.LinesPerLevel <= 0 {
		return fmt.Errorf("%w: lines per level must be positive", ErrInvalidConfig)
	}
	if p.MaxLevel < 0 {
		return fmt.Errorf("%w: max level must not be negative", ErrInvalidConfig)
	}
	if p.MinInterval <= 0 {
		return fmt.Errorf("%w: gravity floor must be positive", ErrInvalidConfig)
	}
	return nil
}

// ScoreFor returns the award for clearing lines at the given level.
func (p ScoringPolicy) ScoreFor(lines, level int) int {
	if lines <= 0 {
		return 0
	}
	if lines >= len(p.LinePoints) {
		lines = len(p.LinePoints) - 1
	}
	return p.LinePoints[lines] * (level + 1)
}

// LevelFor returns the level reached after totalLines cleared lines when the
// game started at startLevel.
func (p ScoringPolicy) LevelFor(startLevel, totalLines int) int {
	if p.Fixed || p.LinesPerLevel <= 0 {
		return startLevel
	}
	level := startLevel + totalLines/p.LinesPerLevel
	if p.MaxLevel > 0 && level > p.MaxLevel {
		level = max(p.MaxLevel, startLevel)
	}
	return level
}

// FallInterval returns the gravity period at a level. It follows the
// guideline curve (0.8 - L*0.007)^L seconds, never increases with level and
// never drops below MinInterval.
func (p ScoringPolicy) FallInterval(level int) time.Duration {
	l := float64(min(max(level, 0), gravityCurveLevels))
	secs := math.Pow(0.8-l*0.007, l)
	d := time.Duration(secs * float64(time.Second))
	if d < p.MinInterval {
		return p.MinInterval
	}
	return d
}
