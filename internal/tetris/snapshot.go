package tetris

import (
	"strings"

	"github.com/vovakirdan/blockfall/internal/core"
)

// PieceView is the read-only description of the active piece.
type PieceView struct {
	Kind     Kind
	Rotation int
	Pos      core.Point
	Cells    []core.Point
}

// Snapshot is an immutable view of the game for rendering and observation.
// It shares no memory with the game.
type Snapshot struct {
	Width  int
	Height int
	// Cells is the row-major grid of locked cells.
	Cells  []Kind
	Active *PieceView
	Ghost  []core.Point
	Next   Kind
	// Preview lists upcoming kinds, Next first.
	Preview []Kind

	Score  int
	Level  int
	Lines  int
	Pieces int
	State  State
}

// Snapshot returns the current view. It fails with ErrNotStarted while the
// game is idle.
func (g *Game) Snapshot() (Snapshot, error) {
	if g.state == StateIdle {
		return Snapshot{}, ErrNotStarted
	}
	preview := g.spawner.Preview(g.cfg.Preview)
	s := Snapshot{
		Width:   g.board.Width(),
		Height:  g.board.Height(),
		Cells:   g.board.Cells(),
		Next:    preview[0],
		Preview: preview,
		Score:   g.score,
		Level:   g.level,
		Lines:   g.lines,
		Pieces:  g.pieces,
		State:   g.state,
	}
	if g.active != nil {
		s.Active = &PieceView{
			Kind:     g.active.Kind,
			Rotation: g.active.Rotation,
			Pos:      g.active.Pos,
			Cells:    g.active.Cells(),
		}
		s.Ghost = g.Ghost()
	}
	return s, nil
}

// At returns the locked tag at (x, y), or KindNone outside the grid.
func (s Snapshot) At(x, y int) Kind {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return KindNone
	}
	return s.Cells[y*s.Width+x]
}

// Paused reports whether the snapshot was taken while paused.
func (s Snapshot) Paused() bool { return s.State == StatePaused }

// GameOver reports whether the snapshot was taken after the game ended.
func (s Snapshot) GameOver() bool { return s.State == StateGameOver }

// String renders the grid: locked and active cells show their kind letter,
// ghost cells ':' and empty cells '.'.
func (s Snapshot) String() string {
	grid := make([]byte, s.Width*s.Height)
	for i, k := range s.Cells {
		if k == KindNone {
			grid[i] = '.'
		} else {
			grid[i] = k.String()[0]
		}
	}
	if s.Active != nil {
		for _, c := range s.Ghost {
			if grid[c.Y*s.Width+c.X] == '.' {
				grid[c.Y*s.Width+c.X] = ':'
			}
		}
		letter := s.Active.Kind.String()[0]
		for _, c := range s.Active.Cells {
			grid[c.Y*s.Width+c.X] = letter
		}
	}

	var sb strings.Builder
	for y := 0; y < s.Height; y++ {
		sb.Write(grid[y*s.Width : (y+1)*s.Width])
		if y < s.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
