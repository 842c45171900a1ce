package agent

import (
	"context"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

// Weights scores a resting board. Higher totals are better.
type Weights struct {
	AggregateHeight float64
	Lines           float64
	Holes           float64
	Bumpiness       float64
}

// DefaultWeights are the widely used hand-tuned placement weights.
func DefaultWeights() Weights {
	return Weights{
		AggregateHeight: -0.510066,
		Lines:           0.760666,
		Holes:           -0.35663,
		Bumpiness:       -0.184483,
	}
}

type placement struct {
	rotation int
	x        int
}

// HeuristicPolicy evaluates every reachable rotation and column for the
// falling piece and steers it toward the best one: rotate first, then shift,
// then hard drop. It re-plans from each observation, so it is stateless
// apart from a guard against commands that stop having an effect.
type HeuristicPolicy struct {
	weights Weights

	last       Observation
	lastAction Action
	stuck      int
}

// NewHeuristicPolicy creates a policy with the given weights.
func NewHeuristicPolicy(w Weights) *HeuristicPolicy {
	return &HeuristicPolicy{weights: w}
}

// Act implements Policy.
func (p *HeuristicPolicy) Act(_ context.Context, obs Observation) (Action, error) {
	kind := tetris.Kind(obs.ActiveKind)
	if !kind.Valid() {
		return ActionNoop, nil
	}

	// A move that left the observation unchanged is blocked; give up on the
	// plan and drop where the piece is.
	if p.lastAction != ActionNoop && sameState(p.last, obs) {
		p.stuck++
	} else {
		p.stuck = 0
	}
	p.last = obs

	action := ActionHardDrop
	if p.stuck == 0 {
		if target, ok := p.plan(obs, kind); ok {
			action = steer(obs, target)
		}
	}
	p.lastAction = action
	return action, nil
}

func steer(obs Observation, target placement) Action {
	switch {
	case obs.Rotation != target.rotation:
		return ActionRotate
	case obs.X < target.x:
		return ActionRight
	case obs.X > target.x:
		return ActionLeft
	default:
		return ActionHardDrop
	}
}

// plan returns the best placement, or false when the piece cannot be placed
// anywhere from its current row.
func (p *HeuristicPolicy) plan(obs Observation, kind tetris.Kind) (placement, bool) {
	board, err := boardFromObservation(obs)
	if err != nil {
		return placement{}, false
	}

	best, found := placement{}, false
	bestScore := 0.0
	for rot := 0; rot < tetris.RotationCount(kind); rot++ {
		for x := -3; x < obs.Width; x++ {
			piece := tetris.Piece{Kind: kind, Rotation: rot, Pos: core.Pt(x, obs.Y)}
			if !board.CanPlace(piece.Cells()) {
				continue
			}
			for board.CanPlace(piece.Moved(0, 1).Cells()) {
				piece = piece.Moved(0, 1)
			}
			score := p.evaluate(board, piece)
			if !found || score > bestScore {
				best, bestScore, found = placement{rotation: rot, x: x}, score, true
			}
		}
	}
	return best, found
}

func (p *HeuristicPolicy) evaluate(board *tetris.Board, piece tetris.Piece) float64 {
	b := board.Clone()
	b.Lock(piece.Cells(), piece.Kind)
	lines := b.ClearRows(b.FullRows())

	heights := b.ColumnHeights()
	aggregate, bumpiness := 0, 0
	for i, h := range heights {
		aggregate += h
		if i > 0 {
			bumpiness += abs(h - heights[i-1])
		}
	}
	return p.weights.AggregateHeight*float64(aggregate) +
		p.weights.Lines*float64(lines) +
		p.weights.Holes*float64(b.Holes()) +
		p.weights.Bumpiness*float64(bumpiness)
}

// boardFromObservation rebuilds the locked cells. Observations that overlay
// the active piece must not be used here; the env keeps them separate by
// default.
func boardFromObservation(obs Observation) (*tetris.Board, error) {
	board, err := tetris.NewBoard(obs.Width, obs.Height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < obs.Height; y++ {
		for x := 0; x < obs.Width; x++ {
			if obs.At(x, y) != 0 {
				board.Lock([]core.Point{core.Pt(x, y)}, tetris.KindO)
			}
		}
	}
	return board, nil
}

func sameState(a, b Observation) bool {
	if a.ActiveKind != b.ActiveKind || a.Rotation != b.Rotation || a.X != b.X || a.Y != b.Y {
		return false
	}
	if len(a.Board) != len(b.Board) {
		return false
	}
	for i := range a.Board {
		if a.Board[i] != b.Board[i] {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
