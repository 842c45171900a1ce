package tetris

import (
	"fmt"
	"time"

	"github.com/vovakirdan/blockfall/internal/core"
)

// State is the lifecycle phase of a game.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateGameOver
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// kickOffsets are the horizontal offsets tried, in order, when rotating with
// wall kicks enabled. Without kicks only the first is tried.
var kickOffsets = []int{0, -1, 1, -2, 2}

// Config holds the immutable rules of one game.
type Config struct {
	Width      int
	Height     int
	Spawn      SpawnPolicy
	WallKicks  bool
	StartLevel int
	Preview    int // number of upcoming kinds exposed in snapshots
	Scoring    ScoringPolicy
}

// DefaultConfig returns the standard 10x20 marathon rules.
func DefaultConfig() Config {
	return Config{
		Width:     10,
		Height:    20,
		Spawn:     SpawnBag,
		WallKicks: true,
		Preview:   1,
		Scoring:   MarathonScoring(),
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: board size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if !c.Spawn.Valid() {
		return fmt.Errorf("%w: unknown spawn policy %q", ErrInvalidConfig, c.Spawn)
	}
	if c.StartLevel < 0 {
		return fmt.Errorf("%w: start level must not be negative", ErrInvalidConfig)
	}
	if c.Preview < 1 {
		return fmt.Errorf("%w: preview must be at least 1", ErrInvalidConfig)
	}
	return c.Scoring.Validate()
}

// Game is the rules engine state machine. It is not safe for concurrent use;
// drivers that share a game serialize access (see the session package).
type Game struct {
	cfg     Config
	rng     Rand
	board   *Board
	spawner *Spawner
	active  *Piece
	state   State

	score  int
	level  int
	lines  int
	pieces int
}

// New creates an idle game. rng drives the spawner for every game started
// from this instance until Reseed replaces it.
func New(cfg Config, rng Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	board, err := NewBoard(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	return &Game{
		cfg:   cfg,
		rng:   rng,
		board: board,
		level: cfg.StartLevel,
	}, nil
}

// Reseed replaces the random source used by the next StartNewGame.
func (g *Game) Reseed(rng Rand) {
	if rng != nil {
		g.rng = rng
	}
}

// Config returns the rules the game was created with.
func (g *Game) Config() Config { return g.cfg }

// State returns the lifecycle phase.
func (g *Game) State() State { return g.state }

// Score returns the accumulated score.
func (g *Game) Score() int { return g.score }

// Level returns the current level.
func (g *Game) Level() int { return g.level }

// Lines returns the total cleared lines.
func (g *Game) Lines() int { return g.lines }

// Pieces returns the number of pieces spawned in the current game.
func (g *Game) Pieces() int { return g.pieces }

// IsOver reports whether the game has ended.
func (g *Game) IsOver() bool { return g.state == StateGameOver }

// Active returns the falling piece, if any.
func (g *Game) Active() (Piece, bool) {
	if g.active == nil {
		return Piece{}, false
	}
	return *g.active, true
}

// FallInterval returns the gravity period for the current level.
func (g *Game) FallInterval() time.Duration {
	return g.cfg.Scoring.FallInterval(g.level)
}

// StartNewGame clears the board, resets counters, re-initializes the spawner
// and spawns the first piece. It is valid from any state.
func (g *Game) StartNewGame() Report {
	r := Report{Action: core.ActionRestart, Accepted: true, Started: true, BoardChanged: g.board.FilledCount() > 0}

	g.board.Reset()
	g.score = 0
	g.lines = 0
	g.pieces = 0
	g.level = g.cfg.StartLevel
	g.active = nil

	spawner, err := NewSpawner(g.cfg.Spawn, g.rng)
	if err != nil {
		// policy and rng were validated in New
		panic(err)
	}
	g.spawner = spawner
	g.state = StateRunning
	g.spawnNext(&r)
	return r
}

// Apply dispatches a semantic action. ActionPause toggles pause and
// ActionRestart starts a new game; ActionNone and ActionQuit are ignored.
func (g *Game) Apply(a core.Action) Report {
	switch a {
	case core.ActionLeft:
		return g.MoveLeft()
	case core.ActionRight:
		return g.MoveRight()
	case core.ActionRotate:
		return g.Rotate()
	case core.ActionSoftDrop:
		return g.SoftDrop()
	case core.ActionHardDrop:
		return g.HardDrop()
	case core.ActionTick:
		return g.Tick()
	case core.ActionPause:
		return g.TogglePause()
	case core.ActionRestart:
		return g.StartNewGame()
	default:
		return Report{Action: a}
	}
}

// MoveLeft shifts the active piece one column left if the target is free.
func (g *Game) MoveLeft() Report {
	return g.shift(core.ActionLeft, -1)
}

// MoveRight shifts the active piece one column right if the target is free.
func (g *Game) MoveRight() Report {
	return g.shift(core.ActionRight, 1)
}

func (g *Game) shift(a core.Action, dx int) Report {
	r := Report{Action: a}
	if !g.running() {
		return r
	}
	next := g.active.Moved(dx, 0)
	if !g.board.CanPlace(next.Cells()) {
		return r
	}
	*g.active = next
	r.Accepted = true
	r.Moved = true
	return r
}

// Rotate turns the active piece clockwise. With wall kicks enabled the
// horizontal offsets 0, -1, +1, -2, +2 are tried in order; the first that
// fits is applied. If none fits the piece is unchanged.
func (g *Game) Rotate() Report {
	r := Report{Action: core.ActionRotate}
	if !g.running() || RotationCount(g.active.Kind) == 1 {
		return r
	}
	offsets := kickOffsets[:1]
	if g.cfg.WallKicks {
		offsets = kickOffsets
	}
	turned := g.active.Rotated()
	for _, dx := range offsets {
		candidate := turned.Moved(dx, 0)
		if g.board.CanPlace(candidate.Cells()) {
			*g.active = candidate
			r.Accepted = true
			r.Rotated = true
			r.Moved = dx != 0
			return r
		}
	}
	return r
}

// SoftDrop moves the piece down one row, awarding soft-drop points, or locks
// it when it rests on something.
func (g *Game) SoftDrop() Report {
	return g.fall(core.ActionSoftDrop, g.cfg.Scoring.SoftDropPoints)
}

// Tick applies one step of gravity. It behaves like SoftDrop without the
// bonus.
func (g *Game) Tick() Report {
	return g.fall(core.ActionTick, 0)
}

func (g *Game) fall(a core.Action, bonus int) Report {
	r := Report{Action: a}
	if !g.running() {
		return r
	}
	r.Accepted = true
	next := g.active.Moved(0, 1)
	if g.board.CanPlace(next.Cells()) {
		*g.active = next
		r.Moved = true
		r.Dropped = 1
		g.addScore(&r, bonus)
		return r
	}
	g.lockActive(&r)
	return r
}

// HardDrop moves the piece straight down as far as it fits, awards
// hard-drop points per row and locks it immediately.
func (g *Game) HardDrop() Report {
	r := Report{Action: core.ActionHardDrop}
	if !g.running() {
		return r
	}
	r.Accepted = true
	for {
		next := g.active.Moved(0, 1)
		if !g.board.CanPlace(next.Cells()) {
			break
		}
		*g.active = next
		r.Dropped++
	}
	r.Moved = r.Dropped > 0
	g.addScore(&r, r.Dropped*g.cfg.Scoring.HardDropPoints)
	g.lockActive(&r)
	return r
}

// Pause suspends a running game.
func (g *Game) Pause() Report {
	r := Report{Action: core.ActionPause}
	if g.state != StateRunning {
		return r
	}
	g.state = StatePaused
	r.Accepted = true
	r.PauseToggled = true
	return r
}

// Resume continues a paused game.
func (g *Game) Resume() Report {
	r := Report{Action: core.ActionPause}
	if g.state != StatePaused {
		return r
	}
	g.state = StateRunning
	r.Accepted = true
	r.PauseToggled = true
	return r
}

// TogglePause pauses a running game or resumes a paused one.
func (g *Game) TogglePause() Report {
	if g.state == StatePaused {
		return g.Resume()
	}
	return g.Pause()
}

// Ghost returns the cells the active piece would occupy after a hard drop.
func (g *Game) Ghost() []core.Point {
	if g.active == nil {
		return nil
	}
	p := *g.active
	for {
		next := p.Moved(0, 1)
		if !g.board.CanPlace(next.Cells()) {
			return p.Cells()
		}
		p = next
	}
}

func (g *Game) running() bool {
	return g.state == StateRunning && g.active != nil
}

func (g *Game) addScore(r *Report, points int) {
	if points <= 0 {
		return
	}
	g.score += points
	r.ScoreDelta += points
}

// lockActive merges the piece, clears full rows, updates score and level,
// then spawns the next piece.
func (g *Game) lockActive(r *Report) {
	g.board.Lock(g.active.Cells(), g.active.Kind)
	g.active = nil
	r.Locked = true
	r.BoardChanged = true

	if rows := g.board.FullRows(); len(rows) > 0 {
		g.board.ClearRows(rows)
		r.ClearedRows = rows
		r.LinesCleared = len(rows)
		g.addScore(r, g.cfg.Scoring.ScoreFor(len(rows), g.level))
		g.lines += len(rows)
		if lvl := g.cfg.Scoring.LevelFor(g.cfg.StartLevel, g.lines); lvl != g.level {
			g.level = lvl
			r.LevelChanged = true
		}
	}

	g.spawnNext(r)
}

// spawnNext places the next kind at the spawn point, or ends the game when
// that position is blocked.
func (g *Game) spawnNext(r *Report) {
	p := Piece{Kind: g.spawner.Spawn(), Pos: g.spawnPoint()}
	g.pieces++
	if !g.board.CanPlace(p.Cells()) {
		g.active = nil
		g.state = StateGameOver
		r.GameOverEntered = true
		return
	}
	g.active = &p
	r.Spawned = true
}

// spawnPoint centers the 4-wide bounding box horizontally at the top row.
func (g *Game) spawnPoint() core.Point {
	return core.Pt((g.cfg.Width-4)/2, 0)
}
