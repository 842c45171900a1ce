package agent

import (
	"errors"
	"math/rand"

	"github.com/vovakirdan/blockfall/internal/config"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

// ErrEpisodeOver is returned by Step after the episode terminated or was
// truncated; call Reset to begin a new one.
var ErrEpisodeOver = errors.New("agent: episode is over")

// Options shapes rewards and observations.
type Options struct {
	ScoreWeight     float64
	StepPenalty     float64
	GameOverPenalty float64
	MaxSteps        int
	GravityEvery    int
	BinaryBoard     bool
	IncludeActive   bool
}

// OptionsFromConfig converts the YAML agent section.
func OptionsFromConfig(c config.AgentConfig) Options {
	return Options{
		ScoreWeight:     c.ScoreWeight,
		StepPenalty:     c.StepPenalty,
		GameOverPenalty: c.GameOverPenalty,
		MaxSteps:        c.MaxSteps,
		GravityEvery:    c.GravityEvery,
		BinaryBoard:     c.BinaryBoard,
		IncludeActive:   c.IncludeActive,
	}
}

// StepResult is the outcome of one Step.
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Terminated  bool        `json:"terminated"`
	Truncated   bool        `json:"truncated"`
	Info        Info        `json:"info"`
}

// Env is a single-agent environment around one game. It is not safe for
// concurrent use.
type Env struct {
	rules config.Rules
	opts  Options
	game  *tetris.Game
	seed  int64
	steps int
	over  bool
}

// NewEnv validates the rules and starts the first episode with seed.
func NewEnv(rules config.Rules, seed int64) (*Env, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	game, err := tetris.New(rules.ToEngine(), rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	e := &Env{
		rules: rules,
		opts:  OptionsFromConfig(rules.Agent),
		game:  game,
	}
	e.Reset(seed)
	return e, nil
}

// Reset starts a new episode whose piece sequence is determined by seed.
func (e *Env) Reset(seed int64) (Observation, Info) {
	e.seed = seed
	e.steps = 0
	e.over = false
	e.game.Reseed(rand.New(rand.NewSource(seed)))
	e.game.StartNewGame()
	if e.game.IsOver() {
		e.over = true
	}
	return e.Observation(), e.info(0)
}

// Step applies one action. Out-of-range actions are rejected without
// touching the game.
func (e *Env) Step(a Action) (StepResult, error) {
	if _, err := ParseAction(int(a)); err != nil {
		return StepResult{}, err
	}
	if e.over {
		return StepResult{}, ErrEpisodeOver
	}

	e.steps++
	delta, cleared := 0, 0
	if a != ActionNoop {
		rep := e.game.Apply(a.Core())
		delta += rep.ScoreDelta
		cleared += rep.LinesCleared
	}
	if e.opts.GravityEvery > 0 && e.steps%e.opts.GravityEvery == 0 && !e.game.IsOver() {
		rep := e.game.Tick()
		delta += rep.ScoreDelta
		cleared += rep.LinesCleared
	}

	res := StepResult{
		Terminated: e.game.IsOver(),
		Reward:     float64(delta)*e.opts.ScoreWeight + e.opts.StepPenalty,
	}
	if res.Terminated {
		res.Reward += e.opts.GameOverPenalty
	} else if e.opts.MaxSteps > 0 && e.steps >= e.opts.MaxSteps {
		res.Truncated = true
	}
	e.over = res.Terminated || res.Truncated

	res.Observation = e.Observation()
	res.Info = e.info(cleared)
	return res, nil
}

// Observation returns the current observation.
func (e *Env) Observation() Observation {
	snap, err := e.game.Snapshot()
	if err != nil {
		// Reset always starts a game, so the engine is never idle here.
		panic(err)
	}
	return Encode(snap, e.opts.BinaryBoard, e.opts.IncludeActive)
}

// Snapshot returns the underlying engine view, including the ghost piece.
func (e *Env) Snapshot() (tetris.Snapshot, error) {
	return e.game.Snapshot()
}

// Info returns the bookkeeping for the current state.
func (e *Env) Info() Info {
	return e.info(0)
}

// Spaces describes the action and observation shapes.
func (e *Env) Spaces() Spaces {
	names := make([]string, NumActions)
	for i := range names {
		names[i] = Action(i).String()
	}
	cellMax := tetris.KindCount
	if e.opts.BinaryBoard {
		cellMax = 1
	}
	return Spaces{
		Actions:     NumActions,
		ActionNames: names,
		Shape:       [2]int{e.rules.Board.Height, e.rules.Board.Width},
		CellMax:     cellMax,
	}
}

// Seed returns the seed of the current episode.
func (e *Env) Seed() int64 { return e.seed }

// Steps returns the number of steps taken in the current episode.
func (e *Env) Steps() int { return e.steps }

// Done reports whether the current episode has ended.
func (e *Env) Done() bool { return e.over }

// Rules returns the rules the environment was built from.
func (e *Env) Rules() config.Rules { return e.rules }

func (e *Env) info(cleared int) Info {
	return Info{
		Score:   e.game.Score(),
		Level:   e.game.Level(),
		Lines:   e.game.Lines(),
		Cleared: cleared,
		Steps:   e.steps,
		Pieces:  e.game.Pieces(),
		Lost:    e.game.IsOver(),
		Width:   e.rules.Board.Width,
		Height:  e.rules.Board.Height,
	}
}
