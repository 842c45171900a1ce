package tetris

import "github.com/vovakirdan/blockfall/internal/core"

// Report describes the outcome of a single command. A zero Report means the
// command was ignored.
type Report struct {
	Action core.Action

	// Accepted is set when the command changed any game state.
	Accepted bool
	// Moved is set when the active piece changed position.
	Moved bool
	// Rotated is set when the active piece changed rotation state.
	Rotated bool
	// Dropped is the number of rows the piece descended during the command.
	Dropped int

	// Locked is set when the active piece was merged into the board.
	Locked bool
	// BoardChanged is set when any locked cell changed.
	BoardChanged bool
	// LinesCleared is the number of rows removed by this command.
	LinesCleared int
	// ClearedRows holds the indices of removed rows, measured before removal.
	ClearedRows []int

	// ScoreDelta is the total score added, including drop bonuses.
	ScoreDelta int
	// LevelChanged is set when the level advanced.
	LevelChanged bool

	// Spawned is set when a new active piece entered the board.
	Spawned bool
	// GameOverEntered is set on the transition into the game-over state.
	GameOverEntered bool
	// Started is set when a new game began.
	Started bool
	// PauseToggled is set when the command paused or resumed the game.
	PauseToggled bool
}
