package tetris

import "errors"

var (
	// ErrNotStarted is returned when the game state is queried before the
	// first game has been started.
	ErrNotStarted = errors.New("tetris: no game started")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("tetris: invalid config")
)
