package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/blockfall/internal/platform/tui"
	"github.com/vovakirdan/blockfall/internal/storage"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Start a game in the terminal.

Controls:
  Left/A, Right/D  - Move
  Up/W/X           - Rotate
  Down/S           - Soft drop
  Space            - Hard drop
  P/Esc            - Pause
  R                - Restart (after game over)
  Ctrl+S           - Save a text screenshot
  ?                - Toggle help
  Q/Ctrl+C         - Quit

Difficulty options:
  easy   - Start at level 0 with a long preview and wall kicks
  normal - Start at level 3
  hard   - Start at level 8 with a single-piece preview
  fixed  - No level progression, stays at the configured level

Examples:
  blockfall play
  blockfall play --variant classic
  blockfall play --difficulty hard --seed 42
  blockfall play --config ./my-rules.yaml`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) {
	logger := newLogger("play")
	rules, err := loadRules(flagVariant)
	if err != nil {
		exitf("%v", err)
	}

	rc := runtimeConfig()
	game, err := tetris.New(rules.ToEngine(), rand.New(rand.NewSource(rc.Seed)))
	if err != nil {
		exitf("creating game: %v", err)
	}

	needW, needH := tui.ScreenSize(rules.Board.Width, rules.Board.Height)
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil && (w < needW || h < needH+2) {
		fmt.Fprintf(os.Stderr, "Warning: terminal is %dx%d, the board needs at least %dx%d\n", w, h, needW, needH+2)
	}

	// Open episode storage
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open episode database: %v\n", err)
		// Continue without storage - game still works
		store = nil
	}

	runErr := tui.Run(game, tui.Options{
		Variant: flagVariant,
		Seed:    rc.Seed,
		Store:   store,
		Logger:  logger,
	})

	if store != nil {
		store.Close()
	}

	if runErr != nil {
		exitf("running game: %v", runErr)
	}
}
