package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/blockfall/internal/platform/tui"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Browse high scores",
	Long: `Open the high score board. Tab switches between variants.

Examples:
  blockfall scores
  blockfall scores --variant classic`,
	Args: cobra.NoArgs,
	Run:  runScores,
}

func runScores(cmd *cobra.Command, args []string) {
	if err := checkVariant(flagVariant); err != nil {
		exitf("%v", err)
	}
	store := openStore()
	defer store.Close()

	width, height := 80, 24 // Defaults
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}

	if err := tui.RunLeaderboard(store, flagVariant, width, height); err != nil {
		exitf("%v", err)
	}
}
