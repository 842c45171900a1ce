package tui

import (
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/session"
	"github.com/vovakirdan/blockfall/internal/storage"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

func newTestRunner(t *testing.T, cfg tetris.Config) (*session.Runner, tetris.Snapshot) {
	t.Helper()
	game, err := tetris.New(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("tetris.New() failed: %v", err)
	}
	r := session.NewRunner(game, session.Options{EventBuffer: 16, Logger: log.New(io.Discard)})
	r.Start()
	t.Cleanup(r.Stop)

	ctx := context.Background()
	if _, err := r.Do(ctx, core.ActionRestart); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	snap, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() failed: %v", err)
	}
	return r, snap
}

// nextEvent runs the model's pending command and feeds the result back.
func nextEvent(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		next, c := m.Update(msg)
		return next.(Model), c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for runner event")
		return m, nil
	}
}

func TestModelAppliesKeysThroughRunner(t *testing.T) {
	r, snap := newTestRunner(t, tetris.DefaultConfig())
	m := NewModel(r, snap, Options{Variant: "marathon", Logger: log.New(io.Discard)})

	// drain the start event
	m, cmd := nextEvent(t, m, m.Init())
	x0 := m.snap.Active.Pos.X

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	m, _ = nextEvent(t, m, cmd)

	if m.snap.Active.Pos.X != x0-1 {
		t.Errorf("active piece at x=%d, want %d", m.snap.Active.Pos.X, x0-1)
	}
}

func TestModelRestartOnlyAfterGameOver(t *testing.T) {
	r, snap := newTestRunner(t, tetris.DefaultConfig())
	m := NewModel(r, snap, Options{Logger: log.New(io.Discard)})

	m.Update(runeKey('r'))

	got, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.Pieces != snap.Pieces {
		t.Errorf("restart during play changed the game: pieces %d -> %d", snap.Pieces, got.Pieces)
	}
}

func TestModelSavesFinishedGame(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	cfg := tetris.DefaultConfig()
	cfg.Width, cfg.Height = 6, 6
	r, snap := newTestRunner(t, cfg)
	m := NewModel(r, snap, Options{Variant: "small", Seed: 1, Store: store, Logger: log.New(io.Discard)})
	cmd := m.Init()

	for i := 0; i < 100 && m.snap.State != tetris.StateGameOver; i++ {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		m = next.(Model)
		m, cmd = nextEvent(t, m, cmd)
		for m.snap.State != tetris.StateGameOver && len(r.Events()) > 0 {
			m, cmd = nextEvent(t, m, cmd)
		}
	}
	if m.snap.State != tetris.StateGameOver {
		t.Fatal("game did not end")
	}
	if !m.saved {
		t.Error("finished game not marked saved")
	}

	if m.snap.Score > 0 {
		high, err := store.HighScore("small")
		if err != nil {
			t.Fatal(err)
		}
		if high != m.snap.Score {
			t.Errorf("HighScore() = %d, want %d", high, m.snap.Score)
		}
	}
}

func TestModelSavesGameOverWithoutFlag(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "scores.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	cfg := tetris.DefaultConfig()
	cfg.Width, cfg.Height = 6, 6
	r, snap := newTestRunner(t, cfg)
	m := NewModel(r, snap, Options{Variant: "small", Seed: 1, Store: store, Logger: log.New(io.Discard)})

	ctx := context.Background()
	for i := 0; i < 100 && snap.State != tetris.StateGameOver; i++ {
		if _, err := r.Do(ctx, core.ActionHardDrop); err != nil {
			t.Fatal(err)
		}
		if snap, err = r.Snapshot(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if snap.State != tetris.StateGameOver {
		t.Fatal("game did not end")
	}

	// the event that entered game over was lost; a later one still shows it
	next, _ := m.Update(eventMsg{Snapshot: snap})
	m = next.(Model)
	if !m.saved {
		t.Fatal("game-over snapshot did not trigger a save")
	}
	if snap.Score > 0 {
		high, err := store.HighScore("small")
		if err != nil {
			t.Fatal(err)
		}
		if high != snap.Score {
			t.Errorf("HighScore() = %d, want %d", high, snap.Score)
		}
	}
}

func TestDrawGame(t *testing.T) {
	cfg := tetris.DefaultConfig()
	game, err := tetris.New(cfg, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	game.StartNewGame()
	snap, err := game.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	w, h := ScreenSize(snap.Width, snap.Height)
	screen := core.NewScreen(w, h)
	DrawGame(screen, snap, HUD{Variant: "marathon", HighScore: 1234})

	text := screen.String()
	for _, want := range []string{"MARATHON", "Score  0", "High   1234", "Next"} {
		if !strings.Contains(text, want) {
			t.Errorf("screen missing %q:\n%s", want, text)
		}
	}
	if screen.Get(0, 0) != '┌' {
		t.Errorf("board frame missing, got %q", screen.Get(0, 0))
	}
	for _, c := range snap.Active.Cells {
		cell := screen.GetCell(1+c.X*cellWidth, 1+c.Y)
		if cell.Color != snap.Active.Kind.Color() {
			t.Errorf("active cell (%d,%d) color = %v, want %v", c.X, c.Y, cell.Color, snap.Active.Kind.Color())
		}
	}

	if out := RenderScreen(screen); !strings.Contains(out, "Next") {
		t.Error("RenderScreen lost text")
	}
}

func TestDrawGameOverBanner(t *testing.T) {
	snap := tetris.Snapshot{
		Width:  4,
		Height: 4,
		Cells:  make([]tetris.Kind, 16),
		State:  tetris.StateGameOver,
	}
	w, h := ScreenSize(snap.Width, snap.Height)
	screen := core.NewScreen(w, h)
	DrawGame(screen, snap, HUD{})
	if !strings.Contains(screen.String(), "GAME OVER") {
		t.Errorf("missing game over banner:\n%s", screen.String())
	}
}
