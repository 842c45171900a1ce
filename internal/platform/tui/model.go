// Package tui is a thin Bubble Tea driver for the engine. It maps keys to
// commands, sends them to a session.Runner that owns the game and its
// gravity timer, and redraws from the runner's snapshot events.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/session"
	"github.com/vovakirdan/blockfall/internal/storage"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

// commandTimeout bounds a single command round-trip to the runner.
const commandTimeout = time.Second

// Options configures a play session.
type Options struct {
	Variant string
	Seed    int64
	Store   *storage.Store // optional; finished games are saved here
	Logger  *log.Logger
}

// eventMsg carries a runner event into the Bubble Tea loop.
type eventMsg session.Event

// stoppedMsg is sent once the runner has stopped.
type stoppedMsg struct{}

// Model is the Bubble Tea model for one game.
type Model struct {
	runner  *session.Runner
	opts    Options
	keys    KeyMap
	help    help.Model
	screen  *core.Screen
	snap    tetris.Snapshot
	hasSnap bool
	high    int
	saved   bool
	status  string
	width   int
	height  int
}

// NewModel creates a model around a started runner. The runner's game must
// already be running.
func NewModel(runner *session.Runner, snap tetris.Snapshot, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	w, h := ScreenSize(snap.Width, snap.Height)
	m := Model{
		runner:  runner,
		opts:    opts,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		screen:  core.NewScreen(w, h),
		snap:    snap,
		hasSnap: true,
	}
	if opts.Store != nil {
		if high, err := opts.Store.HighScore(opts.Variant); err == nil {
			m.high = high
		}
	}
	return m
}

// Init starts listening for runner events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.runner)
}

// waitForEvent blocks until the runner publishes an event or stops.
func waitForEvent(r *session.Runner) tea.Cmd {
	return func() tea.Msg {
		select {
		case evt := <-r.Events():
			return eventMsg(evt)
		case <-r.Done():
			return stoppedMsg{}
		}
	}
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.snap = msg.Snapshot
		m.hasSnap = true
		if msg.Report.Started {
			m.saved = false
			m.status = ""
		}
		if msg.Report.GameOverEntered || m.snap.State == tetris.StateGameOver {
			m.saveGame()
		}
		return m, waitForEvent(m.runner)

	case stoppedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Screenshot):
		m.status = m.saveScreenshot()
		return m, nil
	}

	action := m.keys.Action(msg)
	switch action {
	case core.ActionNone:
		return m, nil
	case core.ActionQuit:
		return m, tea.Quit
	case core.ActionRestart:
		// restart only from the game-over screen so a stray key cannot
		// throw away a running game
		if m.snap.State != tetris.StateGameOver {
			return m, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := m.runner.Do(ctx, action); err != nil {
		m.opts.Logger.Debug("command failed", "action", action, "err", err)
	}
	return m, nil
}

// saveGame records a finished game once.
func (m *Model) saveGame() {
	if m.saved {
		return
	}
	m.saved = true
	m.high = max(m.high, m.snap.Score)
	if m.opts.Store == nil || m.snap.Score == 0 {
		return
	}
	id, err := m.opts.Store.StartEpisode(m.opts.Variant, "human", m.opts.Seed)
	if err == nil {
		err = m.opts.Store.FinishEpisode(id, storage.EpisodeResult{
			Score:     m.snap.Score,
			Lines:     m.snap.Lines,
			Level:     m.snap.Level,
			Steps:     m.snap.Pieces,
			EndReason: "game_over",
		})
	}
	if err != nil {
		m.opts.Logger.Warn("cannot save game", "err", err)
	}
}

// saveScreenshot writes the board as text and returns a status line.
func (m Model) saveScreenshot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "screenshot failed"
	}
	dir := filepath.Join(home, ".blockfall", "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "screenshot failed"
	}
	name := fmt.Sprintf("%s_%s.txt", m.opts.Variant, time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(m.snap.String()+"\n"), 0o600); err != nil {
		return "screenshot failed"
	}
	return "saved " + path
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if !m.hasSnap {
		return ""
	}
	DrawGame(m.screen, m.snap, HUD{Variant: m.opts.Variant, HighScore: m.high})

	var sb strings.Builder
	sb.WriteString(RenderScreen(m.screen))
	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(bannerStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// Run starts a game and the Bubble Tea program, returning when the player
// quits.
func Run(game *tetris.Game, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	runner := session.NewRunner(game, session.Options{
		Gravity:     true,
		EventBuffer: 64,
		Logger:      opts.Logger,
	})
	runner.Start()
	defer runner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := runner.Do(ctx, core.ActionRestart); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	snap, err := runner.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}

	p := tea.NewProgram(NewModel(runner, snap, opts), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
