package tetris

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/vovakirdan/blockfall/internal/core"
)

func newGame(t *testing.T, cfg Config, seed int64) *Game {
	t.Helper()
	g, err := New(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func sortedCells(cells []core.Point) []core.Point {
	out := slices.Clone(cells)
	slices.SortFunc(out, func(a, b core.Point) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return out
}

func TestGameDeterminism(t *testing.T) {
	actions := []core.Action{
		core.ActionLeft, core.ActionRotate, core.ActionTick, core.ActionHardDrop,
		core.ActionRight, core.ActionRight, core.ActionSoftDrop, core.ActionHardDrop,
	}

	g1 := newGame(t, DefaultConfig(), 12345)
	g2 := newGame(t, DefaultConfig(), 12345)
	g1.StartNewGame()
	g2.StartNewGame()

	for i := 0; i < 400; i++ {
		a := actions[i%len(actions)]
		r1 := g1.Apply(a)
		r2 := g2.Apply(a)
		if r1.ScoreDelta != r2.ScoreDelta || r1.LinesCleared != r2.LinesCleared {
			t.Fatalf("step %d: reports differ: %+v vs %+v", i, r1, r2)
		}
	}

	s1, _ := g1.Snapshot()
	s2, _ := g2.Snapshot()
	if s1.String() != s2.String() {
		t.Errorf("boards differ:\n%s\nvs\n%s", s1, s2)
	}
	if s1.Score != s2.Score || s1.Pieces != s2.Pieces || s1.State != s2.State {
		t.Errorf("counters differ: %+v vs %+v", s1, s2)
	}
}

func TestIdleGame(t *testing.T) {
	g := newGame(t, DefaultConfig(), 1)

	if _, err := g.Snapshot(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Snapshot before start error = %v, want ErrNotStarted", err)
	}
	for _, a := range []core.Action{core.ActionLeft, core.ActionRotate, core.ActionTick, core.ActionHardDrop, core.ActionPause} {
		if r := g.Apply(a); r.Accepted {
			t.Errorf("%v accepted while idle", a)
		}
	}
	if g.State() != StateIdle {
		t.Errorf("state = %v, want idle", g.State())
	}
}

func TestStartNewGame(t *testing.T) {
	g := newGame(t, DefaultConfig(), 42)
	r := g.StartNewGame()

	if !r.Started || !r.Spawned {
		t.Errorf("report = %+v, want Started and Spawned", r)
	}
	if g.State() != StateRunning {
		t.Fatalf("state = %v, want running", g.State())
	}
	p, ok := g.Active()
	if !ok {
		t.Fatal("no active piece after start")
	}
	if p.Pos != core.Pt(3, 0) || p.Rotation != 0 {
		t.Errorf("spawned at %v rotation %d, want (3,0) rotation 0", p.Pos, p.Rotation)
	}
	if g.Score() != 0 || g.Lines() != 0 || g.Pieces() != 1 {
		t.Errorf("counters = score %d lines %d pieces %d", g.Score(), g.Lines(), g.Pieces())
	}
}

func TestStartNewGameResetsState(t *testing.T) {
	g := newGame(t, DefaultConfig(), 9)
	g.StartNewGame()
	for i := 0; i < 10; i++ {
		g.HardDrop()
	}
	if g.board.FilledCount() == 0 {
		t.Fatal("expected locked cells before restart")
	}
	g.StartNewGame()
	if g.board.FilledCount() != 0 || g.Score() != 0 || g.Pieces() != 1 {
		t.Errorf("restart left board=%d score=%d pieces=%d", g.board.FilledCount(), g.Score(), g.Pieces())
	}
}

func TestMoveBlockedByWall(t *testing.T) {
	g := newGame(t, DefaultConfig(), 5)
	g.StartNewGame()

	moves := 0
	for g.MoveLeft().Moved {
		moves++
		if moves > 10 {
			t.Fatal("piece moved through the wall")
		}
	}
	before, _ := g.Active()
	r := g.MoveLeft()
	after, _ := g.Active()
	if r.Accepted || r.Moved || before != after {
		t.Errorf("blocked move changed state: %+v", r)
	}
	for _, c := range after.Cells() {
		if c.X < 0 {
			t.Errorf("cell %v left of the board", c)
		}
	}
}

func TestRotationReversible(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WallKicks = false

	for _, k := range Kinds {
		t.Run(k.String(), func(t *testing.T) {
			g := newGame(t, cfg, 1)
			g.StartNewGame()
			g.active = &Piece{Kind: k, Pos: core.Pt(3, 8)}
			start := sortedCells(g.active.Cells())

			for i := 0; i < 4; i++ {
				g.Rotate()
			}
			p, _ := g.Active()
			if p.Rotation != 0 {
				t.Errorf("rotation = %d after 4 turns, want 0", p.Rotation)
			}
			if !slices.Equal(sortedCells(p.Cells()), start) {
				t.Errorf("cells = %v, want %v", sortedCells(p.Cells()), start)
			}
		})
	}
}

func TestRotationStatesAreClockwiseTurns(t *testing.T) {
	for _, k := range Kinds {
		def := DefinitionFor(k)
		for i, shape := range def.Rotations {
			seen := make(map[core.Point]bool)
			for _, c := range shape {
				if c.X < 0 || c.X > 3 || c.Y < 0 || c.Y > 3 {
					t.Errorf("%v state %d: offset %v outside 4x4 box", k, i, c)
				}
				if seen[c] {
					t.Errorf("%v state %d: duplicate offset %v", k, i, c)
				}
				seen[c] = true
			}
		}
	}

	counts := map[Kind]int{KindI: 4, KindO: 1, KindT: 4, KindS: 2, KindZ: 2, KindJ: 4, KindL: 4}
	for k, want := range counts {
		if got := RotationCount(k); got != want {
			t.Errorf("RotationCount(%v) = %d, want %d", k, got, want)
		}
	}
}

func TestRotateWallKick(t *testing.T) {
	// A vertical I against the right wall cannot turn in place.
	g := newGame(t, DefaultConfig(), 1)
	g.StartNewGame()
	g.active = &Piece{Kind: KindI, Rotation: 1, Pos: core.Pt(7, 5)}

	r := g.Rotate()
	if !r.Rotated {
		t.Fatalf("rotate with kicks rejected: %+v", r)
	}
	p, _ := g.Active()
	for _, c := range p.Cells() {
		if c.X < 0 || c.X >= 10 {
			t.Errorf("kicked piece out of bounds at %v", c)
		}
	}

	cfg := DefaultConfig()
	cfg.WallKicks = false
	g = newGame(t, cfg, 1)
	g.StartNewGame()
	g.active = &Piece{Kind: KindI, Rotation: 1, Pos: core.Pt(7, 5)}
	if r := g.Rotate(); r.Accepted {
		t.Errorf("rotate without kicks accepted: %+v", r)
	}
	if p, _ := g.Active(); p.Rotation != 1 || p.Pos != core.Pt(7, 5) {
		t.Errorf("rejected rotation changed piece: %+v", p)
	}
}

func TestSoftDropAndTick(t *testing.T) {
	g := newGame(t, DefaultConfig(), 3)
	g.StartNewGame()

	r := g.SoftDrop()
	if !r.Moved || r.ScoreDelta != 1 {
		t.Errorf("soft drop = %+v, want moved with 1 point", r)
	}
	r = g.Tick()
	if !r.Moved || r.ScoreDelta != 0 {
		t.Errorf("tick = %+v, want moved with no points", r)
	}

	// Fall until the piece locks.
	for i := 0; i < 30; i++ {
		if r = g.Tick(); r.Locked {
			break
		}
	}
	if !r.Locked || !r.BoardChanged || !r.Spawned {
		t.Errorf("tick onto floor = %+v, want lock and spawn", r)
	}
	if g.Pieces() != 2 {
		t.Errorf("pieces = %d, want 2", g.Pieces())
	}
}

func TestHardDropOnEmptyBoard(t *testing.T) {
	g := newGame(t, DefaultConfig(), 2024)
	g.StartNewGame()

	ghost := sortedCells(g.Ghost())
	before, _ := g.Active()

	r := g.HardDrop()
	if !r.Locked || !r.Spawned {
		t.Fatalf("hard drop = %+v, want lock and spawn", r)
	}
	if r.LinesCleared != 0 {
		t.Errorf("LinesCleared = %d, want 0", r.LinesCleared)
	}

	bottom := 0
	for _, c := range ghost {
		bottom = max(bottom, c.Y)
		if g.board.At(c.X, c.Y) != before.Kind {
			t.Errorf("cell %v = %v, want %v", c, g.board.At(c.X, c.Y), before.Kind)
		}
	}
	if bottom != 19 {
		t.Errorf("lowest locked row = %d, want 19", bottom)
	}
	if g.board.FilledCount() != 4 {
		t.Errorf("FilledCount = %d, want 4", g.board.FilledCount())
	}
	if r.ScoreDelta != r.Dropped*2 || g.Score() != r.ScoreDelta {
		t.Errorf("score delta = %d for %d rows, total %d", r.ScoreDelta, r.Dropped, g.Score())
	}
	if _, ok := g.Active(); !ok {
		t.Error("no active piece after hard drop")
	}
}

func TestHardDropClearsBottomRow(t *testing.T) {
	g := newGame(t, DefaultConfig(), 77)
	g.StartNewGame()

	for x := 0; x < 9; x++ {
		g.board.Lock([]core.Point{core.Pt(x, 19)}, KindO)
	}
	// vertical I in the last column
	g.active = &Piece{Kind: KindI, Rotation: 1, Pos: core.Pt(7, 0)}

	r := g.HardDrop()
	if r.Dropped != 16 {
		t.Errorf("Dropped = %d, want 16", r.Dropped)
	}
	if !slices.Equal(r.ClearedRows, []int{19}) {
		t.Errorf("ClearedRows = %v, want [19]", r.ClearedRows)
	}
	if r.LinesCleared != 1 || g.Lines() != 1 {
		t.Errorf("LinesCleared = %d, total = %d, want 1", r.LinesCleared, g.Lines())
	}
	if want := 100 + 16*2; r.ScoreDelta != want || g.Score() != want {
		t.Errorf("ScoreDelta = %d, score = %d, want %d", r.ScoreDelta, g.Score(), want)
	}
	if got := g.board.FullRows(); len(got) != 0 {
		t.Errorf("FullRows after clear = %v", got)
	}
	// the three upper cells of the I fall one row
	for y := 17; y <= 19; y++ {
		if g.board.At(9, y) != KindI {
			t.Errorf("cell (9,%d) = %v, want I", y, g.board.At(9, y))
		}
	}
	if g.board.FilledCount() != 3 {
		t.Errorf("FilledCount = %d, want 3", g.board.FilledCount())
	}
}

func TestLevelAdvances(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scoring.LinesPerLevel = 1
	g := newGame(t, cfg, 77)
	g.StartNewGame()

	for x := 0; x < 9; x++ {
		g.board.Lock([]core.Point{core.Pt(x, 19)}, KindO)
	}
	g.active = &Piece{Kind: KindI, Rotation: 1, Pos: core.Pt(7, 0)}
	before := g.FallInterval()

	r := g.HardDrop()
	if !r.LevelChanged || g.Level() != 1 {
		t.Errorf("level = %d, LevelChanged = %v, want 1 true", g.Level(), r.LevelChanged)
	}
	// points use the level in effect when the lines were cleared
	if want := 100 + 16*2; r.ScoreDelta != want {
		t.Errorf("ScoreDelta = %d, want %d", r.ScoreDelta, want)
	}
	if g.FallInterval() >= before {
		t.Errorf("FallInterval did not shrink: %v -> %v", before, g.FallInterval())
	}
}

func TestGameOverOnBlockedSpawn(t *testing.T) {
	g := newGame(t, DefaultConfig(), 8)
	g.StartNewGame()

	var r Report
	for i := 0; i < 200 && !g.IsOver(); i++ {
		r = g.HardDrop()
	}
	if !g.IsOver() || !r.GameOverEntered {
		t.Fatalf("game not over after stacking; last report %+v", r)
	}
	if _, ok := g.Active(); ok {
		t.Error("active piece present after game over")
	}

	score := g.Score()
	for _, a := range []core.Action{core.ActionLeft, core.ActionRotate, core.ActionTick, core.ActionHardDrop, core.ActionPause} {
		if r := g.Apply(a); r.Accepted {
			t.Errorf("%v accepted after game over", a)
		}
	}
	if g.Score() != score {
		t.Error("score changed after game over")
	}

	snap, err := g.Snapshot()
	if err != nil || !snap.GameOver() {
		t.Errorf("snapshot after game over: %v, GameOver=%v", err, snap.GameOver())
	}

	if r := g.StartNewGame(); !r.Started || g.State() != StateRunning {
		t.Errorf("restart from game over failed: %+v", r)
	}
}

func TestTinyBoardEndsImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 1
	g := newGame(t, cfg, 1)

	r := g.StartNewGame()
	if !r.GameOverEntered || g.State() != StateGameOver {
		t.Errorf("start on 2x1 board = %+v, state %v", r, g.State())
	}
}

func TestZeroHeightRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Height = 0
	if _, err := New(cfg, rand.New(rand.NewSource(1))); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New with height 0 error = %v, want ErrInvalidConfig", err)
	}
}

func TestPauseFreezesGame(t *testing.T) {
	g := newGame(t, DefaultConfig(), 4)
	g.StartNewGame()
	before, _ := g.Active()

	if r := g.Pause(); !r.PauseToggled || g.State() != StatePaused {
		t.Fatalf("pause = %+v, state %v", r, g.State())
	}
	for _, a := range []core.Action{core.ActionLeft, core.ActionRotate, core.ActionTick, core.ActionSoftDrop, core.ActionHardDrop} {
		if r := g.Apply(a); r.Accepted {
			t.Errorf("%v accepted while paused", a)
		}
	}
	if after, _ := g.Active(); after != before {
		t.Errorf("piece moved while paused: %+v -> %+v", before, after)
	}

	if r := g.Apply(core.ActionPause); !r.PauseToggled || g.State() != StateRunning {
		t.Errorf("resume = %+v, state %v", r, g.State())
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(31337))
	actions := []core.Action{
		core.ActionLeft, core.ActionRight, core.ActionRotate,
		core.ActionSoftDrop, core.ActionHardDrop, core.ActionTick,
	}

	for seed := int64(0); seed < 5; seed++ {
		g := newGame(t, DefaultConfig(), seed)
		g.StartNewGame()
		prev := 0
		for i := 0; i < 2000 && !g.IsOver(); i++ {
			r := g.Apply(actions[rng.Intn(len(actions))])
			if r.ScoreDelta < 0 || g.Score() < prev {
				t.Fatalf("seed %d step %d: score went %d -> %d", seed, i, prev, g.Score())
			}
			prev = g.Score()
		}
	}
}

func TestActiveNeverOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := newGame(t, DefaultConfig(), 5)
	g.StartNewGame()
	for i := 0; i < 3000 && !g.IsOver(); i++ {
		g.Apply(core.Action(1 + rng.Intn(int(core.ActionHardDrop))))
		if p, ok := g.Active(); ok && !g.board.CanPlace(p.Cells()) {
			t.Fatalf("step %d: active piece overlaps the board at %v", i, p.Cells())
		}
		if rows := g.board.FullRows(); len(rows) != 0 {
			t.Fatalf("step %d: full rows left on board: %v", i, rows)
		}
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	g := newGame(t, DefaultConfig(), 6)
	g.StartNewGame()
	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	snap.Cells[0] = KindT
	if g.board.At(0, 0) != KindNone {
		t.Error("mutating snapshot changed the board")
	}
	if snap.Next != g.spawner.PeekNext() {
		t.Errorf("Next = %v, want %v", snap.Next, g.spawner.PeekNext())
	}
	if snap.Active == nil || len(snap.Ghost) != 4 {
		t.Errorf("snapshot missing active piece or ghost: %+v", snap)
	}
}
