package session

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

func newRunner(t *testing.T, cfg tetris.Config, opts Options) *Runner {
	t.Helper()
	g, err := tetris.New(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	r := NewRunner(g, opts)
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func fastConfig() tetris.Config {
	cfg := tetris.DefaultConfig()
	cfg.StartLevel = 30
	cfg.Scoring.MinInterval = 5 * time.Millisecond
	return cfg
}

func TestRunnerAppliesCommands(t *testing.T) {
	r := newRunner(t, tetris.DefaultConfig(), Options{})
	ctx := context.Background()

	_, err := r.Snapshot(ctx)
	require.ErrorIs(t, err, tetris.ErrNotStarted)

	rep, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)
	assert.True(t, rep.Started)

	rep, err = r.Do(ctx, core.ActionHardDrop)
	require.NoError(t, err)
	assert.True(t, rep.Locked)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Pieces)
	assert.Equal(t, tetris.StateRunning, snap.State)
}

func TestRunnerConcurrentCallers(t *testing.T) {
	r := newRunner(t, tetris.DefaultConfig(), Options{})
	ctx := context.Background()
	_, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			var err error
			for j := 0; j < 25 && err == nil; j++ {
				if i%2 == 0 {
					_, err = r.Do(ctx, core.ActionLeft)
				} else {
					_, err = r.Snapshot(ctx)
				}
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
}

func TestRunnerGravity(t *testing.T) {
	r := newRunner(t, fastConfig(), Options{Gravity: true})
	ctx := context.Background()
	_, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)

	start, err := r.Snapshot(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := r.Snapshot(ctx)
		return err == nil && (snap.Pieces > start.Pieces || snap.Active.Pos.Y > start.Active.Pos.Y)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRunnerPauseStopsGravity(t *testing.T) {
	r := newRunner(t, fastConfig(), Options{Gravity: true})
	ctx := context.Background()
	_, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)

	rep, err := r.Do(ctx, core.ActionPause)
	require.NoError(t, err)
	require.True(t, rep.PauseToggled)

	before, err := r.Snapshot(ctx)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	after, err := r.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, tetris.StatePaused, after.State)
	assert.Equal(t, before.String(), after.String())
	assert.Equal(t, before.Pieces, after.Pieces)
}

func TestRunnerWithoutGravityIsStill(t *testing.T) {
	r := newRunner(t, fastConfig(), Options{})
	ctx := context.Background()
	_, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)

	before, _ := r.Snapshot(ctx)
	time.Sleep(30 * time.Millisecond)
	after, _ := r.Snapshot(ctx)
	assert.Equal(t, before.Active.Pos, after.Active.Pos)
}

func TestRunnerEvents(t *testing.T) {
	r := newRunner(t, tetris.DefaultConfig(), Options{EventBuffer: 4})
	ctx := context.Background()
	_, err := r.Do(ctx, core.ActionRestart)
	require.NoError(t, err)

	select {
	case evt := <-r.Events():
		assert.True(t, evt.Report.Started)
		assert.Equal(t, 1, evt.Snapshot.Pieces)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	// overflow keeps the newest events
	for i := 0; i < 10; i++ {
		_, err := r.Do(ctx, core.ActionHardDrop)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, len(r.Events()), 4)
}

func TestRunnerStopped(t *testing.T) {
	r := newRunner(t, tetris.DefaultConfig(), Options{})
	r.Stop()
	r.Stop()

	_, err := r.Do(context.Background(), core.ActionRestart)
	assert.ErrorIs(t, err, ErrStopped)
	select {
	case <-r.Done():
	default:
		t.Error("Done not closed after Stop")
	}
}

func TestRunnerContextCancelled(t *testing.T) {
	g, err := tetris.New(tetris.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	r := NewRunner(g, Options{Logger: log.New(io.Discard)})
	// not started: nobody receives the request

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Do(ctx, core.ActionRestart)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	r.Stop()
}

func TestPublishKeepsLifecycleEvents(t *testing.T) {
	g, err := tetris.New(tetris.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	r := NewRunner(g, Options{EventBuffer: 3, Logger: log.New(io.Discard)})

	r.publish(Event{Report: tetris.Report{Started: true}})
	r.publish(Event{Report: tetris.Report{Dropped: 1}})
	r.publish(Event{Report: tetris.Report{GameOverEntered: true}})
	for i := 2; i <= 5; i++ {
		r.publish(Event{Report: tetris.Report{Dropped: i}})
	}

	require.Len(t, r.Events(), 3)
	first, second, third := <-r.Events(), <-r.Events(), <-r.Events()
	assert.True(t, first.Report.Started)
	assert.True(t, second.Report.GameOverEntered)
	assert.Equal(t, 5, third.Report.Dropped)
}

func TestPublishAllLifecycleDropsOldest(t *testing.T) {
	g, err := tetris.New(tetris.DefaultConfig(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	r := NewRunner(g, Options{EventBuffer: 2, Logger: log.New(io.Discard)})

	r.publish(Event{Report: tetris.Report{Started: true, Dropped: 1}})
	r.publish(Event{Report: tetris.Report{GameOverEntered: true, Dropped: 2}})
	r.publish(Event{Report: tetris.Report{Started: true, Dropped: 3}})

	require.Len(t, r.Events(), 2)
	assert.Equal(t, 2, (<-r.Events()).Report.Dropped)
	assert.Equal(t, 3, (<-r.Events()).Report.Dropped)
}
