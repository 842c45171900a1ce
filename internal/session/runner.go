// Package session runs games behind a single-owner actor so that player
// input, gravity ticks and snapshot reads from many goroutines are applied
// to the engine one at a time.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/tetris"
)

// ErrStopped is returned by calls made after the runner has stopped.
var ErrStopped = errors.New("session: runner stopped")

// Event is published after every applied command.
type Event struct {
	Report   tetris.Report
	Snapshot tetris.Snapshot
}

// Options configures a Runner.
type Options struct {
	// Gravity enables the automatic fall timer.
	Gravity bool
	// EventBuffer is the size of the Events channel; 0 disables events.
	EventBuffer int
	// Logger receives lifecycle messages; nil uses the default logger.
	Logger *log.Logger
}

type request struct {
	action   core.Action
	snapshot bool
	reply    chan response
}

type response struct {
	report   tetris.Report
	snapshot tetris.Snapshot
	err      error
}

// Runner owns one game. All access goes through its command queue.
type Runner struct {
	game   *tetris.Game
	opts   Options
	logger *log.Logger

	requests chan request
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	exited   chan struct{}
}

// NewRunner wraps a game. Call Start to begin processing.
func NewRunner(game *tetris.Game, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		game:     game,
		opts:     opts,
		logger:   logger,
		requests: make(chan request),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	if opts.EventBuffer > 0 {
		r.events = make(chan Event, opts.EventBuffer)
	}
	return r
}

// Start begins the runner's background processing.
func (r *Runner) Start() {
	if r.started.CompareAndSwap(false, true) {
		go r.run()
	}
}

// Stop shuts down the runner and waits for the loop to exit.
// Safe to call multiple times.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	if r.started.Load() {
		<-r.exited
	}
}

// Done returns a channel that closes when the runner is stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Events returns the channel of applied-command events, or nil when events
// are disabled. Slow readers lose the oldest events, except those that start
// or end a game.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// Do applies an action and returns its report.
func (r *Runner) Do(ctx context.Context, a core.Action) (tetris.Report, error) {
	resp, err := r.call(ctx, request{action: a})
	return resp.report, err
}

// Snapshot returns the current view of the game.
func (r *Runner) Snapshot(ctx context.Context) (tetris.Snapshot, error) {
	resp, err := r.call(ctx, request{snapshot: true})
	if err != nil {
		return tetris.Snapshot{}, err
	}
	return resp.snapshot, resp.err
}

func (r *Runner) call(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case r.requests <- req:
	case <-r.done:
		return response{}, ErrStopped
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// run is the actor loop. It is the only goroutine touching the game.
func (r *Runner) run() {
	defer close(r.exited)

	gravity := time.NewTimer(time.Hour)
	defer gravity.Stop()
	r.rearm(gravity)

	for {
		select {
		case req := <-r.requests:
			if req.snapshot {
				snap, err := r.game.Snapshot()
				req.reply <- response{snapshot: snap, err: err}
				continue
			}
			rep := r.apply(req.action)
			req.reply <- response{report: rep}
			if rearmAfter(rep) {
				r.rearm(gravity)
			}

		case <-gravity.C:
			r.apply(core.ActionTick)
			r.rearm(gravity)

		case <-r.done:
			return
		}
	}
}

func (r *Runner) apply(a core.Action) tetris.Report {
	rep := r.game.Apply(a)
	if rep.GameOverEntered {
		r.logger.Debug("game over", "score", r.game.Score(), "lines", r.game.Lines(), "pieces", r.game.Pieces())
	}
	if rep.LevelChanged {
		r.logger.Debug("level up", "level", r.game.Level(), "interval", r.game.FallInterval())
	}
	if r.events != nil && rep.Accepted {
		snap, err := r.game.Snapshot()
		if err == nil {
			r.publish(Event{Report: rep, Snapshot: snap})
		}
	}
	return rep
}

// publish queues an event. When the buffer is full the oldest event that
// does not start or end a game is dropped; lifecycle events are only dropped
// when the buffer holds nothing else.
func (r *Runner) publish(evt Event) {
	select {
	case r.events <- evt:
		return
	default:
	}

	pending := make([]Event, 0, cap(r.events)+1)
	for drained := false; !drained; {
		select {
		case e := <-r.events:
			pending = append(pending, e)
		default:
			drained = true
		}
	}
	pending = append(pending, evt)
	for len(pending) > cap(r.events) {
		i := droppable(pending)
		pending = append(pending[:i], pending[i+1:]...)
	}
	for _, e := range pending {
		select {
		case r.events <- e:
		default:
		}
	}
}

// droppable returns the index of the oldest event without lifecycle flags,
// or 0 when every event has one.
func droppable(events []Event) int {
	for i, e := range events {
		if !isLifecycle(e) {
			return i
		}
	}
	return 0
}

func isLifecycle(e Event) bool {
	return e.Report.Started || e.Report.GameOverEntered
}

// rearm restarts the fall timer for the current level, or stops it when the
// game is not running.
func (r *Runner) rearm(t *time.Timer) {
	if !r.opts.Gravity || r.game.State() != tetris.StateRunning {
		t.Stop()
		return
	}
	t.Reset(r.game.FallInterval())
}

// rearmAfter reports whether a command changed anything the fall timer
// depends on: running state, level or the identity of the active piece.
func rearmAfter(rep tetris.Report) bool {
	return rep.Started || rep.PauseToggled || rep.LevelChanged || rep.Locked || rep.GameOverEntered
}
