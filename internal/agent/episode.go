package agent

import (
	"context"
	"fmt"
)

// Transition is one recorded step of an episode.
type Transition struct {
	Step   int
	Action Action
	Result StepResult
}

// Summary describes a finished episode.
type Summary struct {
	Seed       int64
	Steps      int
	Score      int
	Lines      int
	Level      int
	Pieces     int
	Reward     float64
	Terminated bool
	Truncated  bool
}

// EndReason returns "game_over", "truncated" or "stopped".
func (s Summary) EndReason() string {
	switch {
	case s.Terminated:
		return "game_over"
	case s.Truncated:
		return "truncated"
	default:
		return "stopped"
	}
}

// StepHook is called after every step. Returning an error stops the episode.
type StepHook func(t Transition) error

// RunEpisode resets env with seed and lets policy play until the episode
// ends, ctx is cancelled or maxSteps (when positive) is reached.
func RunEpisode(ctx context.Context, env *Env, policy Policy, seed int64, maxSteps int, hook StepHook) (Summary, error) {
	obs, _ := env.Reset(seed)
	sum := Summary{Seed: seed}

	for !env.Done() {
		if maxSteps > 0 && sum.Steps >= maxSteps {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		action, err := policy.Act(ctx, obs)
		if err != nil {
			return sum, fmt.Errorf("policy failed at step %d: %w", sum.Steps, err)
		}
		res, err := env.Step(action)
		if err != nil {
			return sum, fmt.Errorf("step %d: %w", sum.Steps, err)
		}

		sum.Steps++
		sum.Reward += res.Reward
		sum.Score = res.Info.Score
		sum.Lines = res.Info.Lines
		sum.Level = res.Info.Level
		sum.Pieces = res.Info.Pieces
		sum.Terminated = res.Terminated
		sum.Truncated = res.Truncated
		obs = res.Observation

		if hook != nil {
			if err := hook(Transition{Step: sum.Steps, Action: action, Result: res}); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}
