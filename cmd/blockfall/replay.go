package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/agent"
	"github.com/vovakirdan/blockfall/internal/config"
	"github.com/vovakirdan/blockfall/internal/storage"
)

var flagReplayShow bool

var replayCmd = &cobra.Command{
	Use:   "replay <episode-id>",
	Short: "Re-simulate a recorded episode and verify its score",
	Long: `Replay the recorded action sequence of an episode with its stored seed and
variant, checking the score after every step against the recording.

The rules are rebuilt from the recorded variant plus the current --config and
--difficulty flags, so replay with the same flags the episode was played with.
Games played in the terminal store no transitions and cannot be replayed.

Examples:
  blockfall replay 3f2c9a1e-...
  blockfall replay 3f2c9a1e-... --show`,
	Args: cobra.ExactArgs(1),
	Run:  runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&flagReplayShow, "show", false, "Print the final board")
}

func runReplay(cmd *cobra.Command, args []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		exitf("opening episode database: %v", err)
	}
	defer store.Close()

	ep, err := store.Episode(args[0])
	if err != nil {
		exitf("%v", err)
	}
	if ep == nil {
		exitf("no episode %q", args[0])
	}
	transitions, err := store.Transitions(ep.ID)
	if err != nil {
		exitf("%v", err)
	}

	rules, err := loadRules(ep.Variant)
	if err != nil {
		exitf("%v", err)
	}

	env, err := replayEpisode(rules, ep, transitions)
	if err != nil {
		exitf("replay of %s failed: %v", ep.ID, err)
	}

	fmt.Printf("Replay OK: %s  seed %d  steps %d  score %d  lines %d\n",
		ep.ID, ep.Seed, len(transitions), ep.Score, ep.Lines)
	if flagReplayShow {
		if snap, err := env.Snapshot(); err == nil {
			fmt.Println()
			fmt.Println(snap.String())
		}
	}
}

var errScoreMismatch = errors.New("score mismatch")

// replayEpisode re-runs the transitions and returns the final environment.
func replayEpisode(rules config.Rules, ep *storage.Episode, transitions []storage.Transition) (*agent.Env, error) {
	if len(transitions) == 0 {
		return nil, errors.New("episode has no recorded transitions")
	}
	env, err := agent.NewEnv(rules, ep.Seed)
	if err != nil {
		return nil, err
	}

	for _, t := range transitions {
		action, err := agent.ParseAction(t.Action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", t.Step, err)
		}
		res, err := env.Step(action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", t.Step, err)
		}
		if res.Info.Score != t.Score {
			return nil, fmt.Errorf("step %d: %w: replayed %d, recorded %d", t.Step, errScoreMismatch, res.Info.Score, t.Score)
		}
		if res.Terminated != t.Terminated {
			return nil, fmt.Errorf("step %d: terminated=%v, recorded %v", t.Step, res.Terminated, t.Terminated)
		}
	}

	if ep.Finished() && env.Info().Score != ep.Score {
		return nil, fmt.Errorf("%w: final %d, recorded %d", errScoreMismatch, env.Info().Score, ep.Score)
	}
	return env, nil
}
