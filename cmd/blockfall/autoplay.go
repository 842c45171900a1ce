package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/agent"
	"github.com/vovakirdan/blockfall/internal/scripting"
	"github.com/vovakirdan/blockfall/internal/storage"
)

var (
	flagPolicy   string
	flagScript   string
	flagEpisodes int
	flagMaxSteps int
	flagAPRecord bool
	flagShow     bool
)

var autoplayCmd = &cobra.Command{
	Use:   "autoplay",
	Short: "Run episodes with a built-in or JavaScript policy",
	Long: `Let a policy play one or more episodes and print a summary.

Policies:
  heuristic  - Placement search scoring height, lines, holes and bumpiness
  random     - Uniform over move actions
  script     - A JavaScript file defining act(obs) (see --script)

Episode i uses seed --seed + i, so runs are reproducible.

Examples:
  blockfall autoplay --policy heuristic --episodes 10 --seed 1
  blockfall autoplay --script ./bot.js --max-steps 5000 --record
  blockfall autoplay --policy random --show`,
	Args: cobra.NoArgs,
	Run:  runAutoplay,
}

func init() {
	autoplayCmd.Flags().StringVar(&flagPolicy, "policy", "heuristic", "Policy: heuristic, random")
	autoplayCmd.Flags().StringVar(&flagScript, "script", "", "JavaScript policy file (overrides --policy)")
	autoplayCmd.Flags().IntVar(&flagEpisodes, "episodes", 1, "Number of episodes")
	autoplayCmd.Flags().IntVar(&flagMaxSteps, "max-steps", 10000, "Step limit per episode (0 = unlimited)")
	autoplayCmd.Flags().BoolVar(&flagAPRecord, "record", false, "Record episodes into the episode database")
	autoplayCmd.Flags().BoolVar(&flagShow, "show", false, "Print the final board of each episode")
}

func runAutoplay(cmd *cobra.Command, args []string) {
	logger := newLogger("autoplay")

	rules, err := loadRules(flagVariant)
	if err != nil {
		exitf("%v", err)
	}
	rc := runtimeConfig()

	env, err := agent.NewEnv(rules, rc.Seed)
	if err != nil {
		exitf("creating environment: %v", err)
	}

	policy, player, script, err := buildPolicy(rc.Seed)
	if err != nil {
		exitf("%v", err)
	}

	var store *storage.Store
	if flagAPRecord {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			exitf("opening episode database: %v", err)
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var totalScore, totalLines int
	played := 0
	for i := 0; i < flagEpisodes; i++ {
		seed := rc.Seed + int64(i)
		sum, episodeID, err := playEpisode(ctx, env, policy, seed, store, player, logger)
		if script != nil {
			for _, entry := range script.VM().GetLogs() {
				logger.Debug("script", "msg", entry.Message)
			}
			script.VM().ClearLogs()
		}
		if err != nil {
			logger.Error("episode failed", "episode", i+1, "seed", seed, "err", err)
			break
		}

		played++
		totalScore += sum.Score
		totalLines += sum.Lines
		logger.Info("episode finished",
			"episode", i+1,
			"seed", seed,
			"score", sum.Score,
			"lines", sum.Lines,
			"level", sum.Level,
			"steps", sum.Steps,
			"reward", fmt.Sprintf("%.2f", sum.Reward),
			"end", sum.EndReason(),
			"id", episodeID,
		)
		if flagShow {
			if snap, err := env.Snapshot(); err == nil {
				fmt.Println(snap.String())
				fmt.Println()
			}
		}
	}

	if played == 0 {
		os.Exit(1)
	}
	fmt.Printf("Episodes: %d  Avg score: %.1f  Avg lines: %.1f\n",
		played, float64(totalScore)/float64(played), float64(totalLines)/float64(played))
}

// buildPolicy returns the policy, the player label stored with recorded
// episodes and the script policy when one was loaded.
func buildPolicy(seed int64) (agent.Policy, string, *scripting.Policy, error) {
	if flagScript != "" {
		p, err := scripting.LoadPolicy(flagScript)
		if err != nil {
			return nil, "", nil, err
		}
		return p, "script", p, nil
	}
	switch flagPolicy {
	case "heuristic":
		return agent.NewHeuristicPolicy(agent.DefaultWeights()), "heuristic", nil, nil
	case "random":
		return agent.NewRandomPolicy(seed), "random", nil, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown policy %q (want heuristic or random)", flagPolicy)
	}
}

// playEpisode runs one episode, recording it when store is set.
func playEpisode(ctx context.Context, env *agent.Env, policy agent.Policy, seed int64, store *storage.Store, player string, logger *log.Logger) (agent.Summary, string, error) {
	if store == nil {
		sum, err := agent.RunEpisode(ctx, env, policy, seed, flagMaxSteps, nil)
		return sum, "", err
	}

	rec, err := store.NewRecorder(flagVariant, player, seed, 0)
	if err != nil {
		return agent.Summary{}, "", err
	}
	hook := func(t agent.Transition) error {
		return rec.Record(storage.Transition{
			Step:         t.Step,
			Action:       int(t.Action),
			Reward:       t.Result.Reward,
			Score:        t.Result.Info.Score,
			LinesCleared: t.Result.Info.Cleared,
			Terminated:   t.Result.Terminated,
			Truncated:    t.Result.Truncated,
		})
	}

	sum, runErr := agent.RunEpisode(ctx, env, policy, seed, flagMaxSteps, hook)
	err = rec.Finish(storage.EpisodeResult{
		Score:     sum.Score,
		Lines:     sum.Lines,
		Level:     sum.Level,
		Steps:     sum.Steps,
		EndReason: sum.EndReason(),
	})
	if err != nil {
		logger.Warn("cannot finish recording", "id", rec.EpisodeID(), "err", err)
	}
	return sum, rec.EpisodeID(), runErr
}
