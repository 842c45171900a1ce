// blockfall is a falling-block puzzle engine with a terminal client, an
// HTTP environment server for agents and tooling for recorded episodes.
//
// Usage:
//
//	blockfall play               - Play in the terminal
//	blockfall serve              - Serve agent environments over HTTP
//	blockfall autoplay           - Let a built-in or scripted policy play
//	blockfall episodes           - List and export recorded episodes
//	blockfall replay <id>        - Re-simulate a recorded episode
//	blockfall scores             - Browse high scores
//	blockfall variants           - List rule variants
//
// Global flags:
//
//	--seed <value>        - RNG seed for reproducible piece sequences
//	--variant <id>        - Rule variant (default: marathon)
//	--config <path>       - Custom rules YAML
//	--difficulty <name>   - easy, normal, hard or fixed
//	--db <path>           - Episode database (default: ~/.blockfall/episodes.db)
//	--log-level <level>   - debug, info, warn or error
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/config"
	"github.com/vovakirdan/blockfall/internal/core"
	"github.com/vovakirdan/blockfall/internal/registry"
)

var (
	// Global flags
	flagSeed       int64
	flagVariant    string
	flagConfig     string
	flagDifficulty string
	flagDBPath     string
	flagLogLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "blockfall",
	Short: "Blockfall - a falling-block puzzle engine for players and agents",
	Long: `Blockfall is a deterministic falling-block puzzle engine. Play it in the
terminal, serve it to training loops over HTTP, or let a policy play it.

Available commands:
  play      - Play in the terminal
  serve     - Serve agent environments over HTTP
  autoplay  - Run episodes with a built-in or JavaScript policy
  episodes  - List, show, export and delete recorded episodes
  replay    - Re-simulate a recorded episode and verify its score
  scores    - Browse high scores
  variants  - List rule variants

Examples:
  blockfall play --difficulty easy
  blockfall serve --addr :8080 --record
  blockfall autoplay --policy heuristic --episodes 5 --seed 1
  blockfall replay 3f2c...`,
	SilenceUsage: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagVariant, "variant", registry.DefaultVariant, "Rule variant")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom rules YAML")
	rootCmd.PersistentFlags().StringVar(&flagDifficulty, "difficulty", "", "Difficulty preset: easy, normal, hard, fixed")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.blockfall/episodes.db", "Path to episode database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(autoplayCmd)
	rootCmd.AddCommand(episodesCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(variantsCmd)
}

// newLogger builds the process logger from --log-level.
func newLogger(prefix string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	level, err := log.ParseLevel(flagLogLevel)
	if err != nil {
		logger.Warn("unknown log level, using info", "level", flagLogLevel)
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// runtimeConfig resolves the global seed.
func runtimeConfig() core.RuntimeConfig {
	return core.RuntimeConfig{Seed: flagSeed}.Resolved()
}

// loadRules resolves a variant, layers the config file search path on top
// of it and applies the difficulty preset.
func loadRules(variant string) (config.Rules, error) {
	base, err := registry.Rules(variant)
	if err != nil {
		return config.Rules{}, err
	}
	rules, err := config.Load(flagConfig, base)
	if err != nil {
		return config.Rules{}, err
	}
	if flagDifficulty != "" {
		preset, err := config.ParsePreset(flagDifficulty)
		if err != nil {
			return config.Rules{}, err
		}
		config.ApplyPreset(&rules, preset)
	}
	if err := rules.Validate(); err != nil {
		return config.Rules{}, err
	}
	return rules, nil
}

// checkVariant rejects variant filters that match no registered rule set.
func checkVariant(variant string) error {
	if registry.Exists(variant) {
		return nil
	}
	ids := make([]string, 0)
	for _, v := range registry.List() {
		ids = append(ids, v.ID)
	}
	return fmt.Errorf("unknown variant %q (available: %s)", variant, strings.Join(ids, ", "))
}

// exitf prints an error and exits, the way every command reports failure.
func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
