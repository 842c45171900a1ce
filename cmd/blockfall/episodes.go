package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/storage"
)

var (
	flagLimit int
	flagTop   bool
)

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "List recorded episodes",
	Long: `List recent episodes, or the best ones of a variant with --top.

Examples:
  blockfall episodes
  blockfall episodes --top --variant classic
  blockfall episodes show <id>
  blockfall episodes export <id> > episode.json
  blockfall episodes delete <id>`,
	Args: cobra.NoArgs,
	Run:  runEpisodes,
}

var episodesShowCmd = &cobra.Command{
	Use:   "show <episode-id>",
	Short: "Show one episode",
	Args:  cobra.ExactArgs(1),
	Run:   runEpisodesShow,
}

var episodesExportCmd = &cobra.Command{
	Use:   "export <episode-id>",
	Short: "Write an episode and its transitions as JSON to stdout",
	Args:  cobra.ExactArgs(1),
	Run:   runEpisodesExport,
}

var episodesDeleteCmd = &cobra.Command{
	Use:   "delete <episode-id>",
	Short: "Delete an episode and its transitions",
	Args:  cobra.ExactArgs(1),
	Run:   runEpisodesDelete,
}

func init() {
	episodesCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of episodes to list")
	episodesCmd.Flags().BoolVar(&flagTop, "top", false, "List the highest-scoring finished episodes of --variant")

	episodesCmd.AddCommand(episodesShowCmd)
	episodesCmd.AddCommand(episodesExportCmd)
	episodesCmd.AddCommand(episodesDeleteCmd)
}

func openStore() *storage.Store {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		exitf("opening episode database: %v", err)
	}
	return store
}

func runEpisodes(cmd *cobra.Command, args []string) {
	if flagTop {
		if err := checkVariant(flagVariant); err != nil {
			exitf("%v", err)
		}
	}
	store := openStore()
	defer store.Close()

	var (
		list []storage.Episode
		err  error
	)
	if flagTop {
		list, err = store.TopEpisodes(flagVariant, flagLimit)
	} else {
		list, err = store.RecentEpisodes(flagLimit)
	}
	if err != nil {
		exitf("%v", err)
	}

	if len(list) == 0 {
		fmt.Println("No episodes recorded yet.")
		fmt.Println()
		fmt.Println("Run 'blockfall autoplay --record' or 'blockfall play' to record one.")
		return
	}

	fmt.Printf("  %-36s  %-9s  %-9s  %8s  %6s  %7s  %-9s  %s\n", "ID", "Variant", "Player", "Score", "Lines", "Steps", "End", "Date")
	for _, e := range list {
		end := e.EndReason
		if end == "" {
			end = "running"
		}
		fmt.Printf("  %-36s  %-9s  %-9s  %8d  %6d  %7d  %-9s  %s\n",
			e.ID, e.Variant, e.Player, e.Score, e.Lines, e.Steps, end, e.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func mustEpisode(store *storage.Store, id string) *storage.Episode {
	ep, err := store.Episode(id)
	if err != nil {
		exitf("%v", err)
	}
	if ep == nil {
		exitf("no episode %q", id)
	}
	return ep
}

func runEpisodesShow(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	ep := mustEpisode(store, args[0])
	transitions, err := store.Transitions(ep.ID)
	if err != nil {
		exitf("%v", err)
	}

	fmt.Printf("Episode   %s\n", ep.ID)
	fmt.Printf("Variant   %s\n", ep.Variant)
	fmt.Printf("Player    %s\n", ep.Player)
	fmt.Printf("Seed      %d\n", ep.Seed)
	fmt.Printf("Score     %d\n", ep.Score)
	fmt.Printf("Lines     %d\n", ep.Lines)
	fmt.Printf("Level     %d\n", ep.Level)
	fmt.Printf("Steps     %d (%d recorded)\n", ep.Steps, len(transitions))
	fmt.Printf("End       %s\n", ep.EndReason)
	fmt.Printf("Started   %s\n", ep.CreatedAt.Format(time.RFC3339))
	if !ep.FinishedAt.IsZero() {
		fmt.Printf("Finished  %s\n", ep.FinishedAt.Format(time.RFC3339))
	}

	var reward float64
	for _, t := range transitions {
		reward += t.Reward
	}
	if len(transitions) > 0 {
		fmt.Printf("Reward    %.2f\n", reward)
	}
}

// exportedEpisode is the JSON form written by "episodes export".
type exportedEpisode struct {
	ID          string               `json:"id"`
	Variant     string               `json:"variant"`
	Player      string               `json:"player"`
	Seed        int64                `json:"seed"`
	Score       int                  `json:"score"`
	Lines       int                  `json:"lines"`
	Level       int                  `json:"level"`
	Steps       int                  `json:"steps"`
	EndReason   string               `json:"end_reason"`
	CreatedAt   time.Time            `json:"created_at"`
	Transitions []exportedTransition `json:"transitions"`
}

type exportedTransition struct {
	Step         int     `json:"step"`
	Action       int     `json:"action"`
	Reward       float64 `json:"reward"`
	Score        int     `json:"score"`
	LinesCleared int     `json:"lines_cleared"`
	Terminated   bool    `json:"terminated"`
	Truncated    bool    `json:"truncated"`
}

func runEpisodesExport(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	ep := mustEpisode(store, args[0])
	transitions, err := store.Transitions(ep.ID)
	if err != nil {
		exitf("%v", err)
	}

	out := exportedEpisode{
		ID:          ep.ID,
		Variant:     ep.Variant,
		Player:      ep.Player,
		Seed:        ep.Seed,
		Score:       ep.Score,
		Lines:       ep.Lines,
		Level:       ep.Level,
		Steps:       ep.Steps,
		EndReason:   ep.EndReason,
		CreatedAt:   ep.CreatedAt,
		Transitions: make([]exportedTransition, len(transitions)),
	}
	for i, t := range transitions {
		out.Transitions[i] = exportedTransition{
			Step:         t.Step,
			Action:       t.Action,
			Reward:       t.Reward,
			Score:        t.Score,
			LinesCleared: t.LinesCleared,
			Terminated:   t.Terminated,
			Truncated:    t.Truncated,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		exitf("%v", err)
	}
}

func runEpisodesDelete(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	if err := store.DeleteEpisode(args[0]); err != nil {
		exitf("%v", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
}
