package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/blockfall/internal/envserver"
	"github.com/vovakirdan/blockfall/internal/storage"
)

var (
	flagAddr        string
	flagRecord      bool
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve agent environments over HTTP",
	Long: `Start an HTTP/JSON server that hosts agent environments.

Endpoints:
  POST   /v1/envs              create {seed, variant} -> {id, observation, info}
  POST   /v1/envs/{id}/reset   reset {seed}
  POST   /v1/envs/{id}/step    step {action} -> {observation, reward, terminated, truncated, info}
  GET    /v1/envs/{id}         observation and rendered board
  DELETE /v1/envs/{id}         drop an environment
  GET    /v1/envs              list environment IDs
  GET    /v1/spaces            action count and observation shape
  GET    /v1/variants          rule variants
  GET    /health               liveness

Actions: 0 noop, 1 left, 2 right, 3 rotate, 4 soft drop, 5 hard drop.

Examples:
  blockfall serve                       # Listen on :8080
  blockfall serve --addr 127.0.0.1:9000
  blockfall serve --record              # Store every episode in --db`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "HTTP listen address (host:port)")
	serveCmd.Flags().BoolVar(&flagRecord, "record", false, "Record episodes into the episode database")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Minutes before an unused environment is dropped (0 = never)")
}

func runServe(_ *cobra.Command, _ []string) {
	logger := newLogger("serve")

	var store *storage.Store
	if flagRecord {
		var err error
		store, err = storage.Open(flagDBPath)
		if err != nil {
			exitf("opening episode database: %v", err)
		}
		defer store.Close()
		logger.Info("recording episodes", "db", flagDBPath)
	}

	// fail fast on a bad default variant or config file
	if _, err := loadRules(flagVariant); err != nil {
		exitf("%v", err)
	}

	server := envserver.New(envserver.Options{
		Logger:         logger,
		Store:          store,
		Rules:          loadRules,
		DefaultVariant: flagVariant,
		IdleTimeout:    time.Duration(flagIdleTimeout) * time.Minute,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, flagAddr); err != nil {
		logger.Error("server error", "err", err)
		stop()
		os.Exit(1)
	}
}
