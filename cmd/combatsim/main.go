// Package main runs seeded combat encounters between actor templates and
// reports the outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gauntlet/internal/config"
	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/observability"
	"github.com/cory-johannsen/gauntlet/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	actors := flag.String("actors", "", "comma-separated actor template IDs (at least two)")
	runs := flag.Int("runs", 0, "number of encounters (0 = simulation.runs)")
	seed := flag.Uint64("seed", 0, "base RNG seed (0 = simulation.seed)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *runs > 0 {
		cfg.Simulation.Runs = *runs
	}
	if *seed > 0 {
		cfg.Simulation.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ids := splitIDs(*actors)
	if len(ids) < 2 {
		logger.Fatal("at least two actor template IDs are required", zap.String("actors", *actors))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := LoadContent(cfg.Content, cfg.Scripting, cfg.Simulation.Seed, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer content.Close()

	sim := NewSimulator(content, cfg.Combat.Engine(), cfg.Simulation.MaxRounds, logger)
	results, err := sim.RunBatch(ctx, ids, cfg.Simulation.Runs, cfg.Simulation.Seed, cfg.Simulation.Workers)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if cfg.Simulation.Persist {
		if err := persist(ctx, cfg.Database, results, logger); err != nil {
			logger.Fatal("persisting snapshots", zap.Error(err))
		}
	}

	logger.Info("simulation complete",
		append(Summarize(results).Fields(), zap.Duration("elapsed", time.Since(start)))...,
	)
}

// persist saves the final snapshot of every actor of every run.
func persist(ctx context.Context, dbCfg config.DatabaseConfig, results []RunResult, logger *zap.Logger) error {
	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := pool.Snapshots()
	saved := 0
	for _, r := range results {
		snaps := make([]actor.Snapshot, len(r.Final))
		for i, a := range r.Final {
			snaps[i] = a.Snapshot()
		}
		n, err := repo.SaveEncounter(ctx, r.EncounterID, snaps)
		if err != nil {
			return fmt.Errorf("run %d: %w", r.Run, err)
		}
		saved += n
	}
	logger.Info("snapshots persisted", zap.Int("count", saved))
	return nil
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
