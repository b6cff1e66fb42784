package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/gauntlet/internal/config"
	"github.com/cory-johannsen/gauntlet/internal/game/actor"
	"github.com/cory-johannsen/gauntlet/internal/game/combat"
	"github.com/cory-johannsen/gauntlet/internal/game/dice"
	"github.com/cory-johannsen/gauntlet/internal/game/item"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
	"github.com/cory-johannsen/gauntlet/internal/game/status"
	"github.com/cory-johannsen/gauntlet/internal/observability"
	"github.com/cory-johannsen/gauntlet/internal/scripting"
)

// Content is everything loaded from the content directories.
type Content struct {
	Items     *item.Registry
	Statuses  *status.Registry
	Templates map[string]*actor.Template
	// Scripts is nil when no scripts directory exists.
	Scripts *scripting.Manager
}

// Close releases the Lua VM.
func (c *Content) Close() {
	if c.Scripts != nil {
		c.Scripts.Close()
	}
}

// LoadContent reads items, actor templates, Lua hook scripts and status
// definitions. The statuses and scripts directories are optional; loaded
// statuses extend the built-in set.
//
// Precondition: cfg.ItemsDir and cfg.ActorsDir must be readable directories.
// Postcondition: Returns the loaded content or the first error encountered.
func LoadContent(cfg config.ContentConfig, sc config.ScriptingConfig, seed uint64, logger *zap.Logger) (*Content, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	items, err := item.LoadDirectory(cfg.ItemsDir)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	templates, err := actor.LoadTemplates(cfg.ActorsDir)
	if err != nil {
		return nil, fmt.Errorf("loading actor templates: %w", err)
	}
	c := &Content{Items: items, Statuses: status.DefaultRegistry(), Templates: templates}

	var runner status.HookRunner
	if dirExists(cfg.ScriptsDir) {
		roller := dice.NewLoggedRoller(dice.NewSeededSource(seed), logger)
		c.Scripts = scripting.NewManager(roller, logger, sc.InstructionLimit)
		if err := c.Scripts.LoadDir(cfg.ScriptsDir); err != nil {
			c.Close()
			return nil, fmt.Errorf("loading scripts: %w", err)
		}
		runner = c.Scripts
	}
	if dirExists(cfg.StatusesDir) {
		defs, err := status.LoadDirectory(cfg.StatusesDir, runner)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("loading statuses: %w", err)
		}
		if c.Statuses, err = c.Statuses.With(defs...); err != nil {
			c.Close()
			return nil, fmt.Errorf("registering statuses: %w", err)
		}
	}
	logger.Info("content loaded",
		zap.Int("items", len(items.All())),
		zap.Int("statuses", len(c.Statuses.All())),
		zap.Int("templates", len(templates)),
		zap.Bool("scripts", c.Scripts != nil),
	)
	return c, nil
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && info.IsDir()
}

// RunResult is the outcome of one seeded encounter.
type RunResult struct {
	Run         int
	Seed        uint64
	EncounterID string
	// Winner is the winning actor's name, empty on a draw.
	Winner string
	Rounds int
	Events int
	Final  []*actor.State
}

// Simulator runs seeded duels between actor templates.
type Simulator struct {
	content   *Content
	cfg       combat.Config
	maxRounds int
	logger    *zap.Logger
}

// NewSimulator creates a Simulator.
//
// Precondition: content must be non-nil; maxRounds > 0.
func NewSimulator(content *Content, cfg combat.Config, maxRounds int, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{content: content, cfg: cfg, maxRounds: maxRounds, logger: logger}
}

// RunOne spawns one actor per template ID and runs a full encounter seeded by seed.
//
// Precondition: templateIDs names at least two loaded templates.
// Postcondition: Results are identical for identical seeds when no Lua hook rolls dice.
func (s *Simulator) RunOne(run int, seed uint64, templateIDs []string) (RunResult, error) {
	if len(templateIDs) < 2 {
		return RunResult{}, errors.New("an encounter needs at least two actors")
	}
	actors := make([]*actor.State, 0, len(templateIDs))
	for _, id := range templateIDs {
		tmpl, ok := s.content.Templates[id]
		if !ok {
			return RunResult{}, fmt.Errorf("unknown actor template %q", id)
		}
		a, err := tmpl.Spawn(s.content.Items)
		if err != nil {
			return RunResult{}, fmt.Errorf("spawning %q: %w", id, err)
		}
		resource.InitPools(a)
		actors = append(actors, a)
	}

	logger := observability.ForEncounter(s.logger, run, seed)
	src := dice.NewSeededSource(seed)
	engine := status.NewEngine(s.content.Statuses, src, logger)
	resolver := combat.NewResolver(engine, s.cfg, logger)
	loop := combat.NewTurnLoop(engine, combat.NewActions(resolver, s.cfg, logger), s.cfg, logger)

	res := loop.RunEncounter(actors, combat.AttackFirstLiving, src, s.maxRounds)
	out := RunResult{
		Run:         run,
		Seed:        seed,
		EncounterID: uuid.NewString(),
		Rounds:      res.Rounds,
		Events:      len(res.Events),
		Final:       actors,
	}
	if res.Winner != nil {
		out.Winner = res.Winner.Name
	}
	return out, nil
}

// RunBatch runs runs encounters concurrently, run i seeded with baseSeed+i.
// workers bounds concurrency; 0 means unbounded.
//
// Postcondition: Results are ordered by run index; the first error cancels the batch.
func (s *Simulator) RunBatch(ctx context.Context, templateIDs []string, runs int, baseSeed uint64, workers int) ([]RunResult, error) {
	results := make([]RunResult, runs)
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < runs; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.RunOne(i, baseSeed+uint64(i), templateIDs)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary aggregates a batch.
type Summary struct {
	Runs      int
	Wins      map[string]int
	Draws     int
	AvgRounds float64
}

// Summarize aggregates results.
func Summarize(results []RunResult) Summary {
	sum := Summary{Runs: len(results), Wins: make(map[string]int)}
	if len(results) == 0 {
		return sum
	}
	rounds := 0
	for _, r := range results {
		rounds += r.Rounds
		if r.Winner == "" {
			sum.Draws++
			continue
		}
		sum.Wins[r.Winner]++
	}
	sum.AvgRounds = float64(rounds) / float64(len(results))
	return sum
}

// Fields renders the summary as log fields with winners in name order.
func (s Summary) Fields() []zap.Field {
	names := make([]string, 0, len(s.Wins))
	for n := range s.Wins {
		names = append(names, n)
	}
	sort.Strings(names)
	fields := []zap.Field{
		zap.Int("runs", s.Runs),
		zap.Int("draws", s.Draws),
		zap.Float64("avg_rounds", s.AvgRounds),
	}
	for _, n := range names {
		fields = append(fields, zap.Int("wins."+n, s.Wins[n]))
	}
	return fields
}
