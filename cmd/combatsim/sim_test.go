package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gauntlet/internal/config"
	"github.com/cory-johannsen/gauntlet/internal/game/combat"
	"github.com/cory-johannsen/gauntlet/internal/game/resource"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
}

func testContent(t *testing.T) config.ContentConfig {
	t.Helper()
	root := t.TempDir()
	cfg := config.ContentConfig{
		ItemsDir:    filepath.Join(root, "items"),
		StatusesDir: filepath.Join(root, "statuses"),
		ActorsDir:   filepath.Join(root, "actors"),
		ScriptsDir:  filepath.Join(root, "scripts"),
	}
	writeFiles(t, cfg.ItemsDir, map[string]string{
		"blade.yaml":  "id: blade\nname: Blade\nslot: main_hand\nweapon: {damage: 1d6+2, type: physical, ap: 80}\n",
		"brand.yaml":  "id: brand\nname: Cinder Brand\nslot: hands\nbrands: [{type: physical, on_hit: [{id: scorch, chance: 0.5}]}]\n",
		"club.yaml":   "id: club\nname: Club\nslot: main_hand\nweapon: {damage: 1d4, type: physical, ap: 100}\n",
	})
	writeFiles(t, cfg.ActorsDir, map[string]string{
		"duelist.yaml": "id: duelist\nname: Duelist\nstats: {dex: 14, max_hp: 40, max_stamina: 20}\nequipment: {main_hand: blade, hands: brand}\n",
		"brute.yaml":   "id: brute\nname: Brute\nstats: {dex: 8, max_hp: 30, max_stamina: 20}\nequipment: {main_hand: club}\n",
	})
	writeFiles(t, cfg.StatusesDir, map[string]string{
		"scorch.yaml": "id: scorch\nname: Scorch\nstacking: add_stacks\nmax_stacks: 3\ntick_every: 1\ndefault_duration: 2\nlua_on_tick: scorch_tick\n",
	})
	writeFiles(t, cfg.ScriptsDir, map[string]string{
		"scorch.lua": "function scorch_tick(host, id, stacks, potency, turn) return stacks end\n",
	})
	return cfg
}

func newSim(t *testing.T, logger *zap.Logger) *Simulator {
	t.Helper()
	content, err := LoadContent(testContent(t), config.ScriptingConfig{}, 1, logger)
	require.NoError(t, err)
	t.Cleanup(content.Close)
	return NewSimulator(content, combat.DefaultConfig(), 60, logger)
}

func TestLoadContent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	content, err := LoadContent(testContent(t), config.ScriptingConfig{}, 1, zap.New(core))
	require.NoError(t, err)
	defer content.Close()

	_, ok := content.Statuses.Get("scorch")
	assert.True(t, ok)
	_, ok = content.Statuses.Get("burn")
	assert.True(t, ok, "built-in statuses are kept")
	assert.NotNil(t, content.Scripts)
	assert.True(t, content.Scripts.HasHook("scorch_tick"))
	assert.Len(t, content.Templates, 2)
	assert.Equal(t, 1, logs.FilterMessage("content loaded").Len())
}

func TestLoadContent_NilLoggerWithScripts(t *testing.T) {
	cfg := testContent(t)
	require.NotEmpty(t, cfg.ScriptsDir)
	content, err := LoadContent(cfg, config.ScriptingConfig{}, 1, nil)
	require.NoError(t, err)
	t.Cleanup(content.Close)
	assert.NotNil(t, content.Scripts)
}

func TestLoadContent_OptionalDirs(t *testing.T) {
	cfg := testContent(t)
	cfg.StatusesDir = ""
	cfg.ScriptsDir = filepath.Join(t.TempDir(), "missing")
	content, err := LoadContent(cfg, config.ScriptingConfig{}, 1, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, content.Scripts)
	_, ok := content.Statuses.Get("scorch")
	assert.False(t, ok)
}

func TestLoadContent_MissingItems(t *testing.T) {
	cfg := testContent(t)
	cfg.ItemsDir = filepath.Join(t.TempDir(), "nope")
	_, err := LoadContent(cfg, config.ScriptingConfig{}, 1, zap.NewNop())
	assert.Error(t, err)
}

func TestRunOne_ProducesOutcome(t *testing.T) {
	sim := newSim(t, nil)
	r, err := sim.RunOne(0, 7, []string{"duelist", "brute"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.EncounterID)
	assert.Positive(t, r.Rounds)
	assert.Positive(t, r.Events)
	require.Len(t, r.Final, 2)
	if r.Winner != "" {
		defeated := 0
		for _, a := range r.Final {
			if resource.IsDefeated(a) {
				defeated++
			}
		}
		assert.Equal(t, 1, defeated)
	}
}

func TestRunOne_SameSeedSameOutcome(t *testing.T) {
	sim := newSim(t, nil)
	a, err := sim.RunOne(0, 11, []string{"duelist", "brute"})
	require.NoError(t, err)
	b, err := sim.RunOne(0, 11, []string{"duelist", "brute"})
	require.NoError(t, err)
	assert.Equal(t, a.Winner, b.Winner)
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.Events, b.Events)
	for i := range a.Final {
		assert.Equal(t, a.Final[i].HP(), b.Final[i].HP())
	}
}

func TestRunOne_Errors(t *testing.T) {
	sim := newSim(t, nil)
	_, err := sim.RunOne(0, 1, []string{"duelist"})
	assert.Error(t, err)
	_, err = sim.RunOne(0, 1, []string{"duelist", "ghost"})
	assert.Error(t, err)
}

func TestRunBatch_OrderedAndSummarized(t *testing.T) {
	sim := newSim(t, nil)
	results, err := sim.RunBatch(context.Background(), []string{"duelist", "brute"}, 8, 100, 3)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, i, r.Run)
		assert.Equal(t, uint64(100+i), r.Seed)
	}

	sum := Summarize(results)
	assert.Equal(t, 8, sum.Runs)
	wins := sum.Draws
	for _, n := range sum.Wins {
		wins += n
	}
	assert.Equal(t, 8, wins)
	assert.Positive(t, sum.AvgRounds)
	assert.NotEmpty(t, sum.Fields())
}

func TestRunBatch_PropagatesError(t *testing.T) {
	sim := newSim(t, nil)
	_, err := sim.RunBatch(context.Background(), []string{"duelist", "ghost"}, 4, 1, 2)
	assert.Error(t, err)
}

func TestRunBatch_CancelledContext(t *testing.T) {
	sim := newSim(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.RunBatch(ctx, []string{"duelist", "brute"}, 4, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	assert.Zero(t, sum.Runs)
	assert.Zero(t, sum.AvgRounds)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b "))
	assert.Nil(t, splitIDs(""))
}

func TestShippedContent(t *testing.T) {
	root := filepath.Join("..", "..", "content")
	cfg := config.ContentConfig{
		ItemsDir:    filepath.Join(root, "items"),
		StatusesDir: filepath.Join(root, "statuses"),
		ActorsDir:   filepath.Join(root, "actors"),
		ScriptsDir:  filepath.Join(root, "scripts"),
	}
	content, err := LoadContent(cfg, config.ScriptingConfig{}, 1, zap.NewNop())
	require.NoError(t, err)
	defer content.Close()

	for _, id := range []string{"frostbite", "mending"} {
		_, ok := content.Statuses.Get(id)
		assert.True(t, ok, id)
	}
	sim := NewSimulator(content, combat.DefaultConfig(), 100, nil)
	for _, pair := range [][]string{{"duelist", "ironclad"}, {"frost_mage", "duelist"}, {"ironclad", "frost_mage"}} {
		r, err := sim.RunOne(0, 5, pair)
		require.NoError(t, err, "%v", pair)
		assert.Positive(t, r.Rounds)
	}
}
