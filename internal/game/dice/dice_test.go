package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gauntlet/internal/game/dice"
)

// fixedSource returns queued values in order, then zero.
type fixedSource struct{ vals []int }

func (f *fixedSource) Intn(n int) int {
	if len(f.vals) == 0 {
		return 0
	}
	v := f.vals[0]
	f.vals = f.vals[1:]
	return v % n
}

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in    string
		count int
		sides int
		mod   int
		kh    int
	}{
		{"d20", 1, 20, 0, 0},
		{"2d6", 2, 6, 0, 0},
		{"2d6+3", 2, 6, 3, 0},
		{"4d8-2", 4, 8, -2, 0},
		{"4d6kh3", 4, 6, 0, 3},
		{"4d6kh3+1", 4, 6, 1, 3},
		{"3", 0, 0, 3, 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
			assert.Equal(t, tc.kh, e.KeepHighest)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "xd6", "2d1", "2dx", "4d6kh4", "2d6+x"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestRoll_ConstantUsesNoSource(t *testing.T) {
	res := dice.Roll(dice.MustParse("5"), nil)
	assert.Equal(t, 5, res.Total())
	assert.Empty(t, res.Dice)
}

func TestRoll_KeepHighest(t *testing.T) {
	src := &fixedSource{vals: []int{0, 5, 2, 3}}
	res := dice.Roll(dice.MustParse("4d6kh2"), src)
	assert.Equal(t, []int{6, 4}, res.Dice)
}

func TestChance_Bounds(t *testing.T) {
	src := &fixedSource{}
	assert.False(t, dice.Chance(src, 0))
	assert.False(t, dice.Chance(src, -1))
	assert.True(t, dice.Chance(src, 1))
	assert.True(t, dice.Chance(src, 0.5), "roll 0 is below 5000")
	src = &fixedSource{vals: []int{5000}}
	assert.False(t, dice.Chance(src, 0.5))
}

func TestSeededSource_Reproducible(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		a, b := dice.NewSeededSource(seed), dice.NewSeededSource(seed)
		for i := 0; i < 32; i++ {
			assert.Equal(rt, a.Intn(1000), b.Intn(1000))
		}
	})
}

func TestRoll_TotalInRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		seed := rapid.Uint64().Draw(rt, "seed")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides}
		res := dice.Roll(e, dice.NewSeededSource(seed))
		assert.GreaterOrEqual(rt, res.Total(), count)
		assert.LessOrEqual(rt, res.Total(), count*sides)
	})
}

func TestCryptoSource_Intn(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 200; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestRoller_LogsRoll(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewSeededSource(1), zap.New(core))
	_, err := r.RollExpr("2d6")
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dice roll", logs.All()[0].Message)
}
