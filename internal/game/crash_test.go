package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawCrashPoint(t *testing.T) {
	draw := func(u float64) float64 {
		return DrawCrashPoint(&scriptedRand{floats: []float64{u}})
	}

	t.Run("low U clamps to 1.00", func(t *testing.T) {
		// 0.99/(1-0) = 0.99 -> floor 0.99 -> clamp to 1.00
		assert.Equal(t, 1.00, draw(0))
	})

	t.Run("known values", func(t *testing.T) {
		// 0.99/(1-0.5) = 1.98
		assert.InDelta(t, 1.98, draw(0.5), 1e-9)
		// 0.99/(1-0.9) = 9.9
		assert.InDelta(t, 9.90, draw(0.9), 1e-9)
	})

	t.Run("extreme U hits the cap", func(t *testing.T) {
		assert.Equal(t, CrashPointMax, draw(1-1e-9))
	})

	t.Run("always at least 1", func(t *testing.T) {
		r := NewRand()
		for i := 0; i < 10000; i++ {
			assert.GreaterOrEqual(t, DrawCrashPoint(r), 1.00)
		}
	})
}

// The crash point distribution encodes the house edge: the fraction of
// points below x should converge to 1 - 0.99/x.
func TestCrashPointDistribution(t *testing.T) {
	const samples = 200000
	r := NewRand()
	points := make([]float64, samples)
	for i := range points {
		points[i] = DrawCrashPoint(r)
	}

	for _, x := range []float64{1.5, 2.0, 3.0, 5.0, 10.0} {
		below := 0
		for _, p := range points {
			if p < x {
				below++
			}
		}
		got := float64(below) / samples
		want := 1 - 0.99/x
		assert.InDelta(t, want, got, 0.01, "fraction below %.1f", x)
	}
}

func TestMultiplierCurve(t *testing.T) {
	t.Run("starts at 1", func(t *testing.T) {
		assert.Equal(t, 1.00, MultiplierAt(0))
	})

	t.Run("monotonically increases", func(t *testing.T) {
		prev := 0.0
		for s := 0; s <= 60; s += 5 {
			m := MultiplierAt(time.Duration(s) * time.Second)
			assert.Greater(t, m, prev)
			prev = m
		}
	})

	t.Run("round trips with TimeToReach", func(t *testing.T) {
		for _, target := range []float64{1.5, 2.0, 2.53, 10.0} {
			d := TimeToReach(target)
			m := math.Exp(CrashGrowthK * d.Seconds())
			assert.InDelta(t, target, m, 1e-6)
		}
	})

	t.Run("TimeToReach at or below 1 is zero", func(t *testing.T) {
		assert.Zero(t, TimeToReach(1.0))
		assert.Zero(t, TimeToReach(0.5))
	})
}

func TestCrashPayout(t *testing.T) {
	// bet 100 at 1.80 -> 180
	assert.Equal(t, int64(180), CrashPayout(100, 1.80))
	// floor, never round up
	assert.Equal(t, int64(185), CrashPayout(103, 1.80))
	// large stakes keep exact precision
	assert.Equal(t, int64(12_345_678_900), CrashPayout(10_000_000_000, 1.23456789))

	require.Zero(t, CrashPayout(0, 2.0))
}
