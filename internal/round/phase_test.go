package round

import (
	"encoding/json"
	"testing"
	"time"

	"casino-server/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCrash(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	startMs := start.UnixMilli()
	const crashPoint = 2.50

	flyStart := start.Add(CrashBettingDur)
	crashAt := flyStart.Add(game.TimeToReach(crashPoint))
	roundEnd := crashAt.Add(CrashCooldownDur)

	t.Run("betting window", func(t *testing.T) {
		st := ResolveCrash(start.Add(3*time.Second), startMs, crashPoint)
		assert.Equal(t, PhaseBetting, st.Phase)
		assert.Equal(t, 1.00, st.Multiplier)
		assert.Equal(t, flyStart, st.NextAt)
		assert.False(t, st.Expired)
	})

	t.Run("flying multiplier grows", func(t *testing.T) {
		st := ResolveCrash(flyStart.Add(5*time.Second), startMs, crashPoint)
		assert.Equal(t, PhaseFlying, st.Phase)
		assert.Greater(t, st.Multiplier, 1.00)
		assert.Less(t, st.Multiplier, crashPoint)
		assert.Equal(t, crashAt, st.NextAt)
	})

	t.Run("crashed cooldown", func(t *testing.T) {
		st := ResolveCrash(crashAt.Add(time.Second), startMs, crashPoint)
		assert.Equal(t, PhaseCrashed, st.Phase)
		assert.Equal(t, crashPoint, st.Multiplier)
		assert.False(t, st.Expired)
	})

	t.Run("expired after cooldown", func(t *testing.T) {
		st := ResolveCrash(roundEnd, startMs, crashPoint)
		assert.Equal(t, PhaseCrashed, st.Phase)
		assert.True(t, st.Expired)
	})

	t.Run("deterministic for equal inputs", func(t *testing.T) {
		at := flyStart.Add(2 * time.Second)
		a := ResolveCrash(at, startMs, crashPoint)
		b := ResolveCrash(at, startMs, crashPoint)
		assert.Equal(t, a, b)
	})
}

// A handler that was idle across many full rounds must still see the next
// round start exactly one boundary after the expired one, never at "now".
func TestNextCrashStartIsSingleBoundary(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	const crashPoint = 2.0

	next := NextCrashStart(start.UnixMilli(), crashPoint)
	want := start.Add(CrashBettingDur).Add(game.TimeToReach(crashPoint)).Add(CrashCooldownDur)
	assert.Equal(t, want, next)

	// hours later the boundary is unchanged
	assert.Equal(t, next, NextCrashStart(start.UnixMilli(), crashPoint))
}

func TestResolveLoto(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 17, 30, 0, time.UTC)
	startMs := start.UnixMilli()
	drawAt := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)

	t.Run("open before the hour", func(t *testing.T) {
		st := ResolveLoto(start.Add(10*time.Minute), startMs)
		assert.Equal(t, PhaseOpen, st.Phase)
		assert.Equal(t, drawAt, st.DrawAt)
		assert.False(t, st.Expired)
	})

	t.Run("expired exactly at the hour", func(t *testing.T) {
		st := ResolveLoto(drawAt, startMs)
		assert.True(t, st.Expired)
	})

	t.Run("round starting on the hour draws next hour", func(t *testing.T) {
		onHour := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
		st := ResolveLoto(onHour.Add(time.Minute), onHour.UnixMilli())
		assert.Equal(t, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), st.DrawAt)
	})
}

func TestParseParams(t *testing.T) {
	t.Run("crash params", func(t *testing.T) {
		p, err := ParseCrashParams(`{"crash_point":2.53}`)
		require.NoError(t, err)
		assert.Equal(t, 2.53, p.CrashPoint)

		_, err = ParseCrashParams(`{}`)
		assert.Error(t, err)
		_, err = ParseCrashParams(`not json`)
		assert.Error(t, err)
	})

	t.Run("loto params empty until draw", func(t *testing.T) {
		p, err := ParseLotoParams(`{}`)
		require.NoError(t, err)
		assert.Empty(t, p.Numbers)

		p, err = ParseLotoParams(`{"numbers":[3,7,12,25,36]}`)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 7, 12, 25, 36}, p.Numbers)
	})
}

func TestAppendHistory(t *testing.T) {
	h := "[]"
	for i := 1; i <= historyLimit+5; i++ {
		h = appendHistory(h, map[string]any{"round_id": i})
	}

	var entries []map[string]int
	require.NoError(t, json.Unmarshal([]byte(h), &entries))
	require.Len(t, entries, historyLimit)
	// oldest entries dropped, newest kept
	assert.Equal(t, 6, entries[0]["round_id"])
	assert.Equal(t, historyLimit+5, entries[len(entries)-1]["round_id"])
}
