package service

import (
	"math"
	"testing"
	"time"

	"casino-server/internal/game"
	"casino-server/internal/model"
	"casino-server/internal/round"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 固定爆点 3.47 的测试局
func crashConfig(start time.Time) *model.GameConfig {
	return &model.GameConfig{
		GameID:         round.GameCrash,
		RoundID:        7,
		RoundStartTime: start.UnixMilli(),
		OutcomeParams:  `{"crash_point":3.47}`,
		History:        "[]",
	}
}

func TestBuildRoundStateCrashBetting(t *testing.T) {
	start := time.Now()
	cfg := crashConfig(start)

	out, expired, err := buildRoundState(start.Add(2*time.Second), round.GameCrash, cfg)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, string(round.PhaseBetting), out.Phase)
	assert.Equal(t, 1.00, out.Multiplier)
	assert.Zero(t, out.CrashPoint)
	// 投注期的切换时刻是固定的起飞点，不含任何结果信息
	assert.Equal(t, start.Add(round.CrashBettingDur).UnixMilli(), out.NextTransition)
}

// 飞行中响应不能携带任何可反推爆点的字段：
// 曲线 m(t)=e^(k·t) 的 k 是公开常数，若爆点时刻可见，
// 任何客户端都能在局中算出爆点并在其之前兑付
func TestBuildRoundStateCrashFlyingHidesOutcome(t *testing.T) {
	start := time.Now()
	cfg := crashConfig(start)

	// 3.47 倍约在起飞后 14.9 秒到达，+15s 处于飞行中段
	now := start.Add(round.CrashBettingDur).Add(5 * time.Second)
	out, expired, err := buildRoundState(now, round.GameCrash, cfg)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, string(round.PhaseFlying), out.Phase)
	assert.Greater(t, out.Multiplier, 1.00)

	assert.Zero(t, out.CrashPoint)
	assert.Zero(t, out.NextTransition)

	// 响应里任何晚于起飞点的时间字段都等价于公布爆点：
	// recovered = e^(k·(ts-起飞)) 会精确还原出 3.47
	flyStartMs := out.RoundStart + round.CrashBettingDur.Milliseconds()
	for _, ms := range []int64{out.NextTransition, out.RoundStart} {
		if ms > flyStartMs {
			recovered := math.Exp(game.CrashGrowthK * float64(ms-flyStartMs) / 1000)
			t.Fatalf("flying response leaked post-takeoff timestamp %d (recovers crash point %.4f)", ms, recovered)
		}
	}
}

func TestBuildRoundStateCrashCrashedRevealsOutcome(t *testing.T) {
	start := time.Now()
	cfg := crashConfig(start)

	crashAt := start.Add(round.CrashBettingDur).Add(game.TimeToReach(3.47))
	out, expired, err := buildRoundState(crashAt.Add(time.Second), round.GameCrash, cfg)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, string(round.PhaseCrashed), out.Phase)
	assert.Equal(t, 3.47, out.CrashPoint)
	// 局终后才公布下一局边界
	assert.Greater(t, out.NextTransition, int64(0))
}

func TestBuildRoundStateExpiredFlag(t *testing.T) {
	start := time.Now().Add(-5 * time.Minute)
	cfg := crashConfig(start)

	_, expired, err := buildRoundState(time.Now(), round.GameCrash, cfg)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestBuildRoundStateLoto(t *testing.T) {
	cfg := &model.GameConfig{
		GameID:         round.GameLoto,
		RoundID:        3,
		RoundStartTime: time.Now().UnixMilli(),
		OutcomeParams:  "{}",
		History:        "[]",
	}
	out, expired, err := buildRoundState(time.Now(), round.GameLoto, cfg)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, string(round.PhaseOpen), out.Phase)
	assert.Greater(t, out.NextTransition, int64(0))
}
