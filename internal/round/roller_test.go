package round

import (
	"context"
	"sync"
	"testing"
	"time"

	"casino-server/internal/game"
	"casino-server/internal/model"
	"casino-server/internal/testutil"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCrashRound(t *testing.T, db sqlx.ExtContext, start time.Time, crashPoint float64) {
	t.Helper()
	cfg := &model.GameConfig{
		GameID:         GameCrash,
		RoundID:        1,
		RoundStartTime: start.UnixMilli(),
		OutcomeParams:  mustJSON(CrashParams{CrashPoint: crashPoint}),
		History:        "[]",
	}
	require.NoError(t, cfg.InsertGameConfig(context.Background(), db))
}

func settlementCount(t *testing.T, db *sqlx.DB, gameID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n,
		"SELECT COUNT(1) FROM settlement_log WHERE game_id = ?", gameID))
	return n
}

// N 个并发推进者竞争同一个过期回合，只允许结算一次
func TestRollerConcurrentAdvanceSettlesOnce(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	// 爆点 2.00 对应整局约 23.3 秒，回退 30 秒恰好只跨一个回合边界
	now := time.Now()
	seedCrashRound(t, td.DB, now.Add(-30*time.Second), 2.00)

	roller := NewRoller(td.DB, game.NewRand())

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := roller.Advance(ctx, GameCrash, now)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cfg, err := model.GetGameConfig(ctx, td.DB, GameCrash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cfg.RoundID)

	assert.Equal(t, 1, settlementCount(t, td.DB, GameCrash))

	var outboxRows int
	require.NoError(t, td.DB.Get(&outboxRows,
		"SELECT COUNT(1) FROM outbox WHERE topic = ? AND biz_key = ?", TopicRoundSettled, "crash:1"))
	assert.Equal(t, 1, outboxRows)
}

// 长时间停摆后惰性补推：逐轮结算到当前，每个已过期回合恰好一条结算记录
func TestRollerCatchUpAfterOutage(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	now := time.Now()
	seedCrashRound(t, td.DB, now.Add(-2*time.Minute), 2.00)

	roller := NewRoller(td.DB, game.NewRand())
	cfg, err := roller.Advance(ctx, GameCrash, now)
	require.NoError(t, err)

	expired, err := roller.isExpired(now, cfg)
	require.NoError(t, err)
	assert.False(t, expired, "advance should converge on a live round")

	assert.GreaterOrEqual(t, cfg.RoundID, int64(2))
	assert.Equal(t, int(cfg.RoundID-1), settlementCount(t, td.DB, GameCrash))
}

func TestRollerEnsureGameIdempotent(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	roller := NewRoller(td.DB, game.NewRand())
	require.NoError(t, roller.EnsureGame(ctx, GameCrash))
	require.NoError(t, roller.EnsureGame(ctx, GameCrash))

	cfg, err := model.GetGameConfig(ctx, td.DB, GameCrash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.RoundID)
	params, err := ParseCrashParams(cfg.OutcomeParams)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, params.CrashPoint, 1.00)
}
