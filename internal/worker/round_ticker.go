package worker

import (
	"context"
	"sync"
	"time"

	"casino-server/common/logger"
	"casino-server/internal/config"
	"casino-server/internal/game"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/round"

	"go.uber.org/zap"
)

// 由后台主动推动的连续型游戏
var tickedGames = []string{round.GameCrash, round.GameLoto}

// StartRoundTicker 启动回合推进器，周期性兜底推进已过期回合。
// 即使没有该后台任务，读路径上的惰性推进也能保证回合收敛，
// 此任务只是降低首个读请求承担批量结算的概率。
// 通过 feature flag "round_ticker" 开启。
func StartRoundTicker(ctx context.Context, wg *sync.WaitGroup, rng game.Rand) {
	if !config.GetFeatureFlag("round_ticker") {
		return
	}
	roller := round.NewRoller(infmysql.SQLX(), rng).WithTrigger("ticker")
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		logger.Info("[ticker] round ticker started", zap.Strings("games", tickedGames))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, gameID := range tickedGames {
					c, cancel := context.WithTimeout(ctx, 3*time.Second)
					_, err := roller.Advance(c, gameID, time.Now())
					cancel()
					if err != nil {
						logger.Warn("[ticker] advance failed", zap.String("game_id", gameID), zap.Error(err))
					}
				}
			}
		}
	}()
}
