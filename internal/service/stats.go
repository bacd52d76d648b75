package service

import (
	"context"
	"database/sql"
	"time"

	"casino-server/common"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/model"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// WalletStatsService 玩家投注统计（按自然日/周/月汇总账本）
type WalletStatsService struct{}

func NewWalletStatsService() *WalletStatsService { return &WalletStatsService{} }

type PeriodStats struct {
	Bets    int64  `json:"bets"`    // 投注笔数
	Wagered string `json:"wagered"` // 投注总额（元）
	Won     string `json:"won"`     // 派彩总额（元）
	Net     string `json:"net"`     // 净输赢（元，正为玩家盈利）
}

type WalletStatsOutput struct {
	UserID int64       `json:"user_id"`
	Today  PeriodStats `json:"today"`
	Week   PeriodStats `json:"week"`
	Month  PeriodStats `json:"month"`
}

// GetStats 汇总玩家在当日/当周/当月的投注与派彩
// 新玩家（尚无账户）返回全零统计
func (s *WalletStatsService) GetStats(ctx context.Context, platformID int8, platformUserID string) (*WalletStatsOutput, error) {
	db := infmysql.SQLX()

	player, err := model.GetPlayerByPlatformUser(ctx, db, platformID, platformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			zero := PeriodStats{Wagered: formatMinor(0), Won: formatMinor(0), Net: formatMinor(0)}
			return &WalletStatsOutput{Today: zero, Week: zero, Month: zero}, nil
		}
		return nil, err
	}

	now := time.Now()
	out := &WalletStatsOutput{UserID: player.ID}

	dayStart, dayEnd := common.GetTodayRange(now)
	weekStart, weekEnd := common.GetWeekRange(now)
	monthStart, monthEnd := common.GetMonthRange(now)

	if out.Today, err = s.periodStats(ctx, db, player.ID, dayStart, dayEnd); err != nil {
		return nil, err
	}
	if out.Week, err = s.periodStats(ctx, db, player.ID, weekStart, weekEnd); err != nil {
		return nil, err
	}
	if out.Month, err = s.periodStats(ctx, db, player.ID, monthStart, monthEnd); err != nil {
		return nil, err
	}
	return out, nil
}

// periodStats 汇总 [start, end) 区间内的账本（入参秒级，created_at 为毫秒时间戳）
func (s *WalletStatsService) periodStats(ctx context.Context, db *sqlx.DB, userID, startSec, endSec int64) (PeriodStats, error) {
	startMs, endMs := startSec*1000, endSec*1000

	betEx := g.Ex{
		"user_id":    userID,
		"kind":       model.LedgerKindBet,
		"status":     model.LedgerStatusCompleted,
		"created_at": g.Op{"gte": startMs, "lt": endMs},
	}
	winEx := g.Ex{
		"user_id":    userID,
		"kind":       model.LedgerKindWin,
		"status":     model.LedgerStatusCompleted,
		"created_at": g.Op{"gte": startMs, "lt": endMs},
	}

	bets, err := common.CountInfo(ctx, db, "wallet_ledger", "id", betEx)
	if err != nil {
		return PeriodStats{}, err
	}
	wageredSum, err := common.SumInfo(ctx, db, "wallet_ledger", "amount", betEx)
	if err != nil {
		return PeriodStats{}, err
	}
	wonSum, err := common.SumInfo(ctx, db, "wallet_ledger", "amount", winEx)
	if err != nil {
		return PeriodStats{}, err
	}

	// 投注在账本中记为负数
	wagered := -int64(wageredSum)
	won := int64(wonSum)
	return PeriodStats{
		Bets:    bets,
		Wagered: formatMinor(wagered),
		Won:     formatMinor(won),
		Net:     formatMinor(won - wagered),
	}, nil
}
