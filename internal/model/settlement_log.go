package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettlementLog 回合结算日志表（防止重复结算）
// (game_id, round_id) 唯一索引是"恰好一次结算"的第二道机械保证：
// CAS 推进失败的并发者根本走不到这里，万一走到也会被唯一键拦下
type SettlementLog struct {
	ID          int64  `db:"id"`           // 自增ID
	GameID      string `db:"game_id"`      // 游戏ID: crash|loto
	RoundID     int64  `db:"round_id"`     // 回合号
	Outcome     string `db:"outcome"`      // 回合结果(JSON：crash_point 或开奖号码)
	TotalOrders int    `db:"total_orders"` // 结算注单总数
	TotalPayout int64  `db:"total_payout"` // 总派彩金额（分）
	Operator    string `db:"operator"`     // 操作人（lazy-tick 时为 system）
	TraceID     string `db:"trace_id"`     // 链路追踪ID
	CreatedAt   int64  `db:"created_at"`   // 创建时间（13位毫秒时间戳）
}

// CreateSettlementLog 创建结算日志（利用唯一索引防止重复结算）
// 如果返回唯一键冲突错误，说明该回合已经结算过
func CreateSettlementLog(ctx context.Context, exec sqlx.ExtContext, log *SettlementLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO settlement_log (game_id, round_id, outcome, total_orders, total_payout, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.GameID, log.RoundID, log.Outcome, log.TotalOrders, log.TotalPayout, log.Operator, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}

// GetSettlementLog 查询结算日志
func GetSettlementLog(ctx context.Context, db *sqlx.DB, gameID string, roundID int64) (*SettlementLog, error) {
	sqlStr := `SELECT id, game_id, round_id, outcome, total_orders, total_payout, operator, trace_id, created_at
	           FROM settlement_log WHERE game_id = ? AND round_id = ? LIMIT 1`

	var log SettlementLog
	if err := db.GetContext(ctx, &log, sqlStr, gameID, roundID); err != nil {
		return nil, err
	}

	return &log, nil
}
