package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 注单状态
// bill_status: 1=active 待结算 2=completed 已结算
// 注单一经结算不再回流：active -> completed 恰好发生一次
const (
	BillStatusActive    = 1
	BillStatusCompleted = 2
)

// BetOrder 对应 bet_orders 表，一行对应一次下注
// 即时游戏（dice/roulette/wheel/qlotto）在下注事务内直接以 completed 落库；
// 连续游戏（crash/loto）以 active 落库，等待兑付或回合结算
// (game_id, round_id, user_id) 唯一索引保证连续游戏同一回合同一玩家仅一个持仓
type BetOrder struct {
	BillNo         string `db:"bill_no"`          // 注单号(主键)
	GameID         string `db:"game_id"`          // 游戏ID: dice|roulette|wheel|qlotto|crash|loto
	RoundID        int64  `db:"round_id"`         // 连续游戏回合号；即时游戏为 0
	UserID         int64  `db:"user_id"`          // 用户ID（内部ID）
	PlatformID     int8   `db:"platform_id"`      // 平台ID
	PlatformUserID string `db:"platform_user_id"` // 平台用户ID
	BetAmount      int64  `db:"bet_amount"`       // 下注金额（分，非负）
	PayoutAmount   int64  `db:"payout_amount"`    // 派彩金额（分，结算前为0）
	BillStatus     int8   `db:"bill_status"`      // 结算状态
	BetSpec        string `db:"bet_spec"`         // 下注内容(JSON，按游戏而异)
	OutcomeData    string `db:"outcome_data"`     // 结果数据(JSON：骰面/轮盘号/兑付倍数/命中数字等)
	IdempotencyKey string `db:"idempotency_key"`  // 幂等键
	TraceID        string `db:"trace_id"`         // 链路追踪ID
	CreatedAt      int64  `db:"created_at"`       // 创建时间
	UpdatedAt      int64  `db:"updated_at"`       // 更新时间
}

// Insert 插入一条注单
// (game_id, round_id, user_id) 唯一索引冲突会返回 MySQL 1062，
// 调用方据此识别"同一回合重复下注"
func (o *BetOrder) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := `INSERT INTO bet_orders (bill_no, game_id, round_id, user_id, platform_id, platform_user_id,
		bet_amount, payout_amount, bill_status, bet_spec, outcome_data, idempotency_key, trace_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, o.BillNo, o.GameID, o.RoundID, o.UserID, o.PlatformID, o.PlatformUserID,
		o.BetAmount, o.PayoutAmount, o.BillStatus, o.BetSpec, o.OutcomeData, o.IdempotencyKey, o.TraceID, now, now)
	return err
}

// ListActiveByRoundForUpdate 按游戏+回合查询所有待结算注单（FOR UPDATE），需在事务中调用
// 回合结算器据此批量兑付；锁定注单行防止与兑付请求并发改写
func ListActiveByRoundForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string, roundID int64) ([]BetOrder, error) {
	sqlStr := `SELECT bill_no, game_id, round_id, user_id, platform_id, platform_user_id,
		bet_amount, payout_amount, bill_status, bet_spec, outcome_data, idempotency_key, trace_id, created_at, updated_at
		FROM bet_orders WHERE game_id = ? AND round_id = ? AND bill_status = ? FOR UPDATE`

	var list []BetOrder
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, gameID, roundID, BillStatusActive); err != nil {
		return nil, err
	}
	return list, nil
}

// GetActiveOrderForUpdate 查询玩家在某游戏某回合的待结算注单并加锁（兑付用）
func GetActiveOrderForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string, roundID, userID int64) (*BetOrder, error) {
	sqlStr := `SELECT bill_no, game_id, round_id, user_id, platform_id, platform_user_id,
		bet_amount, payout_amount, bill_status, bet_spec, outcome_data, idempotency_key, trace_id, created_at, updated_at
		FROM bet_orders WHERE game_id = ? AND round_id = ? AND user_id = ? AND bill_status = ? FOR UPDATE`

	var o BetOrder
	if err := sqlx.GetContext(ctx, exec, &o, sqlStr, gameID, roundID, userID, BillStatusActive); err != nil {
		return nil, err
	}
	return &o, nil
}

// HasOrderForRound 判断玩家在某游戏某回合是否已有注单（不限状态）
func HasOrderForRound(ctx context.Context, exec sqlx.ExtContext, gameID string, roundID, userID int64) (bool, error) {
	var cnt int
	sqlStr := "SELECT COUNT(1) FROM bet_orders WHERE game_id = ? AND round_id = ? AND user_id = ?"
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlStr, gameID, roundID, userID); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// SettleOrder 将注单从 active 流转为 completed 并写入派彩与结果
// WHERE 带 bill_status 条件：受影响行数为 0 意味着注单已被结算过，
// 调用方必须视为严重异常（恰好一次结算不变量被触碰）而非静默跳过
func SettleOrder(ctx context.Context, exec sqlx.ExtContext, billNo string, payout int64, outcomeJSON string) (int64, error) {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE bet_orders SET payout_amount = ?, bill_status = ?, outcome_data = ?, updated_at = ? WHERE bill_no = ? AND bill_status = ?"
	res, err := exec.ExecContext(ctx, sqlStr, payout, BillStatusCompleted, outcomeJSON, now, billNo, BillStatusActive)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListUserOrders 查询玩家注单（倒序，查询接口用）
func ListUserOrders(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID, gameID string, limit int) ([]BetOrder, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	var sqlStr string
	var args []interface{}

	if gameID != "" {
		sqlStr = `SELECT bill_no, game_id, round_id, user_id, platform_id, platform_user_id,
			bet_amount, payout_amount, bill_status, bet_spec, outcome_data, idempotency_key, trace_id, created_at, updated_at
			FROM bet_orders
			WHERE platform_id = ? AND platform_user_id = ? AND game_id = ?
			ORDER BY created_at DESC
			LIMIT ?`
		args = []interface{}{platformID, platformUserID, gameID, limit}
	} else {
		sqlStr = `SELECT bill_no, game_id, round_id, user_id, platform_id, platform_user_id,
			bet_amount, payout_amount, bill_status, bet_spec, outcome_data, idempotency_key, trace_id, created_at, updated_at
			FROM bet_orders
			WHERE platform_id = ? AND platform_user_id = ?
			ORDER BY created_at DESC
			LIMIT ?`
		args = []interface{}{platformID, platformUserID, limit}
	}

	var list []BetOrder
	if err := db.SelectContext(ctx, &list, sqlStr, args...); err != nil {
		return nil, err
	}
	return list, nil
}
