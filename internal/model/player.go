package model

import (
	"context"
	"database/sql"
	"time"

	"casino-server/common/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Player 玩家表（players）
// 玩家唯一标识 = platform_id + platform_user_id
// 金额统一使用最小货币单位（分），BIGINT 存储，杜绝浮点误差
// total_deposited / total_wagered 为单调递增的审计计数器，只增不减
type Player struct {
	ID             int64  `db:"user_id"`          // 自增ID（内部使用）
	PlatformID     int8   `db:"platform_id"`      // 平台ID
	PlatformUserID string `db:"platform_user_id"` // 平台用户ID
	Username       string `db:"username"`         // 用户名（可选）
	Balance        int64  `db:"balance"`          // 余额（分），恒 >= 0
	TotalDeposited int64  `db:"total_deposited"`  // 累计充值（分）
	TotalWagered   int64  `db:"total_wagered"`    // 累计投注（分）
	Status         int8   `db:"status"`           // 状态: 1=正常 0=禁用
	CreatedAt      int64  `db:"created_at"`       // 创建时间（13位毫秒时间戳）
	UpdatedAt      int64  `db:"updated_at"`       // 更新时间（13位毫秒时间戳）
}

const playerColumns = `user_id, platform_id, platform_user_id, username, balance,
	total_deposited, total_wagered, status, created_at, updated_at`

// GetPlayerByPlatformUser 根据平台ID和平台用户ID查询玩家（不加锁）
func GetPlayerByPlatformUser(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID string) (*Player, error) {
	query := `SELECT ` + playerColumns + `
	          FROM players
	          WHERE platform_id = ? AND platform_user_id = ?
	          LIMIT 1`

	var p Player
	err := db.GetContext(ctx, &p, query, platformID, platformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get player by platform user failed",
			zap.Int8("platform_id", platformID),
			zap.String("platform_user_id", platformUserID),
			zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// GetPlayerByPlatformUserForUpdate 根据平台ID和平台用户ID查询玩家（加锁）
// 必须在事务中调用；所有余额变更前都要先通过本函数锁定玩家行，
// 保证同一账户的扣款/派彩串行化，避免并发交错导致丢失更新
func GetPlayerByPlatformUserForUpdate(ctx context.Context, exec sqlx.ExtContext, platformID int8, platformUserID string) (*Player, error) {
	query := `SELECT ` + playerColumns + `
	          FROM players
	          WHERE platform_id = ? AND platform_user_id = ?
	          FOR UPDATE`

	var p Player
	err := sqlx.GetContext(ctx, exec, &p, query, platformID, platformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get player by platform user for update failed",
			zap.Int8("platform_id", platformID),
			zap.String("platform_user_id", platformUserID),
			zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// GetPlayerByIDForUpdate 根据内部ID查询玩家（加锁）
// 必须在事务中调用
func GetPlayerByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, userID int64) (*Player, error) {
	query := `SELECT ` + playerColumns + `
	          FROM players
	          WHERE user_id = ?
	          FOR UPDATE`

	var p Player
	err := sqlx.GetContext(ctx, exec, &p, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get player by id for update failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	return &p, nil
}

// Insert 插入玩家
func (p *Player) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO players (platform_id, platform_user_id, username, balance, total_deposited, total_wagered, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, query,
		p.PlatformID, p.PlatformUserID, p.Username, p.Balance, p.TotalDeposited, p.TotalWagered, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Error("insert player failed",
			zap.Int8("platform_id", p.PlatformID),
			zap.String("platform_user_id", p.PlatformUserID),
			zap.Error(err))
		return err
	}

	id, _ := result.LastInsertId()
	p.ID = id

	logger.Info("player created",
		zap.Int64("id", p.ID),
		zap.Int8("platform_id", p.PlatformID),
		zap.String("platform_user_id", p.PlatformUserID))

	return nil
}

// UpdatePlayerBalance 更新玩家余额（分）
// wagered/deposited 为对应计数器的增量（可为0），与余额变更同一条 SQL 原子执行
func UpdatePlayerBalance(ctx context.Context, exec sqlx.ExtContext, userID int64, newBalance, wageredDelta, depositedDelta int64) error {
	now := time.Now().UnixMilli()
	query := `UPDATE players SET balance = ?, total_wagered = total_wagered + ?, total_deposited = total_deposited + ?, updated_at = ? WHERE user_id = ?`

	_, err := exec.ExecContext(ctx, query, newBalance, wageredDelta, depositedDelta, now, userID)
	if err != nil {
		logger.Error("update player balance failed",
			zap.Int64("user_id", userID),
			zap.Int64("new_balance", newBalance),
			zap.Error(err))
		return err
	}

	return nil
}

// GetPlayerBalance 获取玩家余额（非锁查询）
func GetPlayerBalance(ctx context.Context, db *sqlx.DB, platformID int8, platformUserID string) (int64, error) {
	query := `SELECT balance FROM players WHERE platform_id = ? AND platform_user_id = ? LIMIT 1`

	var balance int64
	err := db.GetContext(ctx, &balance, query, platformID, platformUserID)
	if err != nil {
		logger.Error("get player balance failed",
			zap.Int8("platform_id", platformID),
			zap.String("platform_user_id", platformUserID),
			zap.Error(err))
		return 0, err
	}

	return balance, nil
}

// UpdatePlayerStatus 更新玩家状态（风控封禁/解封）
func UpdatePlayerStatus(ctx context.Context, exec sqlx.ExtContext, userID int64, status int8) (int64, error) {
	now := time.Now().UnixMilli()
	query := `UPDATE players SET status = ?, updated_at = ? WHERE user_id = ?`

	res, err := exec.ExecContext(ctx, query, status, now, userID)
	if err != nil {
		logger.Error("update player status failed",
			zap.Int64("user_id", userID),
			zap.Int8("status", status),
			zap.Error(err))
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
