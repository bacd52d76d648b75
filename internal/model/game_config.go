package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// GameConfig 对应 game_config 表，每个连续游戏一行（crash / loto）
// 这是跨请求共享的唯一一份回合状态：所有阶段推导都是
// (当前时间, 本行) 的纯函数，不依赖任何常驻进程
// round_id 单调递增，同时充当乐观并发的版本号（CAS token）
// outcome_params 为本回合预生成的结果参数(JSON)：
//   - crash: {"crash_point":2.53} 开局即生成，回合内绝不重算
//   - loto:  开奖前为空对象 {}，号码在开奖事务内才生成落库，
//     保证未来结果在揭晓前不可读
type GameConfig struct {
	GameID         string `db:"game_id"`          // 游戏ID(主键): crash|loto
	RoundID        int64  `db:"round_id"`         // 回合号（单调递增，CAS 版本号）
	RoundStartTime int64  `db:"round_start_time"` // 回合开始时间（毫秒时间戳）
	OutcomeParams  string `db:"outcome_params"`   // 预生成结果参数(JSON)
	History        string `db:"history"`          // 最近N期结果(JSON数组，有界)
	UpdatedAt      int64  `db:"updated_at"`       // 更新时间
}

// GetGameConfig 读取游戏回合配置（不加锁），不存在返回 sql.ErrNoRows
func GetGameConfig(ctx context.Context, exec sqlx.ExtContext, gameID string) (*GameConfig, error) {
	sqlStr := `SELECT game_id, round_id, round_start_time, outcome_params, history, updated_at
		FROM game_config WHERE game_id = ?`
	var c GameConfig
	if err := sqlx.GetContext(ctx, exec, &c, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetGameConfigForUpdate 读取游戏回合配置并加锁，必须在事务中调用
// 回合推进者与兑付请求都以此行锁串行化对同一游戏回合状态的判定
func GetGameConfigForUpdate(ctx context.Context, exec sqlx.ExtContext, gameID string) (*GameConfig, error) {
	sqlStr := `SELECT game_id, round_id, round_start_time, outcome_params, history, updated_at
		FROM game_config WHERE game_id = ? FOR UPDATE`
	var c GameConfig
	if err := sqlx.GetContext(ctx, exec, &c, sqlStr, gameID); err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertGameConfig 首次建局（bootstrap）
// 主键冲突返回 MySQL 1062：并发建局时由唯一键收敛为单行
func (c *GameConfig) InsertGameConfig(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO game_config (game_id, round_id, round_start_time, outcome_params, history, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, c.GameID, c.RoundID, c.RoundStartTime, c.OutcomeParams, c.History, now)
	return err
}

// AdvanceGameConfig 以 CAS 方式推进回合：仅当 round_id 仍等于 fromRoundID 时生效
// 返回 false 表示另一个并发请求已经完成了推进，调用方应重读新状态继续，
// 绝不能重试结算（恰好一次推进的机械保证）
func AdvanceGameConfig(ctx context.Context, exec sqlx.ExtContext, gameID string, fromRoundID int64, next *GameConfig) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := `UPDATE game_config SET round_id = ?, round_start_time = ?, outcome_params = ?, history = ?, updated_at = ?
		WHERE game_id = ? AND round_id = ?`
	res, err := exec.ExecContext(ctx, sqlStr, next.RoundID, next.RoundStartTime, next.OutcomeParams, next.History, now, gameID, fromRoundID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateOutcomeParams 仅更新结果参数（loto 开奖时回填号码用，与推进同事务）
func UpdateOutcomeParams(ctx context.Context, exec sqlx.ExtContext, gameID string, roundID int64, paramsJSON string) (bool, error) {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE game_config SET outcome_params = ?, updated_at = ? WHERE game_id = ? AND round_id = ?"
	res, err := exec.ExecContext(ctx, sqlStr, paramsJSON, now, gameID, roundID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
