package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 回合审计事件类型
// 1=round_open 建局 2=round_roll 回合推进(含结算) 3=cashout 兑付 4=manual 人工操作
const (
	AuditEventRoundOpen = 1
	AuditEventRoundRoll = 2
	AuditEventCashout   = 3
	AuditEventManual    = 4
)

// RoundAudit 对应 round_audit 表（回合生命周期审计）
// prev_phase/next_phase 使用字符串快照，便于直观查询
type RoundAudit struct {
	ID int64 `db:"id"`
	// 游戏ID
	GameID string `db:"game_id"`
	// 回合号
	RoundID int64 `db:"round_id"`
	// 事件类型（数值：1=round_open 2=round_roll 3=cashout 4=manual）
	EventType int8   `db:"event_type"`
	PrevPhase string `db:"prev_phase"`
	NextPhase string `db:"next_phase"`
	Operator  string `db:"operator"`
	Source    string `db:"source"`
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
func (e *RoundAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()

	sqlStr := "INSERT INTO round_audit (game_id, round_id, event_type, prev_phase, next_phase, operator, source, payload, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{e.GameID, e.RoundID, e.EventType, e.PrevPhase, e.NextPhase, e.Operator, e.Source, e.Payload, e.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
