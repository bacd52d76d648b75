package model

import (
	"context"
	"strings"
	"time"

	"casino-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// 账变类型
// kind: 1=bet 下注扣款 2=win 派彩 3=deposit 充值 4=deposit_bonus 充值赠送 5=withdraw 提现
// 同时冗余 kind_str 便于查询
const (
	LedgerKindBet          = 1
	LedgerKindWin          = 2
	LedgerKindDeposit      = 3
	LedgerKindDepositBonus = 4
	LedgerKindWithdraw     = 5
)

// 账本条目状态
// status: 1=pending 待确认(仅充提流程) 2=completed 已完成 3=failed 失败 4=expired 过期
// 对账不变量：某账户所有 completed 条目的 amount 之和 == 当前余额
const (
	LedgerStatusPending   = 1
	LedgerStatusCompleted = 2
	LedgerStatusFailed    = 3
	LedgerStatusExpired   = 4
)

// WalletLedger 对应 wallet_ledger 表（追加式账本）
// 说明：amount 为带符号金额（分），扣款为负、入账为正
// reference 为幂等键（唯一索引）：同一 reference 的账变只会生效一次
// completed 条目一经写入永不修改；仅 pending 条目允许流转到终态
type WalletLedger struct {
	ID           int64  `db:"id"`
	UserID       int64  `db:"user_id"`
	Kind         int    `db:"kind"`
	KindStr      string `db:"kind_str"`
	Amount       int64  `db:"amount"`
	BeforeAmount int64  `db:"before_amount"`
	AfterAmount  int64  `db:"after_amount"`
	Status       int8   `db:"status"`
	Reference    string `db:"reference"`
	BillNo       string `db:"bill_no"`
	GameID       string `db:"game_id"`
	RoundID      int64  `db:"round_id"`
	Metadata     string `db:"metadata"`
	TraceID      string `db:"trace_id"`
	CreatedAt    int64  `db:"created_at"`
}

// LedgerKindStr 数值码转字符串
func LedgerKindStr(kind int) string {
	switch kind {
	case LedgerKindBet:
		return "bet"
	case LedgerKindWin:
		return "win"
	case LedgerKindDeposit:
		return "deposit"
	case LedgerKindDepositBonus:
		return "deposit_bonus"
	case LedgerKindWithdraw:
		return "withdraw"
	}
	return ""
}

// LedgerKindCode 字符串转数值码
func LedgerKindCode(s string) int {
	switch strings.ToLower(s) {
	case "bet":
		return LedgerKindBet
	case "win":
		return LedgerKindWin
	case "deposit":
		return LedgerKindDeposit
	case "deposit_bonus":
		return LedgerKindDepositBonus
	case "withdraw":
		return LedgerKindWithdraw
	}
	return 0
}

// Insert 新增一条账本记录（kind 数值码与字符串双写）
// reference 唯一索引冲突会原样返回 MySQL 1062 错误，由调用方判别幂等语义
func (l *WalletLedger) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	code := l.Kind
	str := l.KindStr
	if code == 0 && str != "" {
		code = LedgerKindCode(str)
	}
	if str == "" && code != 0 {
		str = LedgerKindStr(code)
	}
	status := l.Status
	if status == 0 {
		status = LedgerStatusCompleted
	}
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO wallet_ledger (user_id, kind, kind_str, amount, before_amount, after_amount, status, reference, bill_no, game_id, round_id, metadata, trace_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{l.UserID, code, str, l.Amount, l.BeforeAmount, l.AfterAmount, status, l.Reference, l.BillNo, l.GameID, l.RoundID, l.Metadata, l.TraceID, now}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetLedgerByReference 按幂等键查询账本条目
func GetLedgerByReference(ctx context.Context, exec sqlx.ExtContext, reference string) (*WalletLedger, error) {
	sqlStr := `SELECT id, user_id, kind, kind_str, amount, before_amount, after_amount, status, reference,
		bill_no, game_id, round_id, metadata, trace_id, created_at
		FROM wallet_ledger WHERE reference = ? LIMIT 1`
	var l WalletLedger
	if err := sqlx.GetContext(ctx, exec, &l, sqlStr, reference); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLedgerByReferenceForUpdate 按幂等键查询账本条目并加锁（pending 流转用）
func GetLedgerByReferenceForUpdate(ctx context.Context, exec sqlx.ExtContext, reference string) (*WalletLedger, error) {
	sqlStr := `SELECT id, user_id, kind, kind_str, amount, before_amount, after_amount, status, reference,
		bill_no, game_id, round_id, metadata, trace_id, created_at
		FROM wallet_ledger WHERE reference = ? FOR UPDATE`
	var l WalletLedger
	if err := sqlx.GetContext(ctx, exec, &l, sqlStr, reference); err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLedgerStatus 仅允许 pending -> 终态 的流转；completed 条目不可变
// 返回受影响行数，0 表示条目不存在或已不处于 pending
func UpdateLedgerStatus(ctx context.Context, exec sqlx.ExtContext, id int64, newStatus int8) (int64, error) {
	sqlStr := "UPDATE wallet_ledger SET status = ? WHERE id = ? AND status = ?"
	res, err := exec.ExecContext(ctx, sqlStr, newStatus, id, LedgerStatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListLedgerByUser 查询玩家账变流水（倒序）
func ListLedgerByUser(ctx context.Context, db *sqlx.DB, userID int64, limit int) ([]WalletLedger, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var list []WalletLedger
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "wallet_ledger",
		Fields: common.EnumFields(WalletLedger{}),
		Ex:     []exp.Expression{g.Ex{"user_id": userID}},
		Order:  []exp.OrderedExpression{g.I("id").Desc()},
		Limit:  uint(limit),
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
