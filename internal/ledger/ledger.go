package ledger

import (
	"context"
	"database/sql"
	"strings"

	"casino-server/common/logger"
	"casino-server/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 余额账本：所有余额变动的唯一入口
// 规则：
//   1. 任何变动必须在事务内进行，且先以 FOR UPDATE 锁定玩家行
//   2. 账本行先于余额更新写入，reference 唯一索引撞上即幂等拒绝，
//      此时余额尚未变动，重复请求不可能产生双重扣款/入账
//   3. 余额恒 >= 0，扣款前校验，不足直接拒绝

var (
	ErrInvalidAmount        = errors.New("ledger: amount must be positive")
	ErrInsufficientFunds    = errors.New("ledger: insufficient funds")
	ErrDuplicateReference   = errors.New("ledger: duplicate reference")
	ErrPlayerNotFound       = errors.New("ledger: player not found")
	ErrPendingEntryNotFound = errors.New("ledger: pending entry not found")
)

// Meta 一次账变的业务上下文，原样落入账本行
type Meta struct {
	BillNo   string
	GameID   string
	RoundID  int64
	Metadata string
	TraceID  string
}

// Debit 扣款（下注/提现）：amount 为正数（分），落账为负
// reference 撞唯一索引返回 ErrDuplicateReference，余额不变
func Debit(ctx context.Context, tx *sqlx.Tx, userID int64, kind int, amount int64, reference string, m Meta) (*model.WalletLedger, error) {
	return apply(ctx, tx, userID, kind, -amount, model.LedgerStatusCompleted, reference, m)
}

// DebitPending 预扣款（提现审核流）：余额立即冻结扣减，条目状态为 pending
// 后续 ConfirmPending 转 completed，RejectPending 退回余额
func DebitPending(ctx context.Context, tx *sqlx.Tx, userID int64, kind int, amount int64, reference string, m Meta) (*model.WalletLedger, error) {
	return apply(ctx, tx, userID, kind, -amount, model.LedgerStatusPending, reference, m)
}

// Credit 入账（派彩/充值）：amount 为正数（分）
func Credit(ctx context.Context, tx *sqlx.Tx, userID int64, kind int, amount int64, reference string, m Meta) (*model.WalletLedger, error) {
	return apply(ctx, tx, userID, kind, amount, model.LedgerStatusCompleted, reference, m)
}

// apply 账变主流程，signed 带符号
func apply(ctx context.Context, tx *sqlx.Tx, userID int64, kind int, signed int64, status int8, reference string, m Meta) (*model.WalletLedger, error) {
	if signed == 0 {
		return nil, ErrInvalidAmount
	}

	p, err := model.GetPlayerByIDForUpdate(ctx, tx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPlayerNotFound
		}
		return nil, errors.Wrap(err, "lock player row")
	}

	newBalance := p.Balance + signed
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	entry := &model.WalletLedger{
		UserID:       userID,
		Kind:         kind,
		Amount:       signed,
		BeforeAmount: p.Balance,
		AfterAmount:  newBalance,
		Status:       status,
		Reference:    reference,
		BillNo:       m.BillNo,
		GameID:       m.GameID,
		RoundID:      m.RoundID,
		Metadata:     m.Metadata,
		TraceID:      m.TraceID,
	}
	if err := entry.Insert(ctx, tx); err != nil {
		if isDuplicateKeyError(err) {
			// 余额还没动，安全返回幂等冲突
			return nil, ErrDuplicateReference
		}
		return nil, errors.Wrap(err, "insert ledger entry")
	}

	var wagered, deposited int64
	switch kind {
	case model.LedgerKindBet:
		wagered = -signed
	case model.LedgerKindDeposit:
		deposited = signed
	}
	if err := model.UpdatePlayerBalance(ctx, tx, userID, newBalance, wagered, deposited); err != nil {
		return nil, errors.Wrap(err, "update player balance")
	}

	logger.Info("ledger entry applied",
		zap.Int64("user_id", userID),
		zap.String("kind", model.LedgerKindStr(kind)),
		zap.Int64("amount", signed),
		zap.Int64("after", newBalance),
		zap.String("reference", reference))
	return entry, nil
}

// ConfirmPending 将 pending 条目置为 completed（提现打款成功）
// 余额在预扣时已经减过，这里只流转状态
func ConfirmPending(ctx context.Context, tx *sqlx.Tx, reference string) (*model.WalletLedger, error) {
	entry, err := model.GetLedgerByReferenceForUpdate(ctx, tx, reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPendingEntryNotFound
		}
		return nil, errors.Wrap(err, "lock ledger entry")
	}
	if entry.Status != model.LedgerStatusPending {
		return nil, ErrPendingEntryNotFound
	}
	n, err := model.UpdateLedgerStatus(ctx, tx, entry.ID, model.LedgerStatusCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "complete pending entry")
	}
	if n != 1 {
		return nil, ErrPendingEntryNotFound
	}
	entry.Status = model.LedgerStatusCompleted
	return entry, nil
}

// RejectPending 将 pending 条目置为终态并把冻结金额退回余额
// expired=true 置 expired，否则置 failed
func RejectPending(ctx context.Context, tx *sqlx.Tx, reference string, expired bool) (*model.WalletLedger, error) {
	entry, err := model.GetLedgerByReferenceForUpdate(ctx, tx, reference)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPendingEntryNotFound
		}
		return nil, errors.Wrap(err, "lock ledger entry")
	}
	if entry.Status != model.LedgerStatusPending {
		return nil, ErrPendingEntryNotFound
	}

	p, err := model.GetPlayerByIDForUpdate(ctx, tx, entry.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "lock player row")
	}

	final := int8(model.LedgerStatusFailed)
	if expired {
		final = model.LedgerStatusExpired
	}
	n, err := model.UpdateLedgerStatus(ctx, tx, entry.ID, final)
	if err != nil {
		return nil, errors.Wrap(err, "finalize pending entry")
	}
	if n != 1 {
		return nil, ErrPendingEntryNotFound
	}

	// entry.Amount 预扣时为负，退回即减去负数
	refund := p.Balance - entry.Amount
	if err := model.UpdatePlayerBalance(ctx, tx, entry.UserID, refund, 0, 0); err != nil {
		return nil, errors.Wrap(err, "refund frozen amount")
	}
	entry.Status = final
	return entry, nil
}

// NewReference 生成账本幂等键，调用方也可以直接传业务幂等键
// 形如 bet:GM1712...:debit
func NewReference(parts ...string) string {
	return strings.Join(parts, ":")
}

// isDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	// MySQL 错误码 1062: Duplicate entry
	return strings.Contains(errMsg, "Error 1062") ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "duplicate key")
}
