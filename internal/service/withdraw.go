package service

import (
	"context"
	"database/sql"
	"fmt"

	"casino-server/common/constant"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/ledger"
	"casino-server/internal/model"
)

// 提现流程：申请时冻结扣减（pending 账本条目），
// 渠道打款成功确认为 completed，失败/超时退回余额
// request_id 为上游唯一申请号，账本唯一索引保证同一申请只冻结一次

// WithdrawInput 提现申请
type WithdrawInput struct {
	PlatformID     int8
	PlatformUserID string
	Amount         string // 元
	RequestID      string // 上游唯一申请号
	TraceID        string
}

// WithdrawOutput 申请结果
type WithdrawOutput struct {
	Reference    string `json:"reference"`
	Frozen       string `json:"frozen"`        // 冻结金额（元）
	RemainAmount string `json:"remain_amount"` // 剩余可用余额（元）
}

type WithdrawService interface {
	// RequestWithdraw 申请提现：余额立即冻结扣减
	RequestWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error)
	// ConfirmWithdraw 渠道打款成功，pending 转 completed
	ConfirmWithdraw(ctx context.Context, requestID, traceID string) error
	// RejectWithdraw 渠道拒绝或超时，退回冻结金额
	RejectWithdraw(ctx context.Context, requestID, traceID string, expired bool) error
}

type withdrawService struct{}

func NewWithdrawService() WithdrawService { return &withdrawService{} }

func withdrawRef(requestID string) string {
	return ledger.NewReference("withdraw", requestID)
}

// RequestWithdraw 申请提现
func (s *withdrawService) RequestWithdraw(ctx context.Context, in WithdrawInput) (*WithdrawOutput, error) {
	amount, err := parseStake(in.Amount, 1, 0)
	if err != nil {
		return nil, ErrInvalidStake
	}
	if in.RequestID == "" {
		return nil, ErrInvalidStake
	}

	fmt.Printf("[Withdraw] 收到提现申请: platform_id=%d, platform_user_id=%s, amount=%d, request_id=%s, trace_id=%s\n",
		in.PlatformID, in.PlatformUserID, amount, in.RequestID, in.TraceID)

	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	player, err := model.GetPlayerByPlatformUserForUpdate(txCtx, tx, in.PlatformID, in.PlatformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	if player.Status != constant.PlayerStatusNormal {
		return nil, ErrPlayerDisabled
	}

	ref := withdrawRef(in.RequestID)
	entry, err := ledger.DebitPending(txCtx, tx, player.ID, model.LedgerKindWithdraw, amount, ref, ledger.Meta{
		Metadata: toJSON(map[string]any{"request_id": in.RequestID}),
		TraceID:  in.TraceID,
	})
	if err != nil {
		switch err {
		case ledger.ErrInsufficientFunds:
			return nil, ErrInsufficientFunds
		case ledger.ErrDuplicateReference:
			// 同一申请重放：返回首次冻结时的状态
			_ = tx.Rollback()
			prev, e := model.GetLedgerByReference(ctx, infmysql.SQLX(), ref)
			if e != nil {
				return nil, e
			}
			bal, _ := model.GetPlayerBalance(ctx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID)
			return &WithdrawOutput{
				Reference:    ref,
				Frozen:       formatMinor(-prev.Amount),
				RemainAmount: formatMinor(bal),
			}, nil
		}
		fmt.Printf("[Withdraw] 冻结失败: error=%v, request_id=%s, trace_id=%s\n",
			err, in.RequestID, in.TraceID)
		return nil, err
	}

	payloadMsg := map[string]any{
		"event":      "withdraw_requested",
		"request_id": in.RequestID,
		"user_id":    player.ID,
		"amount":     amount,
	}
	if err := model.CreateOutbox(txCtx, tx, "withdraw_requested", in.RequestID, payloadMsg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &WithdrawOutput{
		Reference:    ref,
		Frozen:       formatMinor(amount),
		RemainAmount: formatMinor(entry.AfterAmount),
	}, nil
}

// ConfirmWithdraw 打款成功确认
func (s *withdrawService) ConfirmWithdraw(ctx context.Context, requestID, traceID string) error {
	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := ledger.ConfirmPending(txCtx, tx, withdrawRef(requestID)); err != nil {
		if err == ledger.ErrPendingEntryNotFound {
			return ErrWithdrawNotFound
		}
		return err
	}
	payloadMsg := map[string]any{"event": "withdraw_completed", "request_id": requestID}
	if err := model.CreateOutbox(txCtx, tx, "withdraw_completed", requestID, payloadMsg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("[Withdraw] 提现完成: request_id=%s, trace_id=%s\n", requestID, traceID)
	return nil
}

// RejectWithdraw 打款失败或超时，退回冻结金额
func (s *withdrawService) RejectWithdraw(ctx context.Context, requestID, traceID string, expired bool) error {
	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := ledger.RejectPending(txCtx, tx, withdrawRef(requestID), expired)
	if err != nil {
		if err == ledger.ErrPendingEntryNotFound {
			return ErrWithdrawNotFound
		}
		return err
	}
	payloadMsg := map[string]any{
		"event":      "withdraw_rejected",
		"request_id": requestID,
		"refund":     -entry.Amount,
		"expired":    expired,
	}
	if err := model.CreateOutbox(txCtx, tx, "withdraw_rejected", requestID, payloadMsg); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Printf("[Withdraw] 提现退回: request_id=%s, expired=%v, trace_id=%s\n", requestID, expired, traceID)
	return nil
}
