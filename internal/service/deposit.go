package service

import (
	"context"
	"fmt"

	cfgstate "casino-server/internal/config"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/ledger"
	"casino-server/internal/model"
)

// 充值入账：支付渠道的报价、地址、签名验证都在外部系统，
// 这里只消费可信的"给钱包 W 入账 N"完成事件
// external_ref 为渠道侧唯一单号，撞账本唯一索引即幂等

// DepositInput 输入参数
type DepositInput struct {
	PlatformID       int8
	PlatformUserID   string
	PlatformUserName string
	Amount           string // 元
	ExternalRef      string // 渠道唯一单号
	TraceID          string
}

// DepositOutput 入账结果
type DepositOutput struct {
	Credited     string `json:"credited"`      // 元
	Bonus        string `json:"bonus"`         // 赠送金额（元）
	RemainAmount string `json:"remain_amount"` // 入账后余额（元）
}

type DepositService interface {
	ApplyExternalCredit(ctx context.Context, in DepositInput) (*DepositOutput, error)
}

type depositService struct{}

func NewDepositService() DepositService { return &depositService{} }

// ApplyExternalCredit 处理充值完成事件（幂等）
// 重放同一 external_ref 返回当前余额，不会二次入账
func (s *depositService) ApplyExternalCredit(ctx context.Context, in DepositInput) (*DepositOutput, error) {
	amount, err := parseStake(in.Amount, 1, 0)
	if err != nil {
		fmt.Printf("[Deposit] 金额非法: amount=%s, trace_id=%s\n", in.Amount, in.TraceID)
		return nil, ErrInvalidStake
	}
	if in.ExternalRef == "" {
		return nil, ErrInvalidStake
	}

	fmt.Printf("[Deposit] 收到充值事件: platform_id=%d, platform_user_id=%s, amount=%d, external_ref=%s, trace_id=%s\n",
		in.PlatformID, in.PlatformUserID, amount, in.ExternalRef, in.TraceID)

	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	player, err := getOrCreatePlayerInTx(txCtx, tx, in.PlatformID, in.PlatformUserID, in.PlatformUserName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create player: %w", err)
	}

	ref := ledger.NewReference("deposit", in.ExternalRef)
	entry, err := ledger.Credit(txCtx, tx, player.ID, model.LedgerKindDeposit, amount, ref, ledger.Meta{
		Metadata: toJSON(map[string]any{"external_ref": in.ExternalRef}),
		TraceID:  in.TraceID,
	})
	if err != nil {
		if err == ledger.ErrDuplicateReference {
			// 渠道事件重放：返回首次入账时的状态
			_ = tx.Rollback()
			return s.replay(ctx, in, ref)
		}
		fmt.Printf("[Deposit] 入账失败: error=%v, external_ref=%s, trace_id=%s\n",
			err, in.ExternalRef, in.TraceID)
		return nil, err
	}

	// 充值赠送（按百分比，默认关闭）
	var bonus int64
	if pct := cfgstate.GetThreshold("deposit_bonus_pct", 0); pct > 0 {
		bonus = amount * pct / 100
	}
	newBalance := entry.AfterAmount
	if bonus > 0 {
		bonusRef := ledger.NewReference("deposit_bonus", in.ExternalRef)
		be, err := ledger.Credit(txCtx, tx, player.ID, model.LedgerKindDepositBonus, bonus, bonusRef, ledger.Meta{
			Metadata: toJSON(map[string]any{"external_ref": in.ExternalRef, "base": amount}),
			TraceID:  in.TraceID,
		})
		if err != nil {
			return nil, err
		}
		newBalance = be.AfterAmount
	}

	payloadMsg := map[string]any{
		"event":            "deposit_credited",
		"external_ref":     in.ExternalRef,
		"user_id":          player.ID,
		"platform_id":      in.PlatformID,
		"platform_user_id": in.PlatformUserID,
		"amount":           amount,
		"bonus":            bonus,
	}
	if err := model.CreateOutbox(txCtx, tx, "deposit_credited", in.ExternalRef, payloadMsg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	fmt.Printf("[Deposit] 入账成功: user_id=%d, amount=%d, bonus=%d, after=%d, trace_id=%s\n",
		player.ID, amount, bonus, newBalance, in.TraceID)
	return &DepositOutput{
		Credited:     formatMinor(amount),
		Bonus:        formatMinor(bonus),
		RemainAmount: formatMinor(newBalance),
	}, nil
}

// replay 渠道事件重放：按首账本条目回放结果
func (s *depositService) replay(ctx context.Context, in DepositInput, ref string) (*DepositOutput, error) {
	fmt.Printf("[Deposit] 充值事件重放: external_ref=%s, trace_id=%s\n", in.ExternalRef, in.TraceID)
	entry, err := model.GetLedgerByReference(ctx, infmysql.SQLX(), ref)
	if err != nil {
		return nil, err
	}
	bal, _ := model.GetPlayerBalance(ctx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID)
	var bonus int64
	if be, err := model.GetLedgerByReference(ctx, infmysql.SQLX(),
		ledger.NewReference("deposit_bonus", in.ExternalRef)); err == nil {
		bonus = be.Amount
	}
	return &DepositOutput{
		Credited:     formatMinor(entry.Amount),
		Bonus:        formatMinor(bonus),
		RemainAmount: formatMinor(bal),
	}, nil
}
