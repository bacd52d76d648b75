package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"casino-server/internal/game"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/ledger"
	"casino-server/internal/metrics"
	"casino-server/internal/model"
	"casino-server/internal/round"
)

// crash 兑付：飞行中主动离场，锁定当前倍数
// 倍数以服务端处理时刻重算为准，已达爆点的请求一律拒绝，
// 客户端展示的倍数只是参考

// CashoutInput 输入参数
type CashoutInput struct {
	PlatformID     int8
	PlatformUserID string
	IdempotencyKey string // 可选
	TraceID        string
}

// CashoutOutput 兑付结果
type CashoutOutput struct {
	BillNo       string  `json:"bill_no"`
	RoundID      int64   `json:"round_id"`
	Multiplier   float64 `json:"multiplier"`
	Payout       string  `json:"payout"`        // 元
	RemainAmount string  `json:"remain_amount"` // 剩余金额（元）
}

type CashoutService interface {
	Cashout(ctx context.Context, in CashoutInput) (*CashoutOutput, error)
}

type cashoutService struct {
	roller *round.Roller
}

func NewCashoutService(roller *round.Roller) CashoutService {
	return &cashoutService{roller: roller}
}

// Cashout 兑付主流程：
// 1. 惰性推进：回合若已过期，先由推进者按输结算，本次兑付自然失败
// 2. 事务内锁配置行，重算 m(now)，仅 FLYING 且未达爆点时放行
// 3. 结算持仓并派彩，全程一个事务
func (s *cashoutService) Cashout(ctx context.Context, in CashoutInput) (*CashoutOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordBet(result, "cashout", start) }()

	fmt.Printf("[Cashout] 收到兑付请求: platform_id=%d, platform_user_id=%s, trace_id=%s\n",
		in.PlatformID, in.PlatformUserID, in.TraceID)

	var cached CashoutOutput
	if cachedResult(ctx, in.IdempotencyKey, &cached) {
		return &cached, nil
	}
	release, hit, err := acquireIdemLock(ctx, "Cashout", in.IdempotencyKey, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}
	defer release()

	now := time.Now()
	if _, err := s.roller.Advance(ctx, round.GameCrash, now); err != nil {
		fmt.Printf("[Cashout] 回合推进失败: error=%v, trace_id=%s\n", err, in.TraceID)
		return nil, err
	}

	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 配置行锁在最前：与回合推进者互斥，杜绝"边结算边兑付"
	cfg, err := model.GetGameConfigForUpdate(txCtx, tx, round.GameCrash)
	if err != nil {
		return nil, ErrGameNotConfigured
	}
	params, err := round.ParseCrashParams(cfg.OutcomeParams)
	if err != nil {
		return nil, err
	}

	// 兑付时刻重算倍数，已达爆点必须拒绝
	st := round.ResolveCrash(now, cfg.RoundStartTime, params.CrashPoint)
	if st.Phase != round.PhaseFlying {
		fmt.Printf("[Cashout] 非飞行阶段: phase=%s, round_id=%d, trace_id=%s\n",
			st.Phase, cfg.RoundID, in.TraceID)
		return nil, ErrStaleCashout
	}
	if st.Multiplier >= params.CrashPoint {
		fmt.Printf("[Cashout] 已达爆点: m=%.2f, crash_point=%.2f, round_id=%d, trace_id=%s\n",
			st.Multiplier, params.CrashPoint, cfg.RoundID, in.TraceID)
		return nil, ErrStaleCashout
	}

	player, err := model.GetPlayerByPlatformUserForUpdate(txCtx, tx, in.PlatformID, in.PlatformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoActiveBet
		}
		return nil, err
	}

	ord, err := model.GetActiveOrderForUpdate(txCtx, tx, round.GameCrash, cfg.RoundID, player.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			fmt.Printf("[Cashout] 本回合无持仓: round_id=%d, user_id=%d, trace_id=%s\n",
				cfg.RoundID, player.ID, in.TraceID)
			return nil, ErrNoActiveBet
		}
		return nil, err
	}

	payout := game.CrashPayout(ord.BetAmount, st.Multiplier)
	outcome := toJSON(map[string]any{
		"multiplier":  st.Multiplier,
		"cashout_at":  now.UnixMilli(),
		"crash_point": params.CrashPoint,
	})

	n, err := model.SettleOrder(txCtx, tx, ord.BillNo, payout, outcome)
	if err != nil {
		return nil, err
	}
	if n != 1 {
		// active 持仓在本事务内被他人结算，理论上被配置行锁排除
		return nil, ErrNoActiveBet
	}

	creditRef := ledger.NewReference("cashout", ord.BillNo)
	entry, err := ledger.Credit(txCtx, tx, player.ID, model.LedgerKindWin, payout, creditRef, ledger.Meta{
		BillNo:   ord.BillNo,
		GameID:   round.GameCrash,
		RoundID:  cfg.RoundID,
		Metadata: outcome,
		TraceID:  in.TraceID,
	})
	if err != nil {
		fmt.Printf("[Cashout] 派彩失败: error=%v, bill_no=%s, trace_id=%s\n", err, ord.BillNo, in.TraceID)
		return nil, err
	}

	audit := &model.RoundAudit{
		GameID:    round.GameCrash,
		RoundID:   cfg.RoundID,
		EventType: model.AuditEventCashout,
		PrevPhase: string(round.PhaseFlying),
		NextPhase: string(round.PhaseFlying),
		Operator:  in.PlatformUserID,
		Source:    "api",
		Payload:   outcome,
		TraceID:   in.TraceID,
	}
	if err := audit.Insert(txCtx, tx); err != nil {
		return nil, err
	}

	payloadMsg := map[string]any{
		"event":      "bet_settled",
		"bill_no":    ord.BillNo,
		"game_id":    round.GameCrash,
		"round_id":   cfg.RoundID,
		"user_id":    player.ID,
		"multiplier": st.Multiplier,
		"payout":     payout,
	}
	if err := model.CreateOutbox(txCtx, tx, "bet_settled", ord.BillNo, payloadMsg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result = "success"
	fmt.Printf("[Cashout] 兑付成功: bill_no=%s, m=%.2f, payout=%d, trace_id=%s\n",
		ord.BillNo, st.Multiplier, payout, in.TraceID)
	out := &CashoutOutput{
		BillNo:       ord.BillNo,
		RoundID:      cfg.RoundID,
		Multiplier:   st.Multiplier,
		Payout:       formatMinor(payout),
		RemainAmount: formatMinor(entry.AfterAmount),
	}
	cacheResult(ctx, in.IdempotencyKey, out)
	return out, nil
}
