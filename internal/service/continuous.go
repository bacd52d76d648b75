package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"casino-server/common/constant"
	cfgstate "casino-server/internal/config"
	"casino-server/internal/game"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/ledger"
	"casino-server/internal/metrics"
	"casino-server/internal/model"
	"casino-server/internal/round"

	mysqlerr "github.com/go-sql-driver/mysql"
)

// 连续游戏下注（crash / loto）
// 与即时游戏的差别：不开奖，只落 active 持仓挂到当前回合，
// 结果由回合推进者统一结算（crash 的赢家在兑付时提前离场）

// ContinuousBetInput 输入参数
type ContinuousBetInput struct {
	GameID           string // crash|loto
	PlatformID       int8
	PlatformUserID   string
	PlatformUserName string
	BetSpec          json.RawMessage
	IdempotencyKey   string
	TraceID          string
}

// ContinuousBetOutput 下注结果：回合结算前派彩未知
type ContinuousBetOutput struct {
	BillNo       string `json:"bill_no"`
	RoundID      int64  `json:"round_id"`
	RemainAmount string `json:"remain_amount"` // 剩余金额（元）
}

type ContinuousBetService interface {
	PlaceBet(ctx context.Context, in ContinuousBetInput) (*ContinuousBetOutput, error)
}

type continuousBetService struct {
	roller *round.Roller
}

func NewContinuousBetService(roller *round.Roller) ContinuousBetService {
	return &continuousBetService{roller: roller}
}

// PlaceBet 连续游戏下注主流程：
// 1. 解析并校验下注内容
// 2. 惰性推进：本请求可能正是第一个观察到回合过期的请求
// 3. 事务内锁配置行复核阶段，扣款并落 active 持仓
func (s *continuousBetService) PlaceBet(ctx context.Context, in ContinuousBetInput) (*ContinuousBetOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordBet(result, in.GameID, start) }()

	stake, err := validateContinuousSpec(in.GameID, in.BetSpec)
	if err != nil {
		fmt.Printf("[CBet] 下注内容非法: game_id=%s, error=%v, trace_id=%s\n", in.GameID, err, in.TraceID)
		return nil, err
	}
	minBet := cfgstate.GetThreshold("bet_min_cents", 1)
	maxBet := cfgstate.GetThreshold("bet_max_cents", 100_000_00)
	if stake < minBet || stake > maxBet {
		fmt.Printf("[CBet] 注额超出限制: stake=%d, min=%d, max=%d, trace_id=%s\n",
			stake, minBet, maxBet, in.TraceID)
		return nil, ErrInvalidStake
	}

	fmt.Printf("[CBet] 收到下注请求: game_id=%s, platform_id=%d, platform_user_id=%s, stake=%d, idem_key=%s, trace_id=%s\n",
		in.GameID, in.PlatformID, in.PlatformUserID, stake, in.IdempotencyKey, in.TraceID)

	var cached ContinuousBetOutput
	if cachedResult(ctx, in.IdempotencyKey, &cached) {
		fmt.Printf("[CBet] Redis 缓存命中: idem_key=%s, bill_no=%s, trace_id=%s\n",
			in.IdempotencyKey, cached.BillNo, in.TraceID)
		return &cached, nil
	}
	release, hit, err := acquireIdemLock(ctx, "CBet", in.IdempotencyKey, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}
	defer release()

	// 惰性推进到当前回合
	now := time.Now()
	if _, err := s.roller.Advance(ctx, in.GameID, now); err != nil {
		fmt.Printf("[CBet] 回合推进失败: error=%v, game_id=%s, trace_id=%s\n", err, in.GameID, in.TraceID)
		return nil, err
	}

	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[CBet] 开启事务失败: error=%v, trace_id=%s\n", err, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// 锁配置行并复核阶段：推进与下注之间可能又过了边界
	cfg, err := model.GetGameConfigForUpdate(txCtx, tx, in.GameID)
	if err != nil {
		fmt.Printf("[CBet] 读取游戏配置失败: error=%v, game_id=%s, trace_id=%s\n", err, in.GameID, in.TraceID)
		return nil, ErrGameNotConfigured
	}
	if err := checkBettable(now, cfg); err != nil {
		fmt.Printf("[CBet] 当前阶段不可投注: game_id=%s, round_id=%d, trace_id=%s\n",
			in.GameID, cfg.RoundID, in.TraceID)
		return nil, err
	}

	player, err := getOrCreatePlayerInTx(txCtx, tx, in.PlatformID, in.PlatformUserID, in.PlatformUserName)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create player: %w", err)
	}
	if player.Status != constant.PlayerStatusNormal {
		return nil, ErrPlayerDisabled
	}

	billNo := generateBillNo(player.ID)

	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "bet", Ref: billNo}).Insert(txCtx, tx); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			_ = tx.Rollback()
			return s.replay(ctx, in)
		}
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	debitRef := ledger.NewReference("bet", billNo, "debit")
	entry, err := ledger.Debit(txCtx, tx, player.ID, model.LedgerKindBet, stake, debitRef, ledger.Meta{
		BillNo:   billNo,
		GameID:   in.GameID,
		RoundID:  cfg.RoundID,
		Metadata: string(in.BetSpec),
		TraceID:  in.TraceID,
	})
	if err != nil {
		if err == ledger.ErrInsufficientFunds {
			return nil, ErrInsufficientFunds
		}
		fmt.Printf("[CBet] 扣款失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	ord := &model.BetOrder{
		BillNo:         billNo,
		GameID:         in.GameID,
		RoundID:        cfg.RoundID,
		UserID:         player.ID,
		PlatformID:     in.PlatformID,
		PlatformUserID: in.PlatformUserID,
		BetAmount:      stake,
		BillStatus:     model.BillStatusActive,
		BetSpec:        string(in.BetSpec),
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := ord.Insert(txCtx, tx); err != nil {
		// (game_id, round_id, user_id) 唯一索引：同一回合只允许一个持仓
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			fmt.Printf("[CBet] 同一回合重复下注: game_id=%s, round_id=%d, user_id=%d, trace_id=%s\n",
				in.GameID, cfg.RoundID, player.ID, in.TraceID)
			return nil, ErrDuplicateBet
		}
		fmt.Printf("[CBet] 创建注单失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	payloadMsg := map[string]any{
		"event":            "bet_placed",
		"bill_no":          billNo,
		"game_id":          in.GameID,
		"round_id":         cfg.RoundID,
		"user_id":          player.ID,
		"platform_id":      in.PlatformID,
		"platform_user_id": in.PlatformUserID,
		"bet_amount":       stake,
	}
	if err := model.CreateOutbox(txCtx, tx, "bet_placed", billNo, payloadMsg); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[CBet] 提交事务失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	result = "success"
	out := &ContinuousBetOutput{
		BillNo:       billNo,
		RoundID:      cfg.RoundID,
		RemainAmount: formatMinor(entry.AfterAmount),
	}
	cacheResult(ctx, in.IdempotencyKey, out)
	return out, nil
}

// replay 幂等冲突时返回上次结果
func (s *continuousBetService) replay(ctx context.Context, in ContinuousBetInput) (*ContinuousBetOutput, error) {
	fmt.Printf("[CBet] 幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
		in.IdempotencyKey, in.TraceID)
	var cached ContinuousBetOutput
	if cachedResult(ctx, in.IdempotencyKey, &cached) {
		return &cached, nil
	}
	ref, err := model.SelectRefByIdemKey(ctx, infmysql.SQLX(), in.IdempotencyKey)
	if err != nil || ref == "" {
		return nil, fmt.Errorf("idempotency conflict, previous result unavailable")
	}
	orders, err := model.ListUserOrders(ctx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID, in.GameID, 50)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].BillNo == ref {
			bal, _ := model.GetPlayerBalance(ctx, infmysql.SQLX(), in.PlatformID, in.PlatformUserID)
			return &ContinuousBetOutput{
				BillNo:       ref,
				RoundID:      orders[i].RoundID,
				RemainAmount: formatMinor(bal),
			}, nil
		}
	}
	return nil, fmt.Errorf("idempotency conflict, previous result unavailable")
}

// validateContinuousSpec 解析并校验下注内容，返回注额（分）
func validateContinuousSpec(gameID string, raw json.RawMessage) (int64, error) {
	switch gameID {
	case round.GameCrash:
		var spec game.CrashSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return 0, ErrInvalidStake
		}
		if err := spec.Validate(); err != nil {
			return 0, err
		}
		return spec.Total(), nil
	case round.GameLoto:
		var spec game.LotoSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return 0, ErrInvalidStake
		}
		if err := spec.Validate(); err != nil {
			return 0, err
		}
		return spec.Total(), nil
	}
	return 0, ErrUnknownGame
}

// checkBettable 复核当前阶段是否允许建仓
// crash 仅 BETTING 窗口可投；loto 整点开奖前可投
func checkBettable(now time.Time, cfg *model.GameConfig) error {
	switch cfg.GameID {
	case round.GameCrash:
		p, err := round.ParseCrashParams(cfg.OutcomeParams)
		if err != nil {
			return err
		}
		st := round.ResolveCrash(now, cfg.RoundStartTime, p.CrashPoint)
		if st.Phase != round.PhaseBetting {
			return ErrRoundClosed
		}
	case round.GameLoto:
		st := round.ResolveLoto(now, cfg.RoundStartTime)
		if st.Expired {
			return ErrRoundClosed
		}
	default:
		return ErrUnknownGame
	}
	return nil
}
