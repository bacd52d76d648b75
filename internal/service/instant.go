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

	mysqlerr "github.com/go-sql-driver/mysql"
)

// 即时游戏下注：扣款→开奖→派彩，一个事务内完成
// 覆盖 dice / roulette / wheel / qlotto 四个玩法

const (
	GameDice       = "dice"
	GameRoulette   = "roulette"
	GameWheel      = "wheel"
	GameQuickLotto = "qlotto"
)

// PlayInput 输入参数
type PlayInput struct {
	GameID           string
	PlatformID       int8   // 平台ID
	PlatformUserID   string // 平台用户ID
	PlatformUserName string // 平台用户名（可选）
	BetSpec          json.RawMessage
	IdempotencyKey   string
	TraceID          string
}

// PlayOutput 下注结果：即时游戏一次请求即终局
type PlayOutput struct {
	BillNo       string          `json:"bill_no"`
	Outcome      json.RawMessage `json:"outcome"`
	Payout       string          `json:"payout"`        // 元
	RemainAmount string          `json:"remain_amount"` // 剩余金额（元）
}

type PlayService interface {
	Play(ctx context.Context, in PlayInput) (*PlayOutput, error)
}

type playService struct {
	rng game.Rand
}

func NewPlayService(rng game.Rand) PlayService { return &playService{rng: rng} }

// Play 即时游戏主流程：
// 1. 解析并校验下注内容
// 2. Redis 幂等快路径 + 进行中锁
// 3. 事务内：锁玩家→占幂等键→扣款→开奖→落单→派彩→Outbox
func (s *playService) Play(ctx context.Context, in PlayInput) (*PlayOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordBet(result, in.GameID, start) }()

	stake, err := validateSpec(in.GameID, in.BetSpec)
	if err != nil {
		fmt.Printf("[Play] 下注内容非法: game_id=%s, error=%v, trace_id=%s\n", in.GameID, err, in.TraceID)
		return nil, err
	}

	minBet := cfgstate.GetThreshold("bet_min_cents", 1)
	maxBet := cfgstate.GetThreshold("bet_max_cents", 100_000_00)
	if stake < minBet || stake > maxBet {
		fmt.Printf("[Play] 注额超出限制: stake=%d, min=%d, max=%d, trace_id=%s\n",
			stake, minBet, maxBet, in.TraceID)
		return nil, ErrInvalidStake
	}

	fmt.Printf("[Play] 收到下注请求: game_id=%s, platform_id=%d, platform_user_id=%s, stake=%d, idem_key=%s, trace_id=%s\n",
		in.GameID, in.PlatformID, in.PlatformUserID, stake, in.IdempotencyKey, in.TraceID)

	// Redis 快路径：若已有结果缓存，直接返回
	var cached PlayOutput
	if cachedResult(ctx, in.IdempotencyKey, &cached) {
		fmt.Printf("[Play] Redis 缓存命中: idem_key=%s, bill_no=%s, trace_id=%s\n",
			in.IdempotencyKey, cached.BillNo, in.TraceID)
		return &cached, nil
	}
	release, hit, err := acquireIdemLock(ctx, "Play", in.IdempotencyKey, &cached)
	if err != nil {
		return nil, err
	}
	if hit {
		return &cached, nil
	}
	defer release()

	txCtx, cancel := txContext(ctx)
	defer cancel()
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[Play] 开启事务失败: error=%v, trace_id=%s\n", err, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	player, err := getOrCreatePlayerInTx(txCtx, tx, in.PlatformID, in.PlatformUserID, in.PlatformUserName)
	if err != nil {
		fmt.Printf("[Play] 获取或创建玩家失败: error=%v, platform_id=%d, platform_user_id=%s, trace_id=%s\n",
			err, in.PlatformID, in.PlatformUserID, in.TraceID)
		return nil, fmt.Errorf("failed to get or create player: %w", err)
	}
	if player.Status != constant.PlayerStatusNormal {
		fmt.Printf("[Play] 玩家状态异常: user_id=%d, status=%d, trace_id=%s\n",
			player.ID, player.Status, in.TraceID)
		return nil, ErrPlayerDisabled
	}

	billNo := generateBillNo(player.ID)

	// 幂等：先占幂等键，ref 记录 bill_no
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "play", Ref: billNo}).Insert(txCtx, tx); err != nil {
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			_ = tx.Rollback()
			return s.replay(ctx, in)
		}
		fmt.Printf("[Play] 插入幂等键失败: error=%v, idem_key=%s, trace_id=%s\n",
			err, in.IdempotencyKey, in.TraceID)
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	// 扣款：玩家行已加锁，余额不足直接拒绝
	debitRef := ledger.NewReference("play", billNo, "debit")
	if _, err := ledger.Debit(txCtx, tx, player.ID, model.LedgerKindBet, stake, debitRef, ledger.Meta{
		BillNo:   billNo,
		GameID:   in.GameID,
		Metadata: string(in.BetSpec),
		TraceID:  in.TraceID,
	}); err != nil {
		if err == ledger.ErrInsufficientFunds {
			return nil, ErrInsufficientFunds
		}
		fmt.Printf("[Play] 扣款失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	// 开奖：扣款成功后才掷随机数
	outcome, win, err := s.draw(in.GameID, in.BetSpec)
	if err != nil {
		return nil, err
	}
	outcomeStr := toJSON(outcome)

	// 落单：即时游戏直接以已结算状态入库
	ord := &model.BetOrder{
		BillNo:         billNo,
		GameID:         in.GameID,
		RoundID:        0,
		UserID:         player.ID,
		PlatformID:     in.PlatformID,
		PlatformUserID: in.PlatformUserID,
		BetAmount:      stake,
		PayoutAmount:   win,
		BillStatus:     model.BillStatusCompleted,
		BetSpec:        string(in.BetSpec),
		OutcomeData:    outcomeStr,
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := ord.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Play] 创建注单失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	// 派彩
	newBalance := player.Balance - stake
	if win > 0 {
		creditRef := ledger.NewReference("play", billNo, "credit")
		entry, err := ledger.Credit(txCtx, tx, player.ID, model.LedgerKindWin, win, creditRef, ledger.Meta{
			BillNo:   billNo,
			GameID:   in.GameID,
			Metadata: outcomeStr,
			TraceID:  in.TraceID,
		})
		if err != nil {
			fmt.Printf("[Play] 派彩失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
			return nil, err
		}
		newBalance = entry.AfterAmount
	}

	// Outbox 消息（异步）
	payloadMsg := map[string]any{
		"event":            "bet_settled",
		"bill_no":          billNo,
		"game_id":          in.GameID,
		"user_id":          player.ID,
		"platform_id":      in.PlatformID,
		"platform_user_id": in.PlatformUserID,
		"bet_amount":       stake,
		"payout":           win,
	}
	if err := model.CreateOutbox(txCtx, tx, "bet_settled", billNo, payloadMsg); err != nil {
		fmt.Printf("[Play] 写入 Outbox 失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Play] 提交事务失败: error=%v, bill_no=%s, trace_id=%s\n", err, billNo, in.TraceID)
		return nil, err
	}

	result = "success"
	out := &PlayOutput{
		BillNo:       billNo,
		Outcome:      json.RawMessage(outcomeStr),
		Payout:       formatMinor(win),
		RemainAmount: formatMinor(newBalance),
	}
	cacheResult(ctx, in.IdempotencyKey, out)
	return out, nil
}

// replay 幂等冲突时返回上次结果（Redis 先查，DB 回源）
func (s *playService) replay(ctx context.Context, in PlayInput) (*PlayOutput, error) {
	fmt.Printf("[Play] 幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
		in.IdempotencyKey, in.TraceID)
	var cached PlayOutput
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
			return &PlayOutput{
				BillNo:       ref,
				Outcome:      json.RawMessage(orders[i].OutcomeData),
				Payout:       formatMinor(orders[i].PayoutAmount),
				RemainAmount: formatMinor(bal),
			}, nil
		}
	}
	return nil, fmt.Errorf("idempotency conflict, previous result unavailable")
}

// validateSpec 解析并校验下注内容，返回总注额（分）
func validateSpec(gameID string, raw json.RawMessage) (int64, error) {
	switch gameID {
	case GameDice:
		var spec game.DiceSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return 0, ErrInvalidStake
		}
		if err := spec.Validate(); err != nil {
			return 0, err
		}
		return spec.Total(), nil
	case GameRoulette:
		var spec game.RouletteSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return 0, ErrInvalidStake
		}
		if err := spec.Validate(); err != nil {
			return 0, err
		}
		return spec.Total(), nil
	case GameWheel:
		var spec game.WheelSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return 0, ErrInvalidStake
		}
		if err := spec.Validate(); err != nil {
			return 0, err
		}
		return spec.Total(), nil
	case GameQuickLotto:
		var spec game.QuickLottoSpec
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

// draw 掷随机数并结算，返回结果对象与派彩（分）
func (s *playService) draw(gameID string, raw json.RawMessage) (any, int64, error) {
	switch gameID {
	case GameDice:
		var spec game.DiceSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, 0, ErrInvalidStake
		}
		out, win := game.PlayDice(s.rng, spec)
		return out, win, nil
	case GameRoulette:
		var spec game.RouletteSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, 0, ErrInvalidStake
		}
		out, win := game.PlayRoulette(s.rng, spec)
		return out, win, nil
	case GameWheel:
		var spec game.WheelSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, 0, ErrInvalidStake
		}
		out, win := game.PlayWheel(s.rng, spec)
		return out, win, nil
	case GameQuickLotto:
		var spec game.QuickLottoSpec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, 0, ErrInvalidStake
		}
		out, win := game.PlayQuickLotto(s.rng, spec)
		return out, win, nil
	}
	return nil, 0, ErrUnknownGame
}
