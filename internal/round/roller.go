package round

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"casino-server/internal/game"
	"casino-server/internal/ledger"
	"casino-server/internal/metrics"
	"casino-server/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Roller 回合推进者：唯一允许改写 game_config 的角色
// 没有常驻定时器，由第一个观察到回合过期的请求惰性触发；
// 多个请求并发触发必须安全（行锁 + round_id CAS + settlement_log 唯一键）

const (
	// maxAdvancePerCall 单次调用最多补推的回合数，防止停摆极久后单请求卡死
	// 没追完的边界由后续请求继续补
	maxAdvancePerCall = 500

	// historyLimit 配置行里保留的最近结果条数
	historyLimit = 20

	// TopicRoundSettled 回合结算完成事件
	TopicRoundSettled = "round_settled"
)

var ErrUnknownGame = errors.New("round: unknown game")

type Roller struct {
	db  *sqlx.DB
	rng game.Rand
	// trigger 标识推进来源（request/ticker/admin），用于审计与指标
	trigger string
}

func NewRoller(db *sqlx.DB, rng game.Rand) *Roller {
	return &Roller{db: db, rng: rng, trigger: "request"}
}

// WithTrigger 标记推进来源，返回自身便于链式调用
func (r *Roller) WithTrigger(trigger string) *Roller {
	r.trigger = trigger
	return r
}

// EnsureGame 建局：配置行不存在时初始化第一回合
// 并发调用由主键唯一性收敛，谁插入成功都一样
func (r *Roller) EnsureGame(ctx context.Context, gameID string) error {
	_, err := model.GetGameConfig(ctx, r.db, gameID)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return errors.Wrap(err, "read game config")
	}

	now := time.Now()
	cfg := &model.GameConfig{
		GameID:         gameID,
		RoundID:        1,
		RoundStartTime: now.UnixMilli(),
		History:        "[]",
	}
	switch gameID {
	case GameCrash:
		cfg.OutcomeParams = mustJSON(CrashParams{CrashPoint: game.DrawCrashPoint(r.rng)})
	case GameLoto:
		cfg.OutcomeParams = "{}"
	default:
		return ErrUnknownGame
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := cfg.InsertGameConfig(ctx, tx); err != nil {
		if isDuplicateKeyError(err) {
			// 别的实例已建局
			return nil
		}
		return errors.Wrap(err, "insert game config")
	}
	audit := &model.RoundAudit{
		GameID:    gameID,
		RoundID:   1,
		EventType: model.AuditEventRoundOpen,
		PrevPhase: "",
		NextPhase: string(openingPhase(gameID)),
		Operator:  "system",
		Source:    "bootstrap",
	}
	if err := audit.Insert(ctx, tx); err != nil {
		return errors.Wrap(err, "insert round audit")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit bootstrap")
	}
	fmt.Printf("[Roller] 建局完成: game_id=%s, round_id=1\n", gameID)
	return nil
}

// Advance 惰性推进：逐个回合边界补推到 now，返回最新配置行
// 每轮循环只跨一个边界，补推中途任何一步失败都不影响已提交的回合
func (r *Roller) Advance(ctx context.Context, gameID string, now time.Time) (*model.GameConfig, error) {
	if gameID != GameCrash && gameID != GameLoto {
		return nil, ErrUnknownGame
	}

	for i := 0; i < maxAdvancePerCall; i++ {
		cfg, err := model.GetGameConfig(ctx, r.db, gameID)
		if err != nil {
			return nil, errors.Wrap(err, "read game config")
		}
		expired, err := r.isExpired(now, cfg)
		if err != nil {
			return nil, err
		}
		if !expired {
			return cfg, nil
		}

		if err := r.advanceOne(ctx, gameID, cfg.RoundID, now); err != nil {
			return nil, err
		}
	}
	fmt.Printf("[Roller] 单次补推达到上限: game_id=%s, limit=%d\n", gameID, maxAdvancePerCall)
	return model.GetGameConfig(ctx, r.db, gameID)
}

func (r *Roller) isExpired(now time.Time, cfg *model.GameConfig) (bool, error) {
	switch cfg.GameID {
	case GameCrash:
		p, err := ParseCrashParams(cfg.OutcomeParams)
		if err != nil {
			return false, err
		}
		return ResolveCrash(now, cfg.RoundStartTime, p.CrashPoint).Expired, nil
	case GameLoto:
		return ResolveLoto(now, cfg.RoundStartTime).Expired, nil
	}
	return false, ErrUnknownGame
}

// advanceOne 结算并推进恰好一个回合，整体一个事务
// 并发竞争者三道闸：行锁串行化、settlement_log 唯一键、round_id CAS
func (r *Roller) advanceOne(ctx context.Context, gameID string, observedRoundID int64, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	cfg, err := model.GetGameConfigForUpdate(ctx, tx, gameID)
	if err != nil {
		return errors.Wrap(err, "lock game config")
	}
	if cfg.RoundID != observedRoundID {
		// 其他请求已抢先推进了这一局，放弃即可，外层循环会重读
		return nil
	}
	expired, err := r.isExpired(now, cfg)
	if err != nil {
		return err
	}
	if !expired {
		return nil
	}

	var (
		outcomeJSON string
		next        *model.GameConfig
		totalOrders int
		totalPayout int64
	)
	switch gameID {
	case GameCrash:
		outcomeJSON, next, totalOrders, totalPayout, err = r.settleCrash(ctx, tx, cfg)
	case GameLoto:
		outcomeJSON, next, totalOrders, totalPayout, err = r.settleLoto(ctx, tx, cfg)
	}
	if err != nil {
		return err
	}

	slog := &model.SettlementLog{
		GameID:      gameID,
		RoundID:     cfg.RoundID,
		Outcome:     outcomeJSON,
		TotalOrders: totalOrders,
		TotalPayout: totalPayout,
		Operator:    "system",
	}
	if err := model.CreateSettlementLog(ctx, tx, slog); err != nil {
		if isDuplicateKeyError(err) {
			// 已经有人结算过这一局，绝不能重复入账
			fmt.Printf("[Roller] 回合已被结算: game_id=%s, round_id=%d\n", gameID, cfg.RoundID)
			return nil
		}
		return errors.Wrap(err, "create settlement log")
	}

	ok, err := model.AdvanceGameConfig(ctx, tx, gameID, cfg.RoundID, next)
	if err != nil {
		return errors.Wrap(err, "advance game config")
	}
	if !ok {
		// 持有行锁时 CAS 不应失败，失败说明状态被绕过修改，放弃本次推进
		return errors.Errorf("round: cas advance lost, game_id=%s round_id=%d", gameID, cfg.RoundID)
	}

	audit := &model.RoundAudit{
		GameID:    gameID,
		RoundID:   cfg.RoundID,
		EventType: model.AuditEventRoundRoll,
		PrevPhase: string(closingPhase(gameID)),
		NextPhase: string(openingPhase(gameID)),
		Operator:  "system",
		Source:    r.trigger,
		Payload:   outcomeJSON,
	}
	if err := audit.Insert(ctx, tx); err != nil {
		return errors.Wrap(err, "insert round audit")
	}

	if err := model.CreateOutbox(ctx, tx, TopicRoundSettled,
		fmt.Sprintf("%s:%d", gameID, cfg.RoundID),
		map[string]any{
			"game_id":      gameID,
			"round_id":     cfg.RoundID,
			"next_round":   next.RoundID,
			"outcome":      json.RawMessage(outcomeJSON),
			"total_orders": totalOrders,
			"total_payout": totalPayout,
			"settled_at":   time.Now().UnixMilli(),
		}); err != nil {
		return errors.Wrap(err, "create outbox event")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit round advance")
	}
	metrics.RecordRoundSettled(gameID, r.trigger)
	fmt.Printf("[Roller] 回合推进完成: game_id=%s, round_id=%d -> %d, orders=%d, payout=%d\n",
		gameID, cfg.RoundID, next.RoundID, totalOrders, totalPayout)
	return nil
}

// settleCrash 结算一局 crash
// 仍为 active 的持仓都是没在爆点前兑付的，按输结算；赢家在兑付时已离场
func (r *Roller) settleCrash(ctx context.Context, tx *sqlx.Tx, cfg *model.GameConfig) (string, *model.GameConfig, int, int64, error) {
	params, err := ParseCrashParams(cfg.OutcomeParams)
	if err != nil {
		return "", nil, 0, 0, err
	}

	orders, err := model.ListActiveByRoundForUpdate(ctx, tx, GameCrash, cfg.RoundID)
	if err != nil {
		return "", nil, 0, 0, errors.Wrap(err, "list active orders")
	}
	outcome := mustJSON(map[string]any{"crash_point": params.CrashPoint})
	for i := range orders {
		n, err := model.SettleOrder(ctx, tx, orders[i].BillNo, 0, outcome)
		if err != nil {
			return "", nil, 0, 0, errors.Wrap(err, "settle crash order")
		}
		if n != 1 {
			return "", nil, 0, 0, errors.Errorf("round: order already settled, bill_no=%s", orders[i].BillNo)
		}
	}

	next := &model.GameConfig{
		GameID:         GameCrash,
		RoundID:        cfg.RoundID + 1,
		RoundStartTime: NextCrashStart(cfg.RoundStartTime, params.CrashPoint).UnixMilli(),
		OutcomeParams:  mustJSON(CrashParams{CrashPoint: game.DrawCrashPoint(r.rng)}),
		History: appendHistory(cfg.History, map[string]any{
			"round_id":    cfg.RoundID,
			"crash_point": params.CrashPoint,
		}),
	}
	return outcome, next, len(orders), 0, nil
}

// settleLoto 开奖并结算一期 loto
// 号码在本事务内才生成，开奖前任何读到的配置都不含号码
func (r *Roller) settleLoto(ctx context.Context, tx *sqlx.Tx, cfg *model.GameConfig) (string, *model.GameConfig, int, int64, error) {
	drawn := game.DrawLotoNumbers(r.rng)
	outcome := mustJSON(map[string]any{"numbers": drawn})

	orders, err := model.ListActiveByRoundForUpdate(ctx, tx, GameLoto, cfg.RoundID)
	if err != nil {
		return "", nil, 0, 0, errors.Wrap(err, "list active orders")
	}

	var totalPayout int64
	for i := range orders {
		o := &orders[i]
		var spec game.LotoSpec
		if err := json.Unmarshal([]byte(o.BetSpec), &spec); err != nil {
			return "", nil, 0, 0, errors.Wrapf(err, "parse bet spec, bill_no=%s", o.BillNo)
		}
		matches := game.LotoMatches(spec.Numbers, drawn)
		payout := game.LotoPayout(o.BetAmount, matches)

		orderOutcome := mustJSON(map[string]any{
			"numbers": drawn,
			"matches": matches,
			"payout":  payout,
		})
		n, err := model.SettleOrder(ctx, tx, o.BillNo, payout, orderOutcome)
		if err != nil {
			return "", nil, 0, 0, errors.Wrap(err, "settle loto order")
		}
		if n != 1 {
			return "", nil, 0, 0, errors.Errorf("round: order already settled, bill_no=%s", o.BillNo)
		}
		if payout > 0 {
			ref := ledger.NewReference("settle", GameLoto, fmt.Sprint(cfg.RoundID), o.BillNo)
			if _, err := ledger.Credit(ctx, tx, o.UserID, model.LedgerKindWin, payout, ref, ledger.Meta{
				BillNo:  o.BillNo,
				GameID:  GameLoto,
				RoundID: cfg.RoundID,
				TraceID: o.TraceID,
			}); err != nil {
				return "", nil, 0, 0, errors.Wrap(err, "credit loto payout")
			}
			totalPayout += payout
		}
	}

	drawAt := NextLotoDraw(cfg.RoundStartTime)
	next := &model.GameConfig{
		GameID:         GameLoto,
		RoundID:        cfg.RoundID + 1,
		RoundStartTime: drawAt.UnixMilli(),
		OutcomeParams:  "{}",
		History: appendHistory(cfg.History, map[string]any{
			"round_id": cfg.RoundID,
			"numbers":  drawn,
		}),
	}
	return outcome, next, len(orders), totalPayout, nil
}

func openingPhase(gameID string) Phase {
	if gameID == GameLoto {
		return PhaseOpen
	}
	return PhaseBetting
}

func closingPhase(gameID string) Phase {
	if gameID == GameLoto {
		return PhaseOpen
	}
	return PhaseCrashed
}

// appendHistory 向有界历史数组追加一条，超限丢最旧
func appendHistory(historyJSON string, entry map[string]any) string {
	var hist []json.RawMessage
	if historyJSON != "" {
		_ = json.Unmarshal([]byte(historyJSON), &hist)
	}
	b, _ := json.Marshal(entry)
	hist = append(hist, b)
	if len(hist) > historyLimit {
		hist = hist[len(hist)-historyLimit:]
	}
	out, _ := json.Marshal(hist)
	return string(out)
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
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
