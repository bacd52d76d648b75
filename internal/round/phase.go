package round

import (
	"encoding/json"
	"time"

	"casino-server/internal/game"

	"github.com/pkg/errors"
)

// 连续游戏的阶段推导
// 阶段是 (当前时间, game_config 行) 的纯函数，任何无状态请求
// 都可以独立推导出一致的阶段，不依赖进程内存或定时器

const (
	GameCrash = "crash"
	GameLoto  = "loto"
)

// Phase 回合阶段
type Phase string

const (
	// Crash 三阶段
	PhaseBetting Phase = "BETTING"
	PhaseFlying  Phase = "FLYING"
	PhaseCrashed Phase = "CRASHED"

	// Loto 单阶段：整点开奖前一直可投
	PhaseOpen Phase = "OPEN"
)

const (
	// CrashBettingDur 每局固定投注窗口
	CrashBettingDur = 10 * time.Second
	// CrashCooldownDur 爆点后的展示冷却
	CrashCooldownDur = 5 * time.Second
)

// CrashParams game_config.outcome_params 的 crash 形态
type CrashParams struct {
	CrashPoint float64 `json:"crash_point"`
}

// LotoParams game_config.outcome_params 的 loto 形态
// 开奖前 Numbers 为空，开奖事务内才回填
type LotoParams struct {
	Numbers []int `json:"numbers,omitempty"`
}

func ParseCrashParams(raw string) (CrashParams, error) {
	var p CrashParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, errors.Wrap(err, "parse crash params")
	}
	if p.CrashPoint < 1 {
		return p, errors.Errorf("invalid crash point %v", p.CrashPoint)
	}
	return p, nil
}

func ParseLotoParams(raw string) (LotoParams, error) {
	var p LotoParams
	if raw == "" || raw == "{}" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, errors.Wrap(err, "parse loto params")
	}
	return p, nil
}

// CrashState 某一时刻的 crash 回合快照
type CrashState struct {
	Phase      Phase
	Multiplier float64   // BETTING=1.00，FLYING=当前倍数，CRASHED=爆点
	CrashPoint float64   // 本局爆点（对客户端的可见性由上层裁剪）
	FlyStart   time.Time // FLYING 起点（投注窗口结束时刻）
	NextAt     time.Time // 下一次阶段切换时刻
	Expired    bool      // 冷却已结束，本局待推进
}

// ResolveCrash 推导 crash 在 now 时刻的阶段
// 时间轴：start --10s--> 起飞 --TimeToReach(crashPoint)--> 爆点 --5s--> 局终
func ResolveCrash(now time.Time, startMs int64, crashPoint float64) CrashState {
	start := time.UnixMilli(startMs).UTC()
	flyStart := start.Add(CrashBettingDur)
	crashAt := flyStart.Add(game.TimeToReach(crashPoint))
	roundEnd := crashAt.Add(CrashCooldownDur)

	st := CrashState{CrashPoint: crashPoint, FlyStart: flyStart}
	switch {
	case now.Before(flyStart):
		st.Phase = PhaseBetting
		st.Multiplier = 1.00
		st.NextAt = flyStart
	case now.Before(crashAt):
		st.Phase = PhaseFlying
		st.Multiplier = game.MultiplierAt(now.Sub(flyStart))
		st.NextAt = crashAt
	default:
		st.Phase = PhaseCrashed
		st.Multiplier = crashPoint
		st.NextAt = roundEnd
		st.Expired = !now.Before(roundEnd)
	}
	return st
}

// NextCrashStart 过期后下一局的开始时刻
// 固定取本局结束点而非 now：长时间没有流量时回合逐局补推，
// 每次只跨一个回合边界，绝不跳过任何一局的结算
func NextCrashStart(startMs int64, crashPoint float64) time.Time {
	start := time.UnixMilli(startMs).UTC()
	return start.Add(CrashBettingDur).Add(game.TimeToReach(crashPoint)).Add(CrashCooldownDur)
}

// LotoState 某一时刻的 loto 回合快照
type LotoState struct {
	Phase   Phase
	DrawAt  time.Time // 本期开奖时刻（开始时间之后的第一个整点）
	Expired bool      // 已到开奖时刻，本期待开奖推进
}

// ResolveLoto 推导 loto 在 now 时刻的阶段
func ResolveLoto(now time.Time, startMs int64) LotoState {
	drawAt := NextLotoDraw(startMs)
	return LotoState{
		Phase:   PhaseOpen,
		DrawAt:  drawAt,
		Expired: !now.Before(drawAt),
	}
}

// NextLotoDraw 开始时间之后的第一个整点（UTC）
func NextLotoDraw(startMs int64) time.Time {
	start := time.UnixMilli(startMs).UTC()
	return start.Truncate(time.Hour).Add(time.Hour)
}
