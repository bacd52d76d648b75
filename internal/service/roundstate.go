package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	infrds "casino-server/internal/infra/redis"
	"casino-server/internal/model"
	"casino-server/internal/round"
)

// 回合状态查询：观测性接口，但内部可能触发惰性推进
// （空闲轮询正是长期无人下注时回合得以继续滚动的动力）

// RoundStateOutput 当前回合快照
type RoundStateOutput struct {
	GameID        string          `json:"game_id"`
	RoundID       int64           `json:"round_id"`
	Phase         string          `json:"phase"`
	Multiplier    float64         `json:"multiplier,omitempty"`   // crash: 当前倍数
	CrashPoint    float64         `json:"crash_point,omitempty"`  // crash: 仅 CRASHED 后揭晓
	RoundStart    int64           `json:"round_start"`            // 毫秒时间戳
	NextTransition int64          `json:"next_transition"`        // 下一次阶段切换（毫秒时间戳）
	RecentHistory json.RawMessage `json:"recent_history"`
}

type RoundStateService interface {
	GetRoundState(ctx context.Context, gameID string) (*RoundStateOutput, error)
}

type roundStateService struct {
	roller *round.Roller
}

func NewRoundStateService(roller *round.Roller) RoundStateService {
	return &roundStateService{roller: roller}
}

// 状态缓存 TTL：吸收高频轮询；crash 倍数由客户端按相位自行插值
const roundStateCacheTTL = 500 * time.Millisecond

// GetRoundState 读取当前回合状态，必要时先惰性推进
func (s *roundStateService) GetRoundState(ctx context.Context, gameID string) (*RoundStateOutput, error) {
	if gameID != round.GameCrash && gameID != round.GameLoto {
		return nil, ErrUnknownGame
	}

	// Redis 短缓存快路径
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.RoundStateKey(gameID)).Bytes(); len(bs) > 0 {
			var out RoundStateOutput
			if json.Unmarshal(bs, &out) == nil {
				return &out, nil
			}
		}
	}

	now := time.Now()
	var out *RoundStateOutput
	// 单次 Advance 有补推上限，极长停摆后可能没追完；多推几轮，
	// 避免把早已过期的旧回合当作当前状态返回
	for attempt := 0; attempt < 3; attempt++ {
		cfg, err := s.roller.Advance(ctx, gameID, now)
		if err != nil {
			fmt.Printf("[RoundState] 回合推进失败: error=%v, game_id=%s\n", err, gameID)
			return nil, err
		}
		var expired bool
		out, expired, err = buildRoundState(now, gameID, cfg)
		if err != nil {
			return nil, err
		}
		if !expired {
			break
		}
	}

	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.RoundStateKey(gameID), b, roundStateCacheTTL).Err()
		}
	}
	return out, nil
}

// buildRoundState 把配置行解析成对外快照，未揭晓的结果字段在此裁剪
// 第二个返回值表示该回合是否已过期待推进（补推没追完时为 true）
func buildRoundState(now time.Time, gameID string, cfg *model.GameConfig) (*RoundStateOutput, bool, error) {
	out := &RoundStateOutput{
		GameID:        gameID,
		RoundID:       cfg.RoundID,
		RoundStart:    cfg.RoundStartTime,
		RecentHistory: json.RawMessage(cfg.History),
	}
	switch gameID {
	case round.GameCrash:
		params, err := round.ParseCrashParams(cfg.OutcomeParams)
		if err != nil {
			return nil, false, err
		}
		st := round.ResolveCrash(now, cfg.RoundStartTime, params.CrashPoint)
		out.Phase = string(st.Phase)
		out.Multiplier = st.Multiplier
		out.NextTransition = st.NextAt.UnixMilli()
		switch st.Phase {
		case round.PhaseCrashed:
			out.CrashPoint = params.CrashPoint
		case round.PhaseFlying:
			// 飞行中 NextAt 就是爆点时刻，曲线参数公开，
			// 客户端可由 e^(k·(NextAt-起飞)) 反推出爆点，
			// 与 crash_point 同等裁剪，局终才揭晓
			out.NextTransition = 0
		}
		return out, st.Expired, nil
	case round.GameLoto:
		st := round.ResolveLoto(now, cfg.RoundStartTime)
		out.Phase = string(st.Phase)
		out.NextTransition = st.DrawAt.UnixMilli()
		return out, st.Expired, nil
	}
	return nil, false, ErrUnknownGame
}
