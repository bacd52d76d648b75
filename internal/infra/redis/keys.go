package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixPlayIdemResult：下注/兑付幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果(JSON)，用于后续重复请求直接返回。
	PrefixPlayIdemResult = "play:idem:result:"
	// PrefixPlayIdemLock：下注/兑付幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixPlayIdemLock = "play:idem:lock:"

	// PrefixRoundState：连续游戏当前回合状态缓存（相位/倒计时），用于高频轮询降压
	PrefixRoundState = "round:state:"
	// PrefixRoundResult：历史回合结算结果缓存
	PrefixRoundResult = "round:result:"
)

// IdemResultKey：构造幂等“结果缓存”的完整 Key。
// 形如：play:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixPlayIdemResult + k }

// IdemLockKey：构造幂等“进行中锁”的完整 Key。
// 形如：play:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixPlayIdemLock + k }

// RoundStateKey：构造回合状态缓存 Key。形如：round:state:{game_id}
func RoundStateKey(gameID string) string { return PrefixRoundState + gameID }

// RoundResultKey：构造回合结算结果缓存 Key。形如：round:result:{game_id}:{round_id}
func RoundResultKey(gameID, roundID string) string {
	return PrefixRoundResult + gameID + ":" + roundID
}
