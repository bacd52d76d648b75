package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"casino-server/common/constant"
	"casino-server/common/helper"
	infmysql "casino-server/internal/infra/mysql"
	infrds "casino-server/internal/infra/redis"
	"casino-server/internal/model"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// 服务层公共组件：幂等锁、结果缓存、订单号、玩家获取

const (
	// Redis 进行中锁 TTL：建议小于最短投注窗口，避免长时间阻塞重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：用于重复请求直接返回第一次成功结果；应覆盖到大多数“短时重试”窗口
	idemResultTTL = 1 * time.Minute
)

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

// txContext 给事务加默认超时；上游已有 deadline 则沿用
func txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, has := ctx.Deadline(); has {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTxTimeout)
}

// cachedResult 幂等结果缓存快路径：命中返回 true 并反序列化到 out
func cachedResult(ctx context.Context, idemKey string, out any) bool {
	r := infrds.Client()
	if r == nil || idemKey == "" {
		return false
	}
	bs, _ := r.Get(ctx, infrds.IdemResultKey(idemKey)).Bytes()
	if len(bs) == 0 {
		return false
	}
	return json.Unmarshal(bs, out) == nil
}

// cacheResult 写入幂等结果缓存（降级容错，失败不影响主流程）
func cacheResult(ctx context.Context, idemKey string, out any) {
	r := infrds.Client()
	if r == nil || idemKey == "" {
		return
	}
	if b, e := json.Marshal(out); e == nil {
		_ = r.Set(ctx, infrds.IdemResultKey(idemKey), b, idemResultTTL).Err()
	}
}

// acquireIdemLock 获取进行中锁，返回释放函数
// 拿不到锁说明同幂等键的请求正在处理：先看结果缓存，没有就报进行中
func acquireIdemLock(ctx context.Context, tag, idemKey string, out any) (release func(), hit bool, err error) {
	r := infrds.Client()
	if r == nil || idemKey == "" {
		return func() {}, false, nil
	}

	// 生成唯一锁值，防止误删其他请求的锁
	lockValue := uuid.New().String()
	lockKey := infrds.IdemLockKey(idemKey)

	ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
	if !ok {
		if cachedResult(ctx, idemKey, out) {
			fmt.Printf("[%s] Redis 缓存命中（重复请求）: idem_key=%s\n", tag, idemKey)
			return func() {}, true, nil
		}
		fmt.Printf("[%s] 重复请求进行中: idem_key=%s\n", tag, idemKey)
		return func() {}, false, ErrDuplicateInFlight
	}

	release = func() {
		// Lua 脚本：只有当锁的值等于我们设置的值时才删除
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		result, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
		if err != nil {
			fmt.Printf("[%s] 释放分布式锁失败: idem_key=%s, error=%v\n", tag, idemKey, err)
		} else if result == int64(0) {
			fmt.Printf("[%s] 分布式锁已被其他请求释放或过期: idem_key=%s\n", tag, idemKey)
		}
	}
	return release, false, nil
}

// generateBillNo 生成可读的订单号
// 格式：GM{YYYYMMDD}{HHmmss}{UserID后4位}{随机3位十六进制}
// 示例：GM20251017143025100156A
// 优点：
//   - 可读：包含日期、时间、用户信息
//   - 有序：按时间排序
//   - 唯一：时间 + 用户 + 随机数保证唯一性
//   - 可追踪：可以从订单号看出下单时间和用户
func generateBillNo(userID int64) string {
	now := time.Now()
	dateTime := now.Format("20060102150405")
	userSuffix := fmt.Sprintf("%04d", userID%10000)
	// 随机3位十六进制（0-FFF，4096种可能）
	randomBytes := make([]byte, 2)
	rand.Read(randomBytes)
	randomHex := strings.ToUpper(hex.EncodeToString(randomBytes)[:3])

	return fmt.Sprintf("GM%s%s%s", dateTime, userSuffix, randomHex)
}

// getOrCreatePlayerInTx 在事务中获取或创建玩家（自动注册）
// 如果玩家不存在，自动创建；如果存在，返回现有玩家并加锁
func getOrCreatePlayerInTx(ctx context.Context, tx *sqlx.Tx, platformID int8, platformUserID, username string) (*model.Player, error) {
	// 1. 先尝试加锁查询
	p, err := model.GetPlayerByPlatformUserForUpdate(ctx, tx, platformID, platformUserID)
	if err == nil {
		return p, nil
	}
	if err.Error() != "sql: no rows in result set" {
		return nil, err
	}

	// 2. 玩家不存在，创建
	newPlayer := &model.Player{
		PlatformID:     platformID,
		PlatformUserID: platformUserID,
		Username:       username,
		Balance:        0,
		Status:         constant.PlayerStatusNormal,
	}
	if err := newPlayer.Insert(ctx, tx); err != nil {
		// 处理并发创建的情况（唯一索引冲突）
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			return model.GetPlayerByPlatformUserForUpdate(ctx, tx, platformID, platformUserID)
		}
		return nil, err
	}
	return newPlayer, nil
}

// parseStake 解析客户端金额字符串为分，校验上下限
// 客户端金额单位为元（最多两位小数），内部统一为分
func parseStake(raw string, minBet, maxBet int64) (int64, error) {
	amtDec, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidStake
	}
	if amtDec.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidStake
	}
	cents := amtDec.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, ErrInvalidStake
	}
	v := cents.IntPart()
	if minBet > 0 && v < minBet {
		return 0, ErrInvalidStake
	}
	if maxBet > 0 && v > maxBet {
		return 0, ErrInvalidStake
	}
	return v, nil
}

// formatMinor 分转元字符串（两位小数，去掉多余的0）
func formatMinor(v int64) string {
	return helper.TrimDecimal(decimal.NewFromInt(v).Div(decimal.NewFromInt(100)))
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// EnsurePlayer 获取或创建玩家账户（独立短事务），用于发放会话 Token 等场景
func EnsurePlayer(ctx context.Context, platformID int8, platformUserID, username string) (*model.Player, error) {
	txCtx, cancel := txContext(ctx)
	defer cancel()

	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := getOrCreatePlayerInTx(txCtx, tx, platformID, platformUserID, username)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}
