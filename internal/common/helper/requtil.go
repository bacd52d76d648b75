package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- Play / ContinuousBet helpers --------

// PlayParsed 为解析后的下注入参（与控制器/服务层解耦）
// bet_spec 为按游戏而异的 JSON 对象，服务层负责按 game_id 解析与校验
type PlayParsed struct {
	GameId  string          `json:"game_id"`
	BetSpec json.RawMessage `json:"bet_spec"`
	/*
		幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证“同一业务请求只生效一次”。
		使用约定：
		- 对于“同一次下注”的所有重试，请传相同的 idempotency_key；
		- 业务语义不同（如内容/回合/用户不同）的请求必须使用不同的 key；
		- 建议生成方式：UUID（推荐）。
		服务端幂等保证（多层防护）：
		1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则视为重复请求，返回首次请求的结果；
		3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
	*/
	IdempotencyKey string `json:"idempotency_key"`
}

// ParsePlayFromJSON 解析 JSON 到 PlayParsed。失败返回 false 与错误消息。
func ParsePlayFromJSON(r io.Reader) (PlayParsed, bool, string) {
	var out PlayParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PlayParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParsePlayFromForm 从表单读取字段，bet_spec 为原始 JSON 字符串
func ParsePlayFromForm(ctx *beegocontext.Context) (PlayParsed, bool, string) {
	var out PlayParsed
	out.GameId = strings.TrimSpace(ctx.Input.Query("game_id"))
	if out.GameId == "" {
		return PlayParsed{}, false, "game_id required"
	}
	spec := strings.TrimSpace(ctx.Input.Query("bet_spec"))
	if spec == "" {
		return PlayParsed{}, false, "bet_spec required"
	}
	if !json.Valid([]byte(spec)) {
		return PlayParsed{}, false, "bet_spec must be a JSON object"
	}
	out.BetSpec = json.RawMessage(spec)

	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	if out.IdempotencyKey == "" {
		return PlayParsed{}, false, "idempotency_key required"
	}
	return out, true, ""
}

// ValidatePlay 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidatePlay(in *PlayParsed) (bool, string) {
	if in.GameId == "" || len(in.BetSpec) == 0 || strings.TrimSpace(in.IdempotencyKey) == "" {
		return false, "missing or invalid fields"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.GameId) > 64 || len(in.IdempotencyKey) > 64 || len(in.BetSpec) > 4096 {
		return false, "invalid request"
	}
	if !json.Valid(in.BetSpec) {
		return false, "bet_spec must be a JSON object"
	}
	return true, ""
}

// ParseAndValidatePlay 按 Content-Type 自动解析并做统一校验
func ParseAndValidatePlay(ctx *beegocontext.Context) (PlayParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePlayFromJSON, ParsePlayFromForm)
	if !ok {
		return PlayParsed{}, false, msg
	}
	if ok, msg := ValidatePlay(&out); !ok {
		return PlayParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Cashout helpers --------

type CashoutParsed struct {
	IdempotencyKey string `json:"idempotency_key"` // 可选
}

func ParseCashoutFromJSON(r io.Reader) (CashoutParsed, bool, string) {
	var out CashoutParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil && err != io.EOF {
		return CashoutParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseCashoutFromForm(ctx *beegocontext.Context) (CashoutParsed, bool, string) {
	return CashoutParsed{
		IdempotencyKey: strings.TrimSpace(ctx.Input.Query("idempotency_key")),
	}, true, ""
}

func ParseAndValidateCashout(ctx *beegocontext.Context) (CashoutParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCashoutFromJSON, ParseCashoutFromForm)
	if !ok {
		return CashoutParsed{}, false, msg
	}
	if len(out.IdempotencyKey) > 64 {
		return CashoutParsed{}, false, "invalid request"
	}
	return out, true, ""
}

// -------- Deposit / Withdraw helpers --------

type DepositParsed struct {
	Amount      string `json:"amount"`       // 元，最多两位小数
	ExternalRef string `json:"external_ref"` // 渠道唯一单号
}

func ParseDepositFromJSON(r io.Reader) (DepositParsed, bool, string) {
	var out DepositParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return DepositParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseDepositFromForm(ctx *beegocontext.Context) (DepositParsed, bool, string) {
	return DepositParsed{
		Amount:      strings.TrimSpace(ctx.Input.Query("amount")),
		ExternalRef: strings.TrimSpace(ctx.Input.Query("external_ref")),
	}, true, ""
}

func ValidateDeposit(in *DepositParsed) (bool, string) {
	if strings.TrimSpace(in.Amount) == "" || strings.TrimSpace(in.ExternalRef) == "" {
		return false, "missing required fields: amount/external_ref"
	}
	if len(in.Amount) > 32 || len(in.ExternalRef) > 64 {
		return false, "invalid request"
	}
	if !IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	return true, ""
}

func ParseAndValidateDeposit(ctx *beegocontext.Context) (DepositParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseDepositFromJSON, ParseDepositFromForm)
	if !ok {
		return DepositParsed{}, false, msg
	}
	if ok, msg := ValidateDeposit(&out); !ok {
		return DepositParsed{}, false, msg
	}
	return out, true, ""
}

type WithdrawParsed struct {
	Amount    string `json:"amount"`     // 元，最多两位小数
	RequestId string `json:"request_id"` // 上游唯一申请号
}

func ParseWithdrawFromJSON(r io.Reader) (WithdrawParsed, bool, string) {
	var out WithdrawParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return WithdrawParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseWithdrawFromForm(ctx *beegocontext.Context) (WithdrawParsed, bool, string) {
	return WithdrawParsed{
		Amount:    strings.TrimSpace(ctx.Input.Query("amount")),
		RequestId: strings.TrimSpace(ctx.Input.Query("request_id")),
	}, true, ""
}

func ValidateWithdraw(in *WithdrawParsed) (bool, string) {
	if strings.TrimSpace(in.Amount) == "" || strings.TrimSpace(in.RequestId) == "" {
		return false, "missing required fields: amount/request_id"
	}
	if len(in.Amount) > 32 || len(in.RequestId) > 64 {
		return false, "invalid request"
	}
	if !IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	return true, ""
}

func ParseAndValidateWithdraw(ctx *beegocontext.Context) (WithdrawParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseWithdrawFromJSON, ParseWithdrawFromForm)
	if !ok {
		return WithdrawParsed{}, false, msg
	}
	if ok, msg := ValidateWithdraw(&out); !ok {
		return WithdrawParsed{}, false, msg
	}
	return out, true, ""
}
