package api

import (
	"errors"

	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/game"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	beegocontext "github.com/beego/beego/v2/server/web/context"
	mysqlerr "github.com/go-sql-driver/mysql"
)

// 即时游戏下注接口：POST /api/play
// game_id: dice|roulette|wheel|qlotto

var defaultRNG = game.NewRand()

var newPlayService = func() service.PlayService { return service.NewPlayService(defaultRNG) }

type PlayController struct{ beego.Controller }

// platformIdentity 从 context 提取平台身份（由认证中间件注入）
func platformIdentity(ctx *beegocontext.Context) (int8, string, string) {
	platformID := int8(0)
	platformUserID := ""
	platformUserName := ""
	if v := ctx.Input.GetData("platform_id"); v != nil {
		if pid, ok := v.(int8); ok {
			platformID = pid
		}
	}
	if v := ctx.Input.GetData("platform_user_id"); v != nil {
		if puid, ok := v.(string); ok {
			platformUserID = puid
		}
	}
	if v := ctx.Input.GetData("platform_user_name"); v != nil {
		if pname, ok := v.(string); ok {
			platformUserName = pname
		}
	}
	return platformID, platformUserID, platformUserName
}

// Play 处理即时游戏下注
func (c *PlayController) Play() {
	traceID := helper.GetTraceID(c.Ctx)

	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	pp, ok, msg := helper.ParseAndValidatePlay(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	platformID, platformUserID, platformUserName := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newPlayService()
	out, err := svc.Play(c.Ctx.Request.Context(), service.PlayInput{
		GameID:           pp.GameId,
		PlatformID:       platformID,
		PlatformUserID:   platformUserID,
		PlatformUserName: platformUserName,
		BetSpec:          pp.BetSpec,
		IdempotencyKey:   pp.IdempotencyKey,
		TraceID:          traceID,
	})
	if err != nil {
		writePlayError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// writePlayError 业务错误统一转响应
func writePlayError(c *beego.Controller, err error, traceID string) {
	// MySQL 唯一键冲突
	if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
		response.Conflict(c, response.CodeDuplicateKey, traceID)
		return
	}
	switch {
	case errors.Is(err, service.ErrDuplicateInFlight):
		response.Accepted(c, "重复请求进行中，请稍后重试", traceID)
	case errors.Is(err, service.ErrInvalidStake),
		errors.Is(err, service.ErrUnknownGame),
		errors.Is(err, game.ErrEmptyDiceBet),
		errors.Is(err, game.ErrEmptyWheelBet),
		errors.Is(err, game.ErrEmptyQuickLottoBet),
		errors.Is(err, game.ErrEmptyCrashBet),
		errors.Is(err, game.ErrEmptyLotoBet),
		errors.Is(err, game.ErrEmptyRouletteBet),
		errors.Is(err, game.ErrInvalidRouletteBet),
		errors.Is(err, game.ErrInvalidLotoBet):
		response.BadRequest(c, err.Error(), traceID)
	case errors.Is(err, service.ErrInsufficientFunds):
		response.Conflict(c, response.CodeInsufficientBalance, traceID)
	case errors.Is(err, service.ErrPlayerDisabled):
		response.Error(c, 403, response.CodeForbidden, traceID)
	case errors.Is(err, service.ErrRoundClosed):
		response.Conflict(c, response.CodeBetWindowClosed, traceID)
	case errors.Is(err, service.ErrDuplicateBet):
		response.Conflict(c, response.CodeConflictingBet, traceID)
	case errors.Is(err, service.ErrStaleCashout):
		response.Conflict(c, response.CodeInvalidState, traceID)
	case errors.Is(err, service.ErrNoActiveBet):
		response.NotFound(c, "no active bet in this round", traceID)
	case errors.Is(err, service.ErrGameNotConfigured):
		response.NotFound(c, "game not configured", traceID)
	default:
		response.InternalError(c, traceID)
	}
}
