package api

import (
	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/round"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// 连续游戏接口：
//   POST /api/bet            下注（crash / loto）
//   POST /api/crash/cashout  crash 飞行中兑付

var newRoller = func() *round.Roller { return round.NewRoller(infmysql.SQLX(), defaultRNG) }

var newContinuousBetService = func() service.ContinuousBetService {
	return service.NewContinuousBetService(newRoller())
}

var newCashoutService = func() service.CashoutService {
	return service.NewCashoutService(newRoller())
}

type ContinuousController struct{ beego.Controller }

// Bet 连续游戏下注
func (c *ContinuousController) Bet() {
	traceID := helper.GetTraceID(c.Ctx)

	pp, ok, msg := helper.ParseAndValidatePlay(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	if pp.GameId != round.GameCrash && pp.GameId != round.GameLoto {
		response.BadRequest(&c.Controller, "game_id must be crash|loto", traceID)
		return
	}

	platformID, platformUserID, platformUserName := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newContinuousBetService()
	out, err := svc.PlaceBet(c.Ctx.Request.Context(), service.ContinuousBetInput{
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

// Cashout crash 兑付
func (c *ContinuousController) Cashout() {
	traceID := helper.GetTraceID(c.Ctx)

	cp, ok, msg := helper.ParseAndValidateCashout(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	svc := newCashoutService()
	out, err := svc.Cashout(c.Ctx.Request.Context(), service.CashoutInput{
		PlatformID:     platformID,
		PlatformUserID: platformUserID,
		IdempotencyKey: cp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		writePlayError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}
