package api

import (
	"strconv"
	"strings"

	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// 钱包查询接口：
//   GET /api/wallet/balance
//   GET /api/wallet/ledger?limit=50
//   GET /api/wallet/orders?game_id=&limit=50

var newWalletService = service.NewWalletService

type WalletController struct{ beego.Controller }

// Balance 余额查询
func (c *WalletController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)
	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := newWalletService().GetBalance(c.Ctx.Request.Context(), platformID, platformUserID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Ledger 账变流水
func (c *WalletController) Ledger() {
	traceID := helper.GetTraceID(c.Ctx)
	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	limit, _ := strconv.Atoi(strings.TrimSpace(c.Ctx.Input.Query("limit")))
	out, err := newWalletService().ListLedger(c.Ctx.Request.Context(), platformID, platformUserID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Orders 注单历史
func (c *WalletController) Orders() {
	traceID := helper.GetTraceID(c.Ctx)
	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	gameID := strings.TrimSpace(c.Ctx.Input.Query("game_id"))
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Ctx.Input.Query("limit")))
	out, err := newWalletService().ListOrders(c.Ctx.Request.Context(), platformID, platformUserID, gameID, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Stats 投注统计（日/周/月）
func (c *WalletController) Stats() {
	traceID := helper.GetTraceID(c.Ctx)
	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := service.NewWalletStatsService().GetStats(c.Ctx.Request.Context(), platformID, platformUserID)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}
