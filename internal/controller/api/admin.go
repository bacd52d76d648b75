package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"casino-server/common/constant"
	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/model"
	"casino-server/internal/round"

	beego "github.com/beego/beego/v2/server/web"
)

// 管理接口（Bearer 管理员 Token 保护）：
//   POST /api/admin/round/advance?game_id=crash  强制推进过期回合
//   GET  /api/admin/outbox/pending?limit=50      查看待投递事件
//   POST /api/admin/player/status                封禁/解封玩家

type AdminController struct{ beego.Controller }

// RoundAdvance 强制推进指定游戏的过期回合并落审计
func (c *AdminController) RoundAdvance() {
	traceID := helper.GetTraceID(c.Ctx)
	gameID := strings.TrimSpace(c.Ctx.Input.Query("game_id"))
	if gameID != round.GameCrash && gameID != round.GameLoto {
		response.BadRequest(&c.Controller, "game_id must be crash or loto", traceID)
		return
	}

	ctx := c.Ctx.Request.Context()
	cfg, err := newRoller().WithTrigger("admin").Advance(ctx, gameID, time.Now())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	audit := &model.RoundAudit{
		GameID:    gameID,
		RoundID:   cfg.RoundID,
		EventType: model.AuditEventManual,
		Operator:  "admin",
		Source:    "admin-api",
		Payload:   `{"op":"round_advance"}`,
		TraceID:   traceID,
	}
	_ = audit.Insert(ctx, infmysql.SQLX())

	response.Success(&c.Controller, map[string]interface{}{
		"game_id":     gameID,
		"round_id":    cfg.RoundID,
		"round_start": cfg.RoundStartTime,
	}, traceID)
}

// OutboxPending 查看待投递的 outbox 事件
func (c *AdminController) OutboxPending() {
	traceID := helper.GetTraceID(c.Ctx)
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Ctx.Input.Query("limit")))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := model.ListOutboxPending(c.Ctx.Request.Context(), infmysql.SQLX(), limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	}, traceID)
}

// PlayerStatus 封禁/解封玩家
func (c *AdminController) PlayerStatus() {
	traceID := helper.GetTraceID(c.Ctx)

	var in struct {
		UserID int64 `json:"user_id"`
		Status int8  `json:"status"`
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &in); err != nil || in.UserID <= 0 {
		response.BadRequest(&c.Controller, "user_id is required", traceID)
		return
	}
	if in.Status != constant.PlayerStatusNormal && in.Status != constant.PlayerStatusDisabled {
		response.BadRequest(&c.Controller, "status must be 0 or 1", traceID)
		return
	}

	n, err := model.UpdatePlayerStatus(c.Ctx.Request.Context(), infmysql.SQLX(), in.UserID, in.Status)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	if n == 0 {
		response.NotFound(&c.Controller, "player not found", traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"user_id": in.UserID,
		"status":  in.Status,
	}, traceID)
}
