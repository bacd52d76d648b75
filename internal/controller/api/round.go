package api

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	infmysql "casino-server/internal/infra/mysql"
	infrds "casino-server/internal/infra/redis"
	"casino-server/internal/model"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// 回合查询接口：
//   GET /api/round/:game_id                    当前回合状态（可能触发惰性推进）
//   GET /api/round/:game_id/result/:round_id   历史回合结算结果

var newRoundStateService = func() service.RoundStateService {
	return service.NewRoundStateService(newRoller())
}

// 结算结果缓存 TTL：历史结果不可变，可放心长缓存
const roundResultCacheTTL = 10 * time.Minute

type RoundController struct {
	beego.Controller
}

// GetState 当前回合状态
// 纯观测接口，但第一个观察到回合过期的轮询会触发回合推进
func (c *RoundController) GetState() {
	traceID := helper.GetTraceID(c.Ctx)
	gameID := c.Ctx.Input.Param(":game_id")
	if gameID == "" {
		response.BadRequest(&c.Controller, "game_id is required", traceID)
		return
	}

	svc := newRoundStateService()
	out, err := svc.GetRoundState(c.Ctx.Request.Context(), gameID)
	if err != nil {
		writePlayError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// GetResult 历史回合结算结果（Redis 缓存，DB 回源并回填）
func (c *RoundController) GetResult() {
	traceID := helper.GetTraceID(c.Ctx)
	gameID := c.Ctx.Input.Param(":game_id")
	roundIDStr := c.Ctx.Input.Param(":round_id")
	roundID, err := strconv.ParseInt(roundIDStr, 10, 64)
	if gameID == "" || err != nil || roundID <= 0 {
		response.BadRequest(&c.Controller, "game_id and numeric round_id required", traceID)
		return
	}

	ctx := c.Ctx.Request.Context()

	// Redis 快路径
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.RoundResultKey(gameID, roundIDStr)).Bytes(); len(bs) > 0 {
			var cached map[string]any
			if json.Unmarshal(bs, &cached) == nil {
				response.Success(&c.Controller, cached, traceID)
				return
			}
		}
	}

	slog, err := model.GetSettlementLog(ctx, infmysql.SQLX(), gameID, roundID)
	if err != nil {
		if err == sql.ErrNoRows {
			response.NotFound(&c.Controller, "round not settled", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	out := map[string]any{
		"game_id":      slog.GameID,
		"round_id":     slog.RoundID,
		"outcome":      json.RawMessage(slog.Outcome),
		"total_orders": slog.TotalOrders,
		"total_payout": slog.TotalPayout,
		"settled_at":   slog.CreatedAt,
	}
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.RoundResultKey(gameID, roundIDStr), b, roundResultCacheTTL).Err()
		}
	}
	response.Success(&c.Controller, out, traceID)
}
