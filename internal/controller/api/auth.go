package api

import (
	"strings"

	"casino-server/internal/auth"
	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// 会话 Token 接口：
//   POST /api/auth/token   平台认证后为指定玩家换取 JWT（access + refresh）
//   POST /api/auth/refresh 持 refresh token 换取新 access token
//   POST /api/auth/logout  撤销当前 token
//
// 发放的 Token 携带 platform_id 与 platform_user_id，
// 持 Token 的客户端可直接访问 /api/session/* 下的查询接口

type AuthController struct{ beego.Controller }

// Token 平台为玩家换取会话 Token
func (c *AuthController) Token() {
	traceID := helper.GetTraceID(c.Ctx)
	platformID, platformUserID, platformUserName := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	player, err := service.EnsurePlayer(c.Ctx.Request.Context(), platformID, platformUserID, platformUserName)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	appKey := ""
	if v := c.Ctx.Input.GetData("platform"); v != nil {
		if p, ok := v.(*auth.Platform); ok {
			appKey = p.AppKey
		}
	}

	accessToken, err := auth.GenerateAccessToken(player.ID, player.Username, platformID, platformUserID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	refreshToken, err := auth.GenerateRefreshToken(player.ID, player.Username, platformID, platformUserID, appKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}

	response.Success(&c.Controller, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"token_type":    "Bearer",
	}, traceID)
}

// Refresh 持 refresh token 换取新 access token
func (c *AuthController) Refresh() {
	traceID := helper.GetTraceID(c.Ctx)

	claims, err := auth.VerifyJWTToken(c.Ctx)
	if err != nil {
		response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		return
	}
	if claims.TokenType != "refresh" {
		response.ErrorWithMessage(&c.Controller, 401, response.CodeInvalidToken, "refresh token required", traceID)
		return
	}

	accessToken, err := auth.GenerateAccessToken(claims.UserID, claims.Username, claims.PlatformID, claims.PlatformUserID, claims.AppKey)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
	}, traceID)
}

// Logout 撤销当前 token（加入 Redis 黑名单直至过期）
func (c *AuthController) Logout() {
	traceID := helper.GetTraceID(c.Ctx)

	claims, err := auth.VerifyJWTToken(c.Ctx)
	if err != nil {
		response.Error(&c.Controller, 401, response.CodeInvalidToken, traceID)
		return
	}

	raw := bearerToken(c.Ctx.Input.Header("Authorization"))
	if raw != "" && claims.ExpiresAt != nil {
		_ = auth.RevokeToken(c.Ctx.Request.Context(), raw, claims.ExpiresAt.Time)
	}
	response.Success(&c.Controller, nil, traceID)
}

func bearerToken(header string) string {
	parts := strings.Split(strings.TrimSpace(header), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
