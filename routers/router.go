package routers

import (
	"casino-server/internal/config"
	"casino-server/internal/controller/api"
	"casino-server/internal/metrics"
	"casino-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// Init 注册HTTP路由与全局过滤器
// 必须在配置加载完成后调用，否则按默认（生产认证、无CORS）注册
func Init() {
	cfg := config.GetCurrent()

	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（如果启用）
	if cfg != nil && cfg.CORS.Enabled {
		beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)
	}

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 业务 API（需要认证） ==========

	// 玩家侧接口：平台认证 + 限流
	authFilter := middleware.PlatformAuthFilter
	if cfg != nil && cfg.Auth.DemoMode {
		// 演示模式：简化认证
		authFilter = middleware.DemoAuthFilter
	}
	for _, pattern := range []string{"/api/play", "/api/bet", "/api/crash/*", "/api/wallet/*"} {
		beego.InsertFilter(pattern, beego.BeforeExec, authFilter)
		if cfg != nil && cfg.RateLimit.Enabled {
			beego.InsertFilter(pattern, beego.BeforeExec, middleware.RateLimitFilter)
		}
	}

	// 即时游戏：一次请求完成扣款-开奖-派彩
	beego.Router("/api/play", &api.PlayController{}, "post:Play")

	// 连续游戏：建仓与兑付
	beego.Router("/api/bet", &api.ContinuousController{}, "post:Bet")
	beego.Router("/api/crash/cashout", &api.ContinuousController{}, "post:Cashout")

	// 钱包查询（用户只能查询自己的数据）
	beego.Router("/api/wallet/balance", &api.WalletController{}, "get:Balance")
	beego.Router("/api/wallet/ledger", &api.WalletController{}, "get:Ledger")
	beego.Router("/api/wallet/orders", &api.WalletController{}, "get:Orders")
	beego.Router("/api/wallet/stats", &api.WalletController{}, "get:Stats")

	// 回合状态：无需认证（公开观测，轮询同时驱动惰性推进）
	beego.Router("/api/round/:game_id", &api.RoundController{}, "get:GetState")
	beego.Router("/api/round/:game_id/result/:round_id", &api.RoundController{}, "get:GetResult")

	// ========== 会话 Token ==========
	// 平台为玩家换取 JWT，之后客户端可持 Token 直连查询接口
	beego.InsertFilter("/api/auth/token", beego.BeforeExec, authFilter)
	beego.Router("/api/auth/token", &api.AuthController{}, "post:Token")
	beego.Router("/api/auth/refresh", &api.AuthController{}, "post:Refresh")
	beego.Router("/api/auth/logout", &api.AuthController{}, "post:Logout")

	// JWT 保护的查询镜像（身份取自 Token claims）
	beego.InsertFilter("/api/session/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/session/balance", &api.WalletController{}, "get:Balance")
	beego.Router("/api/session/ledger", &api.WalletController{}, "get:Ledger")
	beego.Router("/api/session/orders", &api.WalletController{}, "get:Orders")
	beego.Router("/api/session/stats", &api.WalletController{}, "get:Stats")

	// ========== 管理接口（管理员 Token） ==========
	beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)
	beego.Router("/api/admin/round/advance", &api.AdminController{}, "post:RoundAdvance")
	beego.Router("/api/admin/outbox/pending", &api.AdminController{}, "get:OutboxPending")
	beego.Router("/api/admin/player/status", &api.AdminController{}, "post:PlayerStatus")

	// ========== 充提回调（平台签名认证） ==========
	beego.InsertFilter("/api/payment/*", beego.BeforeExec, middleware.PlatformAuthFilter)
	beego.Router("/api/payment/deposit", &api.PaymentController{}, "post:Deposit")
	beego.Router("/api/payment/withdraw", &api.PaymentController{}, "post:Withdraw")
	beego.Router("/api/payment/withdraw/confirm", &api.PaymentController{}, "post:WithdrawConfirm")
	beego.Router("/api/payment/withdraw/reject", &api.PaymentController{}, "post:WithdrawReject")
}
