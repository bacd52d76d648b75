package api

import (
	"time"

	infmysql "casino-server/internal/infra/mysql"
	infrds "casino-server/internal/infra/redis"

	beego "github.com/beego/beego/v2/server/web"
)

// HealthController 提供健康检查端点：/healthz 与 /readyz

type HealthController struct{ beego.Controller }

// Healthz 存活探针：仅返回进程存活
func (c *HealthController) Healthz() {
	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ok"))
}

// Readyz 就绪探针：探测 MySQL 与 Redis 连通性
// Redis 未初始化时跳过（Redis 为可降级依赖）
func (c *HealthController) Readyz() {
	ctx := c.Ctx.Request.Context()

	db := infmysql.DB()
	if db == nil {
		c.Ctx.Output.SetStatus(503)
		_ = c.Ctx.Output.Body([]byte("mysql not initialized"))
		return
	}
	if err := db.PingContext(ctx); err != nil {
		c.Ctx.Output.SetStatus(503)
		_ = c.Ctx.Output.Body([]byte("mysql unavailable"))
		return
	}

	if err := infrds.Ping(ctx, 500*time.Millisecond); err != nil {
		c.Ctx.Output.SetStatus(503)
		_ = c.Ctx.Output.Body([]byte("redis unavailable"))
		return
	}

	c.Ctx.Output.SetStatus(200)
	_ = c.Ctx.Output.Body([]byte("ready"))
}
