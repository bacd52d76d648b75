package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"casino-server/common"
	"casino-server/common/logger"
	"casino-server/internal/config"
	"casino-server/internal/game"
	infmysql "casino-server/internal/infra/mysql"
	infrds "casino-server/internal/infra/redis"
	"casino-server/internal/round"
	"casino-server/internal/worker"
	"casino-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置：Nacos 优先，本地文件兜底
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.Set(cfg)
	config.SetCurrent(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 配置热更新：只更新动态部分（开关/阈值/日志级别）
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		config.Set(newCfg)
		if newCfg.Server.LogLevel != "" && (oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel) {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// MySQL
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)

	// Redis
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 5*time.Second); err != nil {
		logger.Warn("redis ping failed, idempotency caches degrade to db-only", zap.Error(err))
	}

	// 连续型游戏回合引导：确保 crash/loto 各有一个进行中的回合
	rng := game.NewRand()
	roller := round.NewRoller(infmysql.SQLX(), rng)
	for _, gameID := range []string{round.GameCrash, round.GameLoto} {
		if err := roller.EnsureGame(ctx, gameID); err != nil {
			logger.Fatalf("ensure game round failed", zap.String("game_id", gameID), zap.Error(err))
		}
	}

	// 后台任务
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)
	worker.StartRoundTicker(ctx, &wg, rng)

	// Prometheus 指标暴露（独立端口）
	if cfg.Observability.EnableProm && cfg.Observability.PromAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("prometheus exporter listening", zap.String("addr", cfg.Observability.PromAddr))
			if err := http.ListenAndServe(cfg.Observability.PromAddr, mux); err != nil {
				logger.Warn("prometheus exporter stopped", zap.Error(err))
			}
		}()
	}

	// 信号处理：通知后台任务退出
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// HTTP 服务
	routers.Init()
	beego.BConfig.CopyRequestBody = true
	beego.BConfig.RunMode = beego.PROD
	if cfg.Server.Port > 0 {
		beego.BConfig.Listen.HTTPPort = cfg.Server.Port
	}
	logger.Info("casino-server starting", zap.String("port", strconv.Itoa(beego.BConfig.Listen.HTTPPort)))
	beego.Run()

	// beego.Run 返回后等待后台任务收尾
	cancel()
	wg.Wait()
}
