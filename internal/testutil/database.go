package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"casino-server/common/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// TestDatabase 一个测试专用的 MySQL 实例
type TestDatabase struct {
	Container *mysql.MySQLContainer
	DB        *sqlx.DB
	DSN       string
}

var loggerOnce sync.Once

// schema 与线上建表语句保持一致，测试容器启动后逐条执行
const schema = `
CREATE TABLE players (
    user_id          BIGINT       NOT NULL AUTO_INCREMENT,
    platform_id      TINYINT      NOT NULL,
    platform_user_id VARCHAR(64)  NOT NULL,
    username         VARCHAR(64)  NOT NULL DEFAULT '',
    balance          BIGINT       NOT NULL DEFAULT 0,
    total_deposited  BIGINT       NOT NULL DEFAULT 0,
    total_wagered    BIGINT       NOT NULL DEFAULT 0,
    status           TINYINT      NOT NULL DEFAULT 1,
    created_at       BIGINT       NOT NULL,
    updated_at       BIGINT       NOT NULL,
    PRIMARY KEY (user_id),
    UNIQUE KEY uk_platform_user (platform_id, platform_user_id)
);

CREATE TABLE wallet_ledger (
    id            BIGINT       NOT NULL AUTO_INCREMENT,
    user_id       BIGINT       NOT NULL,
    kind          INT          NOT NULL,
    kind_str      VARCHAR(16)  NOT NULL DEFAULT '',
    amount        BIGINT       NOT NULL,
    before_amount BIGINT       NOT NULL,
    after_amount  BIGINT       NOT NULL,
    status        TINYINT      NOT NULL,
    reference     VARCHAR(128) NOT NULL,
    bill_no       VARCHAR(64)  NOT NULL DEFAULT '',
    game_id       VARCHAR(16)  NOT NULL DEFAULT '',
    round_id      BIGINT       NOT NULL DEFAULT 0,
    metadata      TEXT,
    trace_id      VARCHAR(64)  NOT NULL DEFAULT '',
    created_at    BIGINT       NOT NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uk_reference (reference),
    KEY idx_user (user_id)
);

CREATE TABLE game_config (
    game_id          VARCHAR(16) NOT NULL,
    round_id         BIGINT      NOT NULL,
    round_start_time BIGINT      NOT NULL,
    outcome_params   TEXT        NOT NULL,
    history          TEXT        NOT NULL,
    updated_at       BIGINT      NOT NULL DEFAULT 0,
    PRIMARY KEY (game_id)
);

CREATE TABLE settlement_log (
    id           BIGINT      NOT NULL AUTO_INCREMENT,
    game_id      VARCHAR(16) NOT NULL,
    round_id     BIGINT      NOT NULL,
    outcome      TEXT        NOT NULL,
    total_orders INT         NOT NULL DEFAULT 0,
    total_payout BIGINT      NOT NULL DEFAULT 0,
    operator     VARCHAR(32) NOT NULL DEFAULT '',
    trace_id     VARCHAR(64) NOT NULL DEFAULT '',
    created_at   BIGINT      NOT NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uk_game_round (game_id, round_id)
);

CREATE TABLE bet_orders (
    bill_no          VARCHAR(64)  NOT NULL,
    game_id          VARCHAR(16)  NOT NULL,
    round_id         BIGINT       NOT NULL,
    user_id          BIGINT       NOT NULL,
    platform_id      TINYINT      NOT NULL,
    platform_user_id VARCHAR(64)  NOT NULL,
    bet_amount       BIGINT       NOT NULL,
    payout_amount    BIGINT       NOT NULL DEFAULT 0,
    bill_status      TINYINT      NOT NULL,
    bet_spec         TEXT,
    outcome_data     TEXT,
    idempotency_key  VARCHAR(128) NOT NULL DEFAULT '',
    trace_id         VARCHAR(64)  NOT NULL DEFAULT '',
    created_at       BIGINT       NOT NULL,
    updated_at       BIGINT       NOT NULL,
    PRIMARY KEY (bill_no),
    UNIQUE KEY uk_game_round_user (game_id, round_id, user_id)
);

CREATE TABLE round_audit (
    id         BIGINT      NOT NULL AUTO_INCREMENT,
    game_id    VARCHAR(16) NOT NULL,
    round_id   BIGINT      NOT NULL,
    event_type VARCHAR(32) NOT NULL,
    prev_phase VARCHAR(16) NOT NULL DEFAULT '',
    next_phase VARCHAR(16) NOT NULL DEFAULT '',
    operator   VARCHAR(32) NOT NULL DEFAULT '',
    source     VARCHAR(32) NOT NULL DEFAULT '',
    payload    TEXT,
    trace_id   VARCHAR(64) NOT NULL DEFAULT '',
    created_at BIGINT      NOT NULL,
    PRIMARY KEY (id),
    KEY idx_game_round (game_id, round_id)
);

CREATE TABLE outbox (
    id          BIGINT       NOT NULL AUTO_INCREMENT,
    topic       VARCHAR(64)  NOT NULL,
    biz_key     VARCHAR(128) NOT NULL,
    payload     TEXT         NOT NULL,
    status      TINYINT      NOT NULL DEFAULT 0,
    retry_count INT          NOT NULL DEFAULT 0,
    last_error  TEXT,
    created_at  BIGINT       NOT NULL,
    updated_at  BIGINT       NOT NULL,
    PRIMARY KEY (id),
    KEY idx_status (status)
);

CREATE TABLE inbox (
    message_id   VARCHAR(128) NOT NULL,
    topic        VARCHAR(64)  NOT NULL,
    payload      TEXT,
    processed_at BIGINT       NOT NULL DEFAULT 0,
    created_at   BIGINT       NOT NULL,
    PRIMARY KEY (message_id)
);

CREATE TABLE idempotency_keys (
    idempotency_key VARCHAR(128) NOT NULL,
    purpose         VARCHAR(32)  NOT NULL,
    ref             VARCHAR(128) NOT NULL DEFAULT '',
    created_at      BIGINT       NOT NULL,
    PRIMARY KEY (idempotency_key)
);
`

// SetupTestDatabase 启动一个带完整表结构的 MySQL 测试容器
// 容器随测试结束自动回收，每个测试拿到的是独立干净的库
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	// model 层失败路径会打 zap 日志，保证全局日志器已初始化
	loggerOnce.Do(logger.InitLogger)

	labels := map[string]string{
		"test":      "casino-server",
		"test-name": t.Name(),
		"timestamp": time.Now().Format("20060102-150405"),
		"cleanup":   "auto",
	}

	container, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase("casino_test"),
		mysql.WithUsername("test_user"),
		mysql.WithPassword("test_password"),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{Labels: labels},
		}),
	)
	require.NoError(t, err)

	td := &TestDatabase{Container: container}
	t.Cleanup(func() {
		td.cleanup(t)
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "multiStatements=true")
	require.NoError(t, err)

	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	require.NoError(t, err)

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err = db.ExecContext(ctx, stmt)
		require.NoError(t, err, "bootstrap schema: %s", firstLine(stmt))
	}

	td.DB = db
	td.DSN = dsn
	return td
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

// cleanup 关连接并销毁容器，清理失败只记日志不挂测试
func (td *TestDatabase) cleanup(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Logf("panic during container cleanup (recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if td.DB != nil {
		_ = td.DB.Close()
	}
	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate test container: %v", err)
		}
	}
}
