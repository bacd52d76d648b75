package worker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"casino-server/common/helper"
	"casino-server/common/logger"
	"casino-server/internal/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// webhookPublisher 通过 HTTP 回调把 outbox 事件推送给对接平台。
// 签名方式与入站平台认证一致：HMAC-SHA256(topic + timestamp + body, secret)
type webhookPublisher struct {
	url     string
	secret  string
	timeout time.Duration
}

func webhookConfigured() bool {
	cfg := config.Get()
	return cfg != nil && cfg.Webhook.Enabled && cfg.Webhook.URL != ""
}

func newWebhookPublisher() *webhookPublisher {
	cfg := config.Get()
	timeout := 5 * time.Second
	if cfg.Webhook.TimeoutMs > 0 {
		timeout = time.Duration(cfg.Webhook.TimeoutMs) * time.Millisecond
	}
	return &webhookPublisher{
		url:     cfg.Webhook.URL,
		secret:  cfg.Webhook.Secret,
		timeout: timeout,
	}
}

func (w *webhookPublisher) Publish(topic string, body []byte) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	headers := map[string]string{
		"Content-Type":      "application/json",
		"X-Webhook-Topic":   topic,
		"X-Timestamp":       ts,
		"X-Webhook-Version": "1",
	}
	if w.secret != "" {
		mac := hmac.New(sha256.New, []byte(w.secret))
		mac.Write([]byte(topic + ts))
		mac.Write(body)
		headers["X-Webhook-Signature"] = hex.EncodeToString(mac.Sum(nil))
	}

	respBody, status, err := helper.HttpDoTimeoutWebhook(body, "POST", w.url, headers, w.timeout)
	if err != nil {
		return errors.Wrap(err, "webhook post")
	}
	if status < 200 || status >= 300 {
		logger.Warn("[webhook] non-2xx response",
			zap.String("topic", topic),
			zap.Int("status", status),
			zap.ByteString("body", truncateBody(respBody)))
		return fmt.Errorf("webhook status %d", status)
	}
	return nil
}

func truncateBody(b []byte) []byte {
	if len(b) > 200 {
		return b[:200]
	}
	return b
}
