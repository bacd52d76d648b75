package helper

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

// 外呼超时配置常量
const (
	WebhookTimeout = 8 * time.Second // 平台 webhook 回调统一超时时间
	FastTimeout    = 3 * time.Second // 快速接口超时时间
)

// 并发统计指标
var (
	activeConnections int64 // 当前活跃连接数
	totalRequests     int64 // 总请求数
)

// 全局HTTP客户端，复用连接
var (
	globalClient = &fasthttp.Client{
		ReadTimeout:                   5 * time.Second,
		WriteTimeout:                  5 * time.Second,
		MaxIdleConnDuration:           90 * time.Second,
		MaxConnsPerHost:               50,
		MaxConnWaitTimeout:            3 * time.Second,
		DisableHeaderNamesNormalizing: true,
	}

	// webhook 投递专用客户端：outbox 补投可能瞬时放量，连接上限放宽
	webhookClient = &fasthttp.Client{
		ReadTimeout:                   WebhookTimeout,
		WriteTimeout:                  WebhookTimeout,
		MaxIdleConnDuration:           60 * time.Second,
		MaxConnsPerHost:               100,
		MaxConnWaitTimeout:            1 * time.Second,
		DisableHeaderNamesNormalizing: true,
	}
)

func HttpDoTimeout(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	return doTimeout(globalClient, requestBody, method, requestURI, headers, timeout)
}

// HttpDoTimeoutWebhook 走 webhook 专用客户端，并记录并发统计
func HttpDoTimeoutWebhook(requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	atomic.AddInt64(&activeConnections, 1)
	atomic.AddInt64(&totalRequests, 1)
	defer atomic.AddInt64(&activeConnections, -1)

	return doTimeout(webhookClient, requestBody, method, requestURI, headers, timeout)
}

func doTimeout(client *fasthttp.Client, requestBody []byte, method string, requestURI string, headers map[string]string, timeout time.Duration) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseResponse(resp)
		fasthttp.ReleaseRequest(req)
	}()

	req.SetRequestURI(requestURI)
	req.Header.SetMethod(method)
	if method == "POST" || method == "PUT" {
		req.SetBody(requestBody)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	err := client.DoTimeout(req, resp, timeout)

	var respBytes []byte
	statusCode := 0
	if err == nil {
		respBytes = append(respBytes, resp.Body()...)
		statusCode = resp.StatusCode()
	}
	return respBytes, statusCode, errors.WithStack(err)
}

// GetConcurrencyStats 获取 webhook 外呼并发统计
func GetConcurrencyStats() (activeConns int64, totalReqs int64) {
	return atomic.LoadInt64(&activeConnections), atomic.LoadInt64(&totalRequests)
}
