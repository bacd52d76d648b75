package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "bet_requests_total",
			Help:      "Total bet requests by result and game",
		},
		[]string{"result", "game"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casino",
			Name:      "bet_request_duration_ms",
			Help:      "Bet request duration in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "game"},
	)

	roundSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "rounds_settled_total",
			Help:      "Rounds settled per game, by trigger (lazy request vs background ticker)",
		},
		[]string{"game", "trigger"},
	)
)

// RecordBet 记录一次下注调用的业务指标
// result 取 "success" 或 "fail"；game 统一转小写
func RecordBet(result, game string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	gm := strings.ToLower(game)
	betTotal.WithLabelValues(res, gm).Inc()
	betDuration.WithLabelValues(res, gm).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordRoundSettled 记录一次回合结算
func RecordRoundSettled(game, trigger string) {
	roundSettledTotal.WithLabelValues(game, trigger).Inc()
}
