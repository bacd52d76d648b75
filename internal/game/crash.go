package game

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Crash 游戏的曲线与爆点
// 倍数曲线 m(t) = e^(k*t)，k 固定，约 8.3 秒翻一倍
// 爆点在每局开盘时抽定一次，局内绝不重抽

const (
	// CrashGrowthK 增长系数（每秒）
	CrashGrowthK = 0.08338

	// CrashHouseEdge 抽水常数：P(crashPoint < x) = 1 - 0.99/x
	CrashHouseEdge = 0.99

	// CrashPointMax 爆点上限，防止极端 U 产生天文数字
	CrashPointMax = 10000.00
)

var ErrEmptyCrashBet = errors.New("crash bet has no stake")

// CrashSpec crash 下注内容
// AutoCashout 可选：>=1.01 时由客户端声明的自动兑付目标，仅作展示记录，
// 兑付仍以服务端收到请求的时刻为准
type CrashSpec struct {
	Amount      int64   `json:"amount"`
	AutoCashout float64 `json:"auto_cashout,omitempty"`
}

func (s CrashSpec) Total() int64 { return s.Amount }

func (s CrashSpec) Validate() error {
	if s.Amount <= 0 {
		return ErrEmptyCrashBet
	}
	if s.AutoCashout != 0 && s.AutoCashout < 1.01 {
		return ErrEmptyCrashBet
	}
	return nil
}

// DrawCrashPoint 抽定本局爆点，保留两位小数
// crashPoint = max(1, floor(0.99/(1-U)*100)/100)
func DrawCrashPoint(r Rand) float64 {
	u := r.Float64()
	cp := math.Floor(CrashHouseEdge/(1-u)*100) / 100
	if cp < 1 {
		cp = 1.00
	}
	if cp > CrashPointMax {
		cp = CrashPointMax
	}
	return cp
}

// MultiplierAt 飞行 elapsed 时间后的展示倍数，截断到两位小数
func MultiplierAt(elapsed time.Duration) float64 {
	m := math.Exp(CrashGrowthK * elapsed.Seconds())
	return math.Floor(m*100) / 100
}

// TimeToReach 倍数达到 m 所需的飞行时长
// m <= 1 时返回 0
func TimeToReach(m float64) time.Duration {
	if m <= 1 {
		return 0
	}
	secs := math.Log(m) / CrashGrowthK
	return time.Duration(secs * float64(time.Second))
}

// CrashPayout 按提现倍数结算：floor(bet * multiplier)，分为单位
// float 直接乘会在大额上丢精度，这里走 decimal
func CrashPayout(bet int64, multiplier float64) int64 {
	m := decimal.NewFromFloat(multiplier)
	return decimal.NewFromInt(bet).Mul(m).Floor().IntPart()
}
