package game

import "errors"

// 骰宝玩法：掷两颗骰子，按点数和分 under7 / seven / over7 三个盘口
// 赔率固定：under7 x2、seven x6、over7 x2
// 三个盘口相互独立，各自结算后求和
const (
	DiceUnder7Multiplier = 2
	DiceSevenMultiplier  = 6
	DiceOver7Multiplier  = 2
)

var ErrEmptyDiceBet = errors.New("dice bet has no stake")

// DiceSpec 骰宝下注内容：每个盘口的注额（分），0 表示未下该盘口
type DiceSpec struct {
	Under7 int64 `json:"under7"`
	Seven  int64 `json:"seven"`
	Over7  int64 `json:"over7"`
}

// Total 总注额
func (s DiceSpec) Total() int64 { return s.Under7 + s.Seven + s.Over7 }

// Validate 校验：至少一个盘口有注，且所有注额非负
func (s DiceSpec) Validate() error {
	if s.Under7 < 0 || s.Seven < 0 || s.Over7 < 0 {
		return ErrEmptyDiceBet
	}
	if s.Total() <= 0 {
		return ErrEmptyDiceBet
	}
	return nil
}

// DiceOutcome 骰宝开奖结果
type DiceOutcome struct {
	Die1  int `json:"die1"`
	Die2  int `json:"die2"`
	Total int `json:"total"`
}

// PlayDice 掷骰并结算，返回结果与总派彩（分）
func PlayDice(r Rand, spec DiceSpec) (DiceOutcome, int64) {
	out := DiceOutcome{
		Die1: 1 + r.Intn(6),
		Die2: 1 + r.Intn(6),
	}
	out.Total = out.Die1 + out.Die2

	var payout int64
	switch {
	case out.Total < 7:
		payout = spec.Under7 * DiceUnder7Multiplier
	case out.Total == 7:
		payout = spec.Seven * DiceSevenMultiplier
	default:
		payout = spec.Over7 * DiceOver7Multiplier
	}
	return out, payout
}
