package game

import (
	"errors"
	"fmt"
	"strings"
)

// 欧式轮盘：单零盘，号码 0..36
// 支持的盘口与赔付倍数（含本金）：
//   straight 直注 x36 | color 红黑 x2 | dozen 打注 x3
//   column 列注 x3    | half 大小 x2  | parity 单双 x2
// 一次请求可同时押任意多个盘口，全部对同一个开出号码结算后求和
// 0 号通吃除直注 0 外的所有盘口

var (
	ErrEmptyRouletteBet   = errors.New("roulette bet has no stake")
	ErrInvalidRouletteBet = errors.New("invalid roulette bet")
)

// 红号集合（欧式标准布局）
var rouletteRed = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// RouletteBet 单个盘口
// Type: straight|color|dozen|column|half|parity
// Pick 含义随 Type 而异：
//   straight: 0..36 号码
//   color:    1=red 2=black
//   dozen:    1..3 （1-12 / 13-24 / 25-36）
//   column:   1..3 （第1/2/3列）
//   half:     1=low(1-18) 2=high(19-36)
//   parity:   1=odd 2=even
type RouletteBet struct {
	Type   string `json:"type"`
	Pick   int    `json:"pick"`
	Amount int64  `json:"amount"`
}

// RouletteSpec 轮盘下注内容
type RouletteSpec struct {
	Bets []RouletteBet `json:"bets"`
}

// Total 总注额
func (s RouletteSpec) Total() int64 {
	var t int64
	for _, b := range s.Bets {
		t += b.Amount
	}
	return t
}

// Validate 校验所有盘口合法且至少一注
func (s RouletteSpec) Validate() error {
	if len(s.Bets) == 0 {
		return ErrEmptyRouletteBet
	}
	for _, b := range s.Bets {
		if b.Amount <= 0 {
			return ErrEmptyRouletteBet
		}
		switch strings.ToLower(b.Type) {
		case "straight":
			if b.Pick < 0 || b.Pick > 36 {
				return fmt.Errorf("%w: straight pick %d", ErrInvalidRouletteBet, b.Pick)
			}
		case "color", "half", "parity":
			if b.Pick != 1 && b.Pick != 2 {
				return fmt.Errorf("%w: %s pick %d", ErrInvalidRouletteBet, b.Type, b.Pick)
			}
		case "dozen", "column":
			if b.Pick < 1 || b.Pick > 3 {
				return fmt.Errorf("%w: %s pick %d", ErrInvalidRouletteBet, b.Type, b.Pick)
			}
		default:
			return fmt.Errorf("%w: unknown type %q", ErrInvalidRouletteBet, b.Type)
		}
	}
	return nil
}

// RouletteOutcome 轮盘开奖结果
type RouletteOutcome struct {
	Pocket int    `json:"pocket"`
	Color  string `json:"color"` // red|black|green
}

// PlayRoulette 开一个号码并结算全部盘口，返回结果与总派彩（分）
func PlayRoulette(r Rand, spec RouletteSpec) (RouletteOutcome, int64) {
	pocket := r.Intn(37)
	out := RouletteOutcome{Pocket: pocket, Color: pocketColor(pocket)}

	var payout int64
	for _, b := range spec.Bets {
		payout += settleRouletteBet(b, pocket)
	}
	return out, payout
}

func pocketColor(pocket int) string {
	if pocket == 0 {
		return "green"
	}
	if rouletteRed[pocket] {
		return "red"
	}
	return "black"
}

// settleRouletteBet 对单个盘口结算；未命中返回 0
func settleRouletteBet(b RouletteBet, pocket int) int64 {
	switch strings.ToLower(b.Type) {
	case "straight":
		if b.Pick == pocket {
			return b.Amount * 36
		}
	case "color":
		if pocket == 0 {
			return 0
		}
		red := rouletteRed[pocket]
		if (b.Pick == 1 && red) || (b.Pick == 2 && !red) {
			return b.Amount * 2
		}
	case "dozen":
		if pocket == 0 {
			return 0
		}
		if (pocket-1)/12+1 == b.Pick {
			return b.Amount * 3
		}
	case "column":
		if pocket == 0 {
			return 0
		}
		if (pocket-1)%3+1 == b.Pick {
			return b.Amount * 3
		}
	case "half":
		if pocket == 0 {
			return 0
		}
		if (b.Pick == 1 && pocket <= 18) || (b.Pick == 2 && pocket >= 19) {
			return b.Amount * 2
		}
	case "parity":
		if pocket == 0 {
			return 0
		}
		if (b.Pick == 1 && pocket%2 == 1) || (b.Pick == 2 && pocket%2 == 0) {
			return b.Amount * 2
		}
	}
	return 0
}
