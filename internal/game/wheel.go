package game

import "errors"

// 幸运转盘：整注押一次，按固定权重抽一个倍数段
//   0x: 30% | 1.5x: 40% | 3x: 20% | 10x: 9% | 50x: 1%
// 1.5x 段派彩向下取整到分

var ErrEmptyWheelBet = errors.New("wheel bet has no stake")

type wheelSegment struct {
	Label  string
	Weight int // 万分比权重之和为 10000
	Num    int64
	Den    int64
}

var wheelSegments = []wheelSegment{
	{Label: "0x", Weight: 3000, Num: 0, Den: 1},
	{Label: "1.5x", Weight: 4000, Num: 3, Den: 2},
	{Label: "3x", Weight: 2000, Num: 3, Den: 1},
	{Label: "10x", Weight: 900, Num: 10, Den: 1},
	{Label: "50x", Weight: 100, Num: 50, Den: 1},
}

// WheelSpec 转盘下注内容
type WheelSpec struct {
	Amount int64 `json:"amount"`
}

func (s WheelSpec) Total() int64 { return s.Amount }

func (s WheelSpec) Validate() error {
	if s.Amount <= 0 {
		return ErrEmptyWheelBet
	}
	return nil
}

// WheelOutcome 转盘结果
type WheelOutcome struct {
	Segment string `json:"segment"`
}

// PlayWheel 按权重抽段并结算
func PlayWheel(r Rand, spec WheelSpec) (WheelOutcome, int64) {
	roll := r.Intn(10000)
	seg := wheelSegments[len(wheelSegments)-1]
	for _, s := range wheelSegments {
		if roll < s.Weight {
			seg = s
			break
		}
		roll -= s.Weight
	}
	payout := spec.Amount * seg.Num / seg.Den
	return WheelOutcome{Segment: seg.Label}, payout
}
