package game

import "errors"

// 快彩：开 3 个 1..9 的数字
//   三同号 x100 | 恰好一对 x5 | 其余不中

const (
	QuickLottoTripleMultiplier = 100
	QuickLottoPairMultiplier   = 5
)

var ErrEmptyQuickLottoBet = errors.New("quick lotto bet has no stake")

// QuickLottoSpec 快彩下注内容
type QuickLottoSpec struct {
	Amount int64 `json:"amount"`
}

func (s QuickLottoSpec) Total() int64 { return s.Amount }

func (s QuickLottoSpec) Validate() error {
	if s.Amount <= 0 {
		return ErrEmptyQuickLottoBet
	}
	return nil
}

// QuickLottoOutcome 快彩开奖结果
type QuickLottoOutcome struct {
	Digits []int  `json:"digits"`
	Tier   string `json:"tier"` // triple|pair|none
}

// PlayQuickLotto 开 3 个数字并结算
func PlayQuickLotto(r Rand, spec QuickLottoSpec) (QuickLottoOutcome, int64) {
	d := []int{r.Intn(9) + 1, r.Intn(9) + 1, r.Intn(9) + 1}

	tier := "none"
	var payout int64
	switch {
	case d[0] == d[1] && d[1] == d[2]:
		tier = "triple"
		payout = spec.Amount * QuickLottoTripleMultiplier
	case d[0] == d[1] || d[1] == d[2] || d[0] == d[2]:
		tier = "pair"
		payout = spec.Amount * QuickLottoPairMultiplier
	}
	return QuickLottoOutcome{Digits: d, Tier: tier}, payout
}
