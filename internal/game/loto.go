package game

import (
	"errors"
	"sort"
)

// 每小时乐透：整点开 5 个 [1,36] 不重复号码
// 玩家选 5 个号码，按命中个数定倍：
//   中2 x2 | 中3 x10 | 中4 x100 | 中5 x5000

const (
	LotoPickCount = 5
	LotoMaxNumber = 36
)

var lotoPayoutTable = map[int]int64{
	2: 2,
	3: 10,
	4: 100,
	5: 5000,
}

var (
	ErrEmptyLotoBet   = errors.New("loto bet has no stake")
	ErrInvalidLotoBet = errors.New("invalid loto numbers")
)

// LotoSpec 乐透下注内容
type LotoSpec struct {
	Numbers []int `json:"numbers"`
	Amount  int64 `json:"amount"`
}

func (s LotoSpec) Total() int64 { return s.Amount }

// Validate 必须恰好 5 个 [1,36] 不重复号码
func (s LotoSpec) Validate() error {
	if s.Amount <= 0 {
		return ErrEmptyLotoBet
	}
	if len(s.Numbers) != LotoPickCount {
		return ErrInvalidLotoBet
	}
	seen := map[int]bool{}
	for _, n := range s.Numbers {
		if n < 1 || n > LotoMaxNumber || seen[n] {
			return ErrInvalidLotoBet
		}
		seen[n] = true
	}
	return nil
}

// DrawLotoNumbers 开 5 个不重复号码，升序返回
func DrawLotoNumbers(r Rand) []int {
	pool := make([]int, LotoMaxNumber)
	for i := range pool {
		pool[i] = i + 1
	}
	drawn := make([]int, 0, LotoPickCount)
	for i := 0; i < LotoPickCount; i++ {
		j := r.Intn(len(pool))
		drawn = append(drawn, pool[j])
		pool[j] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	sort.Ints(drawn)
	return drawn
}

// LotoMatches 命中个数
func LotoMatches(picked, drawn []int) int {
	set := map[int]bool{}
	for _, n := range drawn {
		set[n] = true
	}
	matches := 0
	for _, n := range picked {
		if set[n] {
			matches++
		}
	}
	return matches
}

// LotoPayout 按命中个数结算，不足 2 个不中
func LotoPayout(bet int64, matches int) int64 {
	mult, ok := lotoPayoutTable[matches]
	if !ok {
		return 0
	}
	return bet * mult
}
