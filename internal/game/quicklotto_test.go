package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayQuickLotto(t *testing.T) {
	draw := func(d1, d2, d3 int, amount int64) (QuickLottoOutcome, int64) {
		r := &scriptedRand{ints: []int{d1 - 1, d2 - 1, d3 - 1}}
		return PlayQuickLotto(r, QuickLottoSpec{Amount: amount})
	}

	t.Run("triple pays 100x", func(t *testing.T) {
		out, payout := draw(7, 7, 7, 100)
		assert.Equal(t, []int{7, 7, 7}, out.Digits)
		assert.Equal(t, "triple", out.Tier)
		assert.Equal(t, int64(10000), payout)
	})

	t.Run("pair pays 5x", func(t *testing.T) {
		for _, digits := range [][3]int{{4, 4, 9}, {4, 9, 4}, {9, 4, 4}} {
			out, payout := draw(digits[0], digits[1], digits[2], 100)
			assert.Equal(t, "pair", out.Tier)
			assert.Equal(t, int64(500), payout)
		}
	})

	t.Run("no match pays nothing", func(t *testing.T) {
		out, payout := draw(1, 5, 9, 100)
		assert.Equal(t, "none", out.Tier)
		assert.Zero(t, payout)
	})
}

func TestQuickLottoDigitRange(t *testing.T) {
	r := NewRand()
	for i := 0; i < 1000; i++ {
		out, _ := PlayQuickLotto(r, QuickLottoSpec{Amount: 1})
		for _, d := range out.Digits {
			assert.GreaterOrEqual(t, d, 1)
			assert.LessOrEqual(t, d, 9)
		}
	}
}
