package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayRoulette(t *testing.T) {
	spin := func(pocket int, bets ...RouletteBet) (RouletteOutcome, int64) {
		r := &scriptedRand{ints: []int{pocket}}
		return PlayRoulette(r, RouletteSpec{Bets: bets})
	}

	t.Run("straight hit pays 36x", func(t *testing.T) {
		out, payout := spin(17, RouletteBet{Type: "straight", Pick: 17, Amount: 100})
		assert.Equal(t, 17, out.Pocket)
		assert.Equal(t, "black", out.Color)
		assert.Equal(t, int64(3600), payout)
	})

	t.Run("color bets", func(t *testing.T) {
		// 32 is red
		_, payout := spin(32, RouletteBet{Type: "color", Pick: 1, Amount: 100})
		assert.Equal(t, int64(200), payout)

		_, payout = spin(32, RouletteBet{Type: "color", Pick: 2, Amount: 100})
		assert.Zero(t, payout)
	})

	t.Run("dozen and column", func(t *testing.T) {
		// 14 sits in the second dozen, second column
		_, payout := spin(14, RouletteBet{Type: "dozen", Pick: 2, Amount: 100})
		assert.Equal(t, int64(300), payout)

		_, payout = spin(14, RouletteBet{Type: "column", Pick: 2, Amount: 100})
		assert.Equal(t, int64(300), payout)

		_, payout = spin(14, RouletteBet{Type: "column", Pick: 1, Amount: 100})
		assert.Zero(t, payout)
	})

	t.Run("half and parity", func(t *testing.T) {
		_, payout := spin(19, RouletteBet{Type: "half", Pick: 2, Amount: 100})
		assert.Equal(t, int64(200), payout)

		_, payout = spin(19, RouletteBet{Type: "parity", Pick: 1, Amount: 100})
		assert.Equal(t, int64(200), payout)
	})

	t.Run("zero beats every outside bet", func(t *testing.T) {
		out, payout := spin(0,
			RouletteBet{Type: "color", Pick: 1, Amount: 100},
			RouletteBet{Type: "dozen", Pick: 1, Amount: 100},
			RouletteBet{Type: "column", Pick: 1, Amount: 100},
			RouletteBet{Type: "half", Pick: 1, Amount: 100},
			RouletteBet{Type: "parity", Pick: 2, Amount: 100},
		)
		assert.Equal(t, "green", out.Color)
		assert.Zero(t, payout)
	})

	t.Run("straight zero still pays", func(t *testing.T) {
		_, payout := spin(0, RouletteBet{Type: "straight", Pick: 0, Amount: 100})
		assert.Equal(t, int64(3600), payout)
	})

	t.Run("multiple bets sum", func(t *testing.T) {
		// 32: red, third dozen, even
		_, payout := spin(32,
			RouletteBet{Type: "straight", Pick: 32, Amount: 10},
			RouletteBet{Type: "color", Pick: 1, Amount: 100},
			RouletteBet{Type: "dozen", Pick: 3, Amount: 100},
			RouletteBet{Type: "parity", Pick: 1, Amount: 100},
		)
		assert.Equal(t, int64(10*36+200+300), payout)
	})
}

func TestRouletteSpecValidate(t *testing.T) {
	require.NoError(t, RouletteSpec{Bets: []RouletteBet{{Type: "straight", Pick: 0, Amount: 1}}}.Validate())

	assert.ErrorIs(t, RouletteSpec{}.Validate(), ErrEmptyRouletteBet)
	assert.ErrorIs(t, RouletteSpec{Bets: []RouletteBet{{Type: "straight", Pick: 37, Amount: 1}}}.Validate(), ErrInvalidRouletteBet)
	assert.ErrorIs(t, RouletteSpec{Bets: []RouletteBet{{Type: "dozen", Pick: 4, Amount: 1}}}.Validate(), ErrInvalidRouletteBet)
	assert.ErrorIs(t, RouletteSpec{Bets: []RouletteBet{{Type: "split", Pick: 1, Amount: 1}}}.Validate(), ErrInvalidRouletteBet)
	assert.ErrorIs(t, RouletteSpec{Bets: []RouletteBet{{Type: "color", Pick: 1, Amount: 0}}}.Validate(), ErrEmptyRouletteBet)
}
