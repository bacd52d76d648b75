package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayDice(t *testing.T) {
	t.Run("under7 wins double", func(t *testing.T) {
		// faces 3 and 2, total 5
		r := &scriptedRand{ints: []int{2, 1}}
		out, payout := PlayDice(r, DiceSpec{Under7: 100})

		assert.Equal(t, 3, out.Die1)
		assert.Equal(t, 2, out.Die2)
		assert.Equal(t, 5, out.Total)
		assert.Equal(t, int64(200), payout)
	})

	t.Run("seven pays six times", func(t *testing.T) {
		// faces 4 and 3
		r := &scriptedRand{ints: []int{3, 2}}
		out, payout := PlayDice(r, DiceSpec{Seven: 50})

		assert.Equal(t, 7, out.Total)
		assert.Equal(t, int64(300), payout)
	})

	t.Run("over7 wins double", func(t *testing.T) {
		// faces 6 and 5
		r := &scriptedRand{ints: []int{5, 4}}
		_, payout := PlayDice(r, DiceSpec{Over7: 100})
		assert.Equal(t, int64(200), payout)
	})

	t.Run("sub bets settle independently", func(t *testing.T) {
		// total 5: only the under7 leg hits, seven and over7 lose
		r := &scriptedRand{ints: []int{2, 1}}
		_, payout := PlayDice(r, DiceSpec{Under7: 100, Seven: 100, Over7: 100})
		assert.Equal(t, int64(200), payout)
	})

	t.Run("miss pays nothing", func(t *testing.T) {
		// total 12 against an under7 bet
		r := &scriptedRand{ints: []int{5, 5}}
		_, payout := PlayDice(r, DiceSpec{Under7: 100})
		assert.Zero(t, payout)
	})
}

func TestDiceSpecValidate(t *testing.T) {
	require.NoError(t, DiceSpec{Under7: 100}.Validate())
	assert.ErrorIs(t, DiceSpec{}.Validate(), ErrEmptyDiceBet)
	assert.ErrorIs(t, DiceSpec{Under7: -1, Seven: 100}.Validate(), ErrEmptyDiceBet)
}
