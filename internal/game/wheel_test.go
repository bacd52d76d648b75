package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayWheel(t *testing.T) {
	spin := func(roll int, amount int64) (WheelOutcome, int64) {
		r := &scriptedRand{ints: []int{roll}}
		return PlayWheel(r, WheelSpec{Amount: amount})
	}

	cases := []struct {
		name    string
		roll    int
		amount  int64
		segment string
		payout  int64
	}{
		{"lose band start", 0, 100, "0x", 0},
		{"lose band end", 2999, 100, "0x", 0},
		{"1.5x band start", 3000, 100, "1.5x", 150},
		{"1.5x band end", 6999, 100, "1.5x", 150},
		{"3x band", 7000, 100, "3x", 300},
		{"10x band", 9000, 100, "10x", 1000},
		{"50x band start", 9900, 100, "50x", 5000},
		{"50x band end", 9999, 100, "50x", 5000},
		{"1.5x floors to whole minor units", 4000, 101, "1.5x", 151},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, payout := spin(tc.roll, tc.amount)
			assert.Equal(t, tc.segment, out.Segment)
			assert.Equal(t, tc.payout, payout)
		})
	}
}

func TestWheelWeightsSumToWhole(t *testing.T) {
	total := 0
	for _, s := range wheelSegments {
		total += s.Weight
	}
	assert.Equal(t, 10000, total)
}

func TestWheelSpecValidate(t *testing.T) {
	assert.NoError(t, WheelSpec{Amount: 1}.Validate())
	assert.ErrorIs(t, WheelSpec{}.Validate(), ErrEmptyWheelBet)
}
