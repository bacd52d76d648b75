package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawLotoNumbers(t *testing.T) {
	r := NewRand()
	for i := 0; i < 1000; i++ {
		drawn := DrawLotoNumbers(r)
		require.Len(t, drawn, LotoPickCount)

		seen := map[int]bool{}
		for j, n := range drawn {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, LotoMaxNumber)
			assert.False(t, seen[n], "duplicate number %d", n)
			seen[n] = true
			if j > 0 {
				assert.Greater(t, n, drawn[j-1], "numbers must be sorted")
			}
		}
	}
}

func TestLotoMatches(t *testing.T) {
	drawn := []int{3, 7, 12, 25, 36}

	assert.Equal(t, 5, LotoMatches([]int{3, 7, 12, 25, 36}, drawn))
	assert.Equal(t, 3, LotoMatches([]int{3, 7, 12, 1, 2}, drawn))
	assert.Equal(t, 0, LotoMatches([]int{1, 2, 4, 5, 6}, drawn))
}

func TestLotoPayout(t *testing.T) {
	assert.Zero(t, LotoPayout(100, 0))
	assert.Zero(t, LotoPayout(100, 1))
	assert.Equal(t, int64(200), LotoPayout(100, 2))
	assert.Equal(t, int64(1000), LotoPayout(100, 3))
	assert.Equal(t, int64(10000), LotoPayout(100, 4))
	assert.Equal(t, int64(500000), LotoPayout(100, 5))
}

func TestLotoSpecValidate(t *testing.T) {
	require.NoError(t, LotoSpec{Numbers: []int{1, 2, 3, 4, 36}, Amount: 100}.Validate())

	assert.ErrorIs(t, LotoSpec{Numbers: []int{1, 2, 3, 4, 5}}.Validate(), ErrEmptyLotoBet)
	assert.ErrorIs(t, LotoSpec{Numbers: []int{1, 2, 3, 4}, Amount: 100}.Validate(), ErrInvalidLotoBet)
	assert.ErrorIs(t, LotoSpec{Numbers: []int{1, 2, 3, 4, 37}, Amount: 100}.Validate(), ErrInvalidLotoBet)
	assert.ErrorIs(t, LotoSpec{Numbers: []int{1, 1, 3, 4, 5}, Amount: 100}.Validate(), ErrInvalidLotoBet)
}
