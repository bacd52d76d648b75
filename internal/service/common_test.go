package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"casino-server/internal/game"
	"casino-server/internal/model"
	"casino-server/internal/round"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStake(t *testing.T) {
	cases := []struct {
		in      string
		min     int64
		max     int64
		want    int64
		wantErr bool
	}{
		{"1", 0, 0, 100, false},
		{"0.01", 0, 0, 1, false},
		{"123.45", 0, 0, 12345, false},
		{" 10 ", 0, 0, 1000, false},
		{"0", 0, 0, 0, true},
		{"-5", 0, 0, 0, true},
		{"abc", 0, 0, 0, true},
		{"0.001", 0, 0, 0, true}, // 超出两位小数
		{"0.5", 100, 0, 0, true}, // 低于下限
		{"1000", 0, 50000, 0, true},
	}
	for _, tc := range cases {
		got, err := parseStake(tc.in, tc.min, tc.max)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidStake, "input %q", tc.in)
		} else {
			require.NoError(t, err, "input %q", tc.in)
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	assert.Equal(t, "1.00", formatMinor(100))
	assert.Equal(t, "0.01", formatMinor(1))
	assert.Equal(t, "123.45", formatMinor(12345))
	assert.Equal(t, "-2.50", formatMinor(-250))
	assert.Equal(t, "0.00", formatMinor(0))
}

func TestGenerateBillNo(t *testing.T) {
	no := generateBillNo(100156)
	assert.True(t, strings.HasPrefix(no, "GM"))
	// GM + 14位日期时间 + 4位用户尾号 + 3位十六进制
	assert.Len(t, no, 2+14+4+3)
	assert.Contains(t, no, "0156")

	// 同一毫秒内也应当几乎不重复
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		seen[generateBillNo(1)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestValidateSpec(t *testing.T) {
	t.Run("dice", func(t *testing.T) {
		total, err := validateSpec(GameDice, json.RawMessage(`{"under7":100,"seven":50}`))
		require.NoError(t, err)
		assert.Equal(t, int64(150), total)
	})
	t.Run("roulette", func(t *testing.T) {
		total, err := validateSpec(GameRoulette, json.RawMessage(`{"bets":[{"type":"straight","pick":17,"amount":100}]}`))
		require.NoError(t, err)
		assert.Equal(t, int64(100), total)
	})
	t.Run("rejects bad payloads", func(t *testing.T) {
		_, err := validateSpec(GameDice, json.RawMessage(`{}`))
		assert.ErrorIs(t, err, game.ErrEmptyDiceBet)
		_, err = validateSpec(GameWheel, json.RawMessage(`not json`))
		assert.Error(t, err)
		_, err = validateSpec("baccarat", json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrUnknownGame)
	})
}

func TestValidateContinuousSpec(t *testing.T) {
	total, err := validateContinuousSpec(round.GameCrash, json.RawMessage(`{"amount":500}`))
	require.NoError(t, err)
	assert.Equal(t, int64(500), total)

	total, err = validateContinuousSpec(round.GameLoto, json.RawMessage(`{"numbers":[1,2,3,4,5],"amount":200}`))
	require.NoError(t, err)
	assert.Equal(t, int64(200), total)

	_, err = validateContinuousSpec(round.GameCrash, json.RawMessage(`{"amount":0}`))
	assert.Error(t, err)
	_, err = validateContinuousSpec(GameDice, json.RawMessage(`{"under7":100}`))
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestCheckBettable(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("crash betting window open", func(t *testing.T) {
		cfg := &model.GameConfig{
			GameID:         round.GameCrash,
			RoundStartTime: start.UnixMilli(),
			OutcomeParams:  `{"crash_point":2.5}`,
		}
		assert.NoError(t, checkBettable(start.Add(5*time.Second), cfg))
		assert.ErrorIs(t, checkBettable(start.Add(15*time.Second), cfg), ErrRoundClosed)
	})

	t.Run("loto open until the hour", func(t *testing.T) {
		cfg := &model.GameConfig{
			GameID:         round.GameLoto,
			RoundStartTime: start.Add(10 * time.Minute).UnixMilli(),
			OutcomeParams:  `{}`,
		}
		assert.NoError(t, checkBettable(start.Add(30*time.Minute), cfg))
		assert.ErrorIs(t, checkBettable(start.Add(61*time.Minute), cfg), ErrRoundClosed)
	})
}
