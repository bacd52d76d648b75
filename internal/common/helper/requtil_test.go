package helper

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMoneyFormat(t *testing.T) {
	for _, s := range []string{"0", "1", "10.5", "10.50", " 99.99 ", "1234567"} {
		assert.True(t, IsMoneyFormat(s), s)
	}
	for _, s := range []string{"", "-1", "01", "1.", "1.234", "1,00", "abc", "0x10"} {
		assert.False(t, IsMoneyFormat(s), s)
	}
}

func TestIsJSONContentType(t *testing.T) {
	assert.True(t, IsJSONContentType("application/json"))
	assert.True(t, IsJSONContentType("application/json; charset=utf-8"))
	assert.True(t, IsJSONContentType(" Application/JSON "))
	assert.False(t, IsJSONContentType("application/x-www-form-urlencoded"))
	assert.False(t, IsJSONContentType(""))
}

func TestParsePlayFromJSON(t *testing.T) {
	out, ok, msg := ParsePlayFromJSON(strings.NewReader(
		`{"game_id":"dice","bet_spec":{"prediction":3,"stake":"2.00"},"idempotency_key":"k-1"}`))
	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, "dice", out.GameId)
	assert.Equal(t, "k-1", out.IdempotencyKey)
	assert.True(t, json.Valid(out.BetSpec))

	_, ok, msg = ParsePlayFromJSON(strings.NewReader(`{broken`))
	assert.False(t, ok)
	assert.Equal(t, "invalid json body", msg)
}

func TestValidatePlay(t *testing.T) {
	good := PlayParsed{GameId: "roulette", BetSpec: json.RawMessage(`{"bet_type":"red","stake":"1.00"}`), IdempotencyKey: "abc"}
	ok, msg := ValidatePlay(&good)
	assert.True(t, ok, msg)

	missing := PlayParsed{GameId: "roulette"}
	ok, _ = ValidatePlay(&missing)
	assert.False(t, ok)

	longKey := good
	longKey.IdempotencyKey = strings.Repeat("x", 65)
	ok, _ = ValidatePlay(&longKey)
	assert.False(t, ok)

	badSpec := good
	badSpec.BetSpec = json.RawMessage(`{oops`)
	ok, _ = ValidatePlay(&badSpec)
	assert.False(t, ok)
}

func TestValidateDeposit(t *testing.T) {
	ok, msg := ValidateDeposit(&DepositParsed{Amount: "100.00", ExternalRef: "ch-001"})
	assert.True(t, ok, msg)

	ok, _ = ValidateDeposit(&DepositParsed{Amount: "100.00"})
	assert.False(t, ok)

	ok, _ = ValidateDeposit(&DepositParsed{Amount: "1.234", ExternalRef: "ch-001"})
	assert.False(t, ok)
}

func TestValidateWithdraw(t *testing.T) {
	ok, msg := ValidateWithdraw(&WithdrawParsed{Amount: "50", RequestId: "wd-7"})
	assert.True(t, ok, msg)

	ok, _ = ValidateWithdraw(&WithdrawParsed{RequestId: "wd-7"})
	assert.False(t, ok)

	ok, _ = ValidateWithdraw(&WithdrawParsed{Amount: "50", RequestId: strings.Repeat("r", 65)})
	assert.False(t, ok)
}
