package ledger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNewReference(t *testing.T) {
	assert.Equal(t, "bet:GM123:debit", NewReference("bet", "GM123", "debit"))
	assert.Equal(t, "deposit:tx9", NewReference("deposit", "tx9"))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, isDuplicateKeyError(nil))
	assert.False(t, isDuplicateKeyError(errors.New("connection refused")))

	assert.True(t, isDuplicateKeyError(errors.New("Error 1062: Duplicate entry 'bet:1' for key 'uk_reference'")))
	assert.True(t, isDuplicateKeyError(errors.New("Duplicate entry '5' for key 'PRIMARY'")))
	assert.True(t, isDuplicateKeyError(errors.Wrap(errors.New("Error 1062: Duplicate entry"), "insert ledger entry")))
}
