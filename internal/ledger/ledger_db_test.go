package ledger

import (
	"context"
	"sync"
	"testing"

	"casino-server/internal/model"
	"casino-server/internal/testutil"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPlayer(t *testing.T, db *sqlx.DB, balance int64) *model.Player {
	t.Helper()
	p := &model.Player{
		PlatformID:     1,
		PlatformUserID: "u-" + t.Name(),
		Username:       "tester",
		Balance:        balance,
		Status:         1,
	}
	require.NoError(t, p.Insert(context.Background(), db))
	return p
}

// inTx 在单独事务里执行一次账变，出错回滚
func inTx(t *testing.T, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	t.Helper()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}

func completedSum(t *testing.T, db *sqlx.DB, userID int64) int64 {
	t.Helper()
	var sum int64
	err := db.Get(&sum,
		"SELECT COALESCE(SUM(amount), 0) FROM wallet_ledger WHERE user_id = ? AND status = ?",
		userID, model.LedgerStatusCompleted)
	require.NoError(t, err)
	return sum
}

func currentBalance(t *testing.T, db *sqlx.DB, p *model.Player) int64 {
	t.Helper()
	bal, err := model.GetPlayerBalance(context.Background(), db, p.PlatformID, p.PlatformUserID)
	require.NoError(t, err)
	return bal
}

// 对账不变量：completed 条目的带符号金额之和必须等于当前余额
func TestLedgerBalanceConservation(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	p := seedPlayer(t, td.DB, 0)

	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := Credit(ctx, tx, p.ID, model.LedgerKindDeposit, 10000, "deposit:tx1", Meta{})
		return err
	}))
	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := Debit(ctx, tx, p.ID, model.LedgerKindBet, 2500, "bet:GM1:debit",
			Meta{BillNo: "GM1", GameID: "crash", RoundID: 1})
		return err
	}))
	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := Credit(ctx, tx, p.ID, model.LedgerKindWin, 5000, "settle:crash:1:GM1",
			Meta{BillNo: "GM1", GameID: "crash", RoundID: 1})
		return err
	}))

	bal := currentBalance(t, td.DB, p)
	assert.Equal(t, int64(12500), bal)
	assert.Equal(t, bal, completedSum(t, td.DB, p.ID))

	locked, err := model.GetPlayerByIDForUpdate(ctx, td.DB, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), locked.TotalWagered)
	assert.Equal(t, int64(10000), locked.TotalDeposited)
}

// 同一 reference 并发重放只允许生效一次，余额不能重复变动
func TestLedgerDuplicateReferenceAppliedOnce(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	p := seedPlayer(t, td.DB, 10000)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- inTx(t, td.DB, func(tx *sqlx.Tx) error {
				_, err := Debit(ctx, tx, p.ID, model.LedgerKindBet, 1000, "bet:GM2:debit",
					Meta{BillNo: "GM2", GameID: "crash", RoundID: 3})
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var applied, rejected int
	for err := range results {
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrDuplicateReference):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, workers-1, rejected)

	assert.Equal(t, int64(9000), currentBalance(t, td.DB, p))

	var rows int
	require.NoError(t, td.DB.Get(&rows,
		"SELECT COUNT(1) FROM wallet_ledger WHERE reference = ?", "bet:GM2:debit"))
	assert.Equal(t, 1, rows)
}

func TestLedgerInsufficientFunds(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	p := seedPlayer(t, td.DB, 500)

	err := inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := Debit(ctx, tx, p.ID, model.LedgerKindBet, 600, "bet:GM3:debit", Meta{})
		return err
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, int64(500), currentBalance(t, td.DB, p))
	assert.Zero(t, completedSum(t, td.DB, p.ID))
}

// 提现预扣后驳回：冻结金额原路退回，completed 合计始终等于余额
func TestLedgerPendingWithdrawRefund(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	p := seedPlayer(t, td.DB, 0)
	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := Credit(ctx, tx, p.ID, model.LedgerKindDeposit, 20000, "deposit:seed", Meta{})
		return err
	}))

	const ref = "withdraw:w1"
	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		_, err := DebitPending(ctx, tx, p.ID, model.LedgerKindWithdraw, 3000, ref, Meta{})
		return err
	}))
	assert.Equal(t, int64(17000), currentBalance(t, td.DB, p))

	require.NoError(t, inTx(t, td.DB, func(tx *sqlx.Tx) error {
		entry, err := RejectPending(ctx, tx, ref, false)
		if err != nil {
			return err
		}
		assert.EqualValues(t, model.LedgerStatusFailed, entry.Status)
		return nil
	}))
	assert.Equal(t, int64(20000), currentBalance(t, td.DB, p))
	assert.Equal(t, int64(20000), completedSum(t, td.DB, p.ID))
}
