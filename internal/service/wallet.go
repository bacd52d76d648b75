package service

import (
	"context"
	"database/sql"
	"encoding/json"

	infmysql "casino-server/internal/infra/mysql"
	"casino-server/internal/model"
)

// 钱包查询：余额、账变流水、注单历史

// BalanceOutput 余额快照
type BalanceOutput struct {
	Balance        string `json:"balance"` // 元
	TotalDeposited string `json:"total_deposited"`
	TotalWagered   string `json:"total_wagered"`
}

// LedgerEntryOutput 单条账变
type LedgerEntryOutput struct {
	Kind      string `json:"kind"`
	Amount    string `json:"amount"` // 元，带符号
	After     string `json:"after"`
	Status    int8   `json:"status"`
	Reference string `json:"reference"`
	GameID    string `json:"game_id,omitempty"`
	RoundID   int64  `json:"round_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// OrderOutput 单条注单
type OrderOutput struct {
	BillNo    string          `json:"bill_no"`
	GameID    string          `json:"game_id"`
	RoundID   int64           `json:"round_id,omitempty"`
	BetAmount string          `json:"bet_amount"`
	Payout    string          `json:"payout"`
	Status    int8            `json:"status"`
	Outcome   json.RawMessage `json:"outcome,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

type WalletService interface {
	GetBalance(ctx context.Context, platformID int8, platformUserID string) (*BalanceOutput, error)
	ListLedger(ctx context.Context, platformID int8, platformUserID string, limit int) ([]LedgerEntryOutput, error)
	ListOrders(ctx context.Context, platformID int8, platformUserID, gameID string, limit int) ([]OrderOutput, error)
}

type walletService struct{}

func NewWalletService() WalletService { return &walletService{} }

func (s *walletService) GetBalance(ctx context.Context, platformID int8, platformUserID string) (*BalanceOutput, error) {
	p, err := model.GetPlayerByPlatformUser(ctx, infmysql.SQLX(), platformID, platformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			// 未注册视为零余额，下注/充值时自动建号
			return &BalanceOutput{Balance: "0", TotalDeposited: "0", TotalWagered: "0"}, nil
		}
		return nil, err
	}
	return &BalanceOutput{
		Balance:        formatMinor(p.Balance),
		TotalDeposited: formatMinor(p.TotalDeposited),
		TotalWagered:   formatMinor(p.TotalWagered),
	}, nil
}

func (s *walletService) ListLedger(ctx context.Context, platformID int8, platformUserID string, limit int) ([]LedgerEntryOutput, error) {
	p, err := model.GetPlayerByPlatformUser(ctx, infmysql.SQLX(), platformID, platformUserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return []LedgerEntryOutput{}, nil
		}
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := model.ListLedgerByUser(ctx, infmysql.SQLX(), p.ID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerEntryOutput, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, LedgerEntryOutput{
			Kind:      e.KindStr,
			Amount:    formatMinor(e.Amount),
			After:     formatMinor(e.AfterAmount),
			Status:    e.Status,
			Reference: e.Reference,
			GameID:    e.GameID,
			RoundID:   e.RoundID,
			CreatedAt: e.CreatedAt,
		})
	}
	return out, nil
}

func (s *walletService) ListOrders(ctx context.Context, platformID int8, platformUserID, gameID string, limit int) ([]OrderOutput, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	orders, err := model.ListUserOrders(ctx, infmysql.SQLX(), platformID, platformUserID, gameID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]OrderOutput, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		var outcome json.RawMessage
		if o.OutcomeData != "" {
			outcome = json.RawMessage(o.OutcomeData)
		}
		out = append(out, OrderOutput{
			BillNo:    o.BillNo,
			GameID:    o.GameID,
			RoundID:   o.RoundID,
			BetAmount: formatMinor(o.BetAmount),
			Payout:    formatMinor(o.PayoutAmount),
			Status:    o.BillStatus,
			Outcome:   outcome,
			CreatedAt: o.CreatedAt,
		})
	}
	return out, nil
}
