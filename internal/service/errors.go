package service

import "errors"

// 业务错误口径，API 层据此映射错误码
var (
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrInvalidStake      = errors.New("invalid stake")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownGame       = errors.New("unknown game")
	ErrPlayerDisabled    = errors.New("player disabled")

	// 连续游戏
	ErrRoundClosed      = errors.New("bet not allowed in current phase")
	ErrDuplicateBet     = errors.New("already bet in this round")
	ErrNoActiveBet      = errors.New("no active bet in this round")
	ErrStaleCashout     = errors.New("cashout after crash point")
	ErrRoundNotFound    = errors.New("round not found")
	ErrGameNotConfigured = errors.New("game not configured")

	// 充提
	ErrWithdrawNotFound = errors.New("withdraw request not found")
)
