package constant

// player status
const (
	PlayerStatusDisabled = 0 // 状态：禁用（禁止投注与提现）
	PlayerStatusNormal   = 1 // 状态：正常
)
