package api

import (
	"errors"
	"strings"

	helper "casino-server/internal/common/helper"
	"casino-server/internal/common/response"
	"casino-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// 充提接口（由可信的平台侧回调触发，签名校验在平台认证中间件完成）：
//   POST /api/payment/deposit           充值完成事件
//   POST /api/payment/withdraw          提现申请（冻结扣减）
//   POST /api/payment/withdraw/confirm  打款成功确认
//   POST /api/payment/withdraw/reject   打款失败/超时退回

var (
	newDepositService  = service.NewDepositService
	newWithdrawService = service.NewWithdrawService
)

type PaymentController struct{ beego.Controller }

// Deposit 充值完成事件（幂等，按 external_ref）
func (c *PaymentController) Deposit() {
	traceID := helper.GetTraceID(c.Ctx)

	dp, ok, msg := helper.ParseAndValidateDeposit(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	platformID, platformUserID, platformUserName := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := newDepositService().ApplyExternalCredit(c.Ctx.Request.Context(), service.DepositInput{
		PlatformID:       platformID,
		PlatformUserID:   platformUserID,
		PlatformUserName: platformUserName,
		Amount:           dp.Amount,
		ExternalRef:      dp.ExternalRef,
		TraceID:          traceID,
	})
	if err != nil {
		writePlayError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// Withdraw 提现申请
func (c *PaymentController) Withdraw() {
	traceID := helper.GetTraceID(c.Ctx)

	wp, ok, msg := helper.ParseAndValidateWithdraw(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}
	platformID, platformUserID, _ := platformIdentity(c.Ctx)
	if platformUserID == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	out, err := newWithdrawService().RequestWithdraw(c.Ctx.Request.Context(), service.WithdrawInput{
		PlatformID:     platformID,
		PlatformUserID: platformUserID,
		Amount:         wp.Amount,
		RequestID:      wp.RequestId,
		TraceID:        traceID,
	})
	if err != nil {
		writePlayError(&c.Controller, err, traceID)
		return
	}
	response.Success(&c.Controller, out, traceID)
}

// WithdrawConfirm 打款成功确认
func (c *PaymentController) WithdrawConfirm() {
	c.finishWithdraw(false, false)
}

// WithdrawReject 打款失败退回；expired=1 表示超时过期
func (c *PaymentController) WithdrawReject() {
	expired := strings.TrimSpace(c.Ctx.Input.Query("expired")) == "1"
	c.finishWithdraw(true, expired)
}

func (c *PaymentController) finishWithdraw(reject, expired bool) {
	traceID := helper.GetTraceID(c.Ctx)
	requestID := strings.TrimSpace(c.Ctx.Input.Query("request_id"))
	if requestID == "" {
		response.BadRequest(&c.Controller, "request_id required", traceID)
		return
	}

	var err error
	if reject {
		err = newWithdrawService().RejectWithdraw(c.Ctx.Request.Context(), requestID, traceID, expired)
	} else {
		err = newWithdrawService().ConfirmWithdraw(c.Ctx.Request.Context(), requestID, traceID)
	}
	if err != nil {
		if errors.Is(err, service.ErrWithdrawNotFound) {
			response.NotFound(&c.Controller, "withdraw request not found", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]any{"request_id": requestID}, traceID)
}
