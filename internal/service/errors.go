package service

import "errors"

// 业务错误定义
//
// 校验类错误直接面向调用方展示；回调侧错误只记日志，
// 对外统一为通用失败跳转，避免泄露验签细节。
var (
	// 结账校验
	ErrInvalidPlan          = errors.New("unknown subscription plan")
	ErrInvalidGateway       = errors.New("unknown payment gateway")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured")

	// 优惠券校验（按固定优先级短路）
	ErrCouponInvalid      = errors.New("invalid code")
	ErrCouponExpired      = errors.New("expired")
	ErrCouponPlanMismatch = errors.New("not valid for this plan")
	ErrCouponBelowMin     = errors.New("below minimum purchase")
	ErrCouponMaxUses      = errors.New("maximum uses reached")
	ErrCouponAlreadyUsed  = errors.New("already used")

	// 回调对账
	ErrOrderNotFound    = errors.New("order not found")
	ErrCallbackRejected = errors.New("callback verification failed")
	ErrCallbackNotPaid  = errors.New("callback reported non-success status")
	ErrAmountMismatch   = errors.New("callback amount does not match intent")
	ErrIntentNotPending = errors.New("payment intent is not pending")

	// 订阅
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// 管理端
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrCouponRuleInvalid  = errors.New("coupon definition is invalid")
)
