package constants

// 支付意向状态常量
const (
	IntentStatusPending   = "pending"
	IntentStatusCompleted = "completed"
	IntentStatusFailed    = "failed"
)

// 支付网关常量
const (
	GatewayPayU     = "payu"
	GatewayPayfast  = "payfast"
	GatewayPaystack = "paystack"
)

// 支付记录状态常量
const (
	PaymentStatusSuccess = "success"
)

// 优惠券类型常量
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
	CouponTypeFreeTrial  = "free_trial"
)

// 优惠券适用范围常量
const (
	CouponTargetAll = "all"
)

// 订阅状态常量
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusTrial     = "trial"
	SubscriptionStatusCancelled = "cancelled"
)

// 订阅周期常量
const (
	SubscriptionRenewDays = 30
)

// 回调跳转结果常量
const (
	RedirectResultSuccess = "success"
	RedirectResultFailed  = "failed"
)

// 队列常量
const (
	QueueDefault = "default"

	TaskPaymentReceiptEmail   = "payment:receipt_email"
	TaskSubscriptionActivated = "subscription:activated"
)

// 订单号前缀
const (
	OrderIDPrefix = "HB"
)
