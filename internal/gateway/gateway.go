package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// 回调判定结果
const (
	CallbackStatusSuccess = "success"
	CallbackStatusFailure = "failure"
	CallbackStatusPending = "pending"
)

// 结账跳转方式
const (
	CheckoutMethodGet  = "GET"
	CheckoutMethodPost = "POST"
)

// CheckoutRequest 发起结账所需的参数
type CheckoutRequest struct {
	OrderID       string          // 平台订单号（对网关不透明）
	Amount        decimal.Decimal // 折后应付金额
	Currency      string          // 币种
	Description   string          // 商品描述（计划名）
	CustomerName  string          // 付款人姓名
	CustomerEmail string          // 付款人邮箱
	NotifyURL     string          // 服务端回调地址
	ReturnURL     string          // 支付完成跳转地址
	CancelURL     string          // 取消支付跳转地址
}

// CheckoutResult 结账入口：要么跳转 URL，要么带签名字段的表单提交
type CheckoutResult struct {
	Method string            // GET 直接跳转 / POST 自提交表单
	URL    string            // 网关入口地址
	Fields map[string]string // POST 表单字段（含签名）
}

// CallbackRequest 网关回调的原始载荷
//
// Body 保留原始字节，供按接收顺序签名（payfast）和整体 HMAC（paystack）使用；
// Form 是解析后的键值对，供取字段用。
type CallbackRequest struct {
	Form   url.Values
	Body   []byte
	Header http.Header
}

// CallbackResult 验签通过后从回调中提取的规范化结果
type CallbackResult struct {
	OrderID       string            // 平台订单号
	Status        string            // success / failure / pending
	Amount        string            // 网关回传的金额（十进制字符串）
	Currency      string            // 网关回传的币种（可能为空）
	TransactionID string            // 网关侧流水号
	Raw           map[string]string // 原始字段（审计留存）
}

// Adapter 支付网关适配器统一接口
type Adapter interface {
	// Name 返回网关标识
	Name() string
	// BuildCheckout 构造托管结账入口
	BuildCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
	// VerifyCallback 验证回调真实性并提取规范化结果；
	// 验签失败必须返回错误且不得返回部分结果。
	VerifyCallback(req *CallbackRequest) (*CallbackResult, error)
}

// FlattenForm 将表单压平成单值映射（审计留存用）
func FlattenForm(form url.Values) map[string]string {
	raw := make(map[string]string, len(form))
	for k, v := range form {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	return raw
}
