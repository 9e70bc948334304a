package payu

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/herdbook/paycore/internal/gateway"
)

// 包级错误定义
var (
	ErrInvalidConfig    = errors.New("payu: merchant key and salt are required")
	ErrMissingParams    = errors.New("payu: missing required callback params")
	ErrInvalidSignature = errors.New("payu: invalid callback signature")
)

const (
	productionURL = "https://secure.payu.in/_payment"
	sandboxURL    = "https://test.payu.in/_payment"
)

// Config PayU 网关配置
type Config struct {
	MerchantKey string
	Salt        string
	Sandbox     bool
}

// ValidateConfig 校验配置完整性
func (c *Config) ValidateConfig() error {
	if c.MerchantKey == "" || c.Salt == "" {
		return ErrInvalidConfig
	}
	return nil
}

// Adapter PayU 支付适配器
type Adapter struct {
	config Config
}

// New 创建 PayU 适配器
func New(config Config) (*Adapter, error) {
	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return &Adapter{config: config}, nil
}

// Name 返回网关标识
func (a *Adapter) Name() string {
	return "payu"
}

// BuildCheckout 构造自提交表单（PayU 托管结账页）
func (a *Adapter) BuildCheckout(_ context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	amount := req.Amount.StringFixed(2)
	fields := map[string]string{
		"key":         a.config.MerchantKey,
		"txnid":       req.OrderID,
		"amount":      amount,
		"productinfo": req.Description,
		"firstname":   req.CustomerName,
		"email":       req.CustomerEmail,
		"surl":        req.ReturnURL,
		"furl":        req.CancelURL,
		"curl":        req.CancelURL,
	}
	fields["hash"] = a.requestHash(req.OrderID, amount, req.Description, req.CustomerName, req.CustomerEmail)

	entryURL := productionURL
	if a.config.Sandbox {
		entryURL = sandboxURL
	}
	return &gateway.CheckoutResult{
		Method: gateway.CheckoutMethodPost,
		URL:    entryURL,
		Fields: fields,
	}, nil
}

// VerifyCallback 校验回执哈希（反向序列）并提取结果
func (a *Adapter) VerifyCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	form := req.Form
	txnid := form.Get("txnid")
	status := form.Get("status")
	amount := form.Get("amount")
	receivedHash := form.Get("hash")
	if txnid == "" || status == "" || receivedHash == "" {
		return nil, ErrMissingParams
	}

	expected := a.responseHash(
		status,
		form.Get("email"),
		form.Get("firstname"),
		form.Get("productinfo"),
		amount,
		txnid,
	)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(receivedHash))) != 1 {
		return nil, ErrInvalidSignature
	}

	result := &gateway.CallbackResult{
		OrderID:       txnid,
		Amount:        amount,
		TransactionID: form.Get("mihpayid"),
		Raw:           gateway.FlattenForm(form),
	}
	switch strings.ToLower(status) {
	case "success":
		result.Status = gateway.CallbackStatusSuccess
	case "pending", "in progress":
		result.Status = gateway.CallbackStatusPending
	default:
		result.Status = gateway.CallbackStatusFailure
	}
	return result, nil
}

// requestHash 请求哈希：key|txnid|amount|productinfo|firstname|email|udf1..udf10|salt
func (a *Adapter) requestHash(txnid, amount, productinfo, firstname, email string) string {
	parts := []string{
		a.config.MerchantKey, txnid, amount, productinfo, firstname, email,
		"", "", "", "", "", "", "", "", "", "",
		a.config.Salt,
	}
	return sha512Hex(strings.Join(parts, "|"))
}

// responseHash 回执哈希：salt|status|udf10..udf1|email|firstname|productinfo|amount|txnid|key
func (a *Adapter) responseHash(status, email, firstname, productinfo, amount, txnid string) string {
	parts := []string{
		a.config.Salt, status,
		"", "", "", "", "", "", "", "", "", "",
		email, firstname, productinfo, amount, txnid,
		a.config.MerchantKey,
	}
	return sha512Hex(strings.Join(parts, "|"))
}

func sha512Hex(raw string) string {
	sum := sha512.Sum512([]byte(raw))
	return hex.EncodeToString(sum[:])
}
