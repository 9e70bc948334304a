package payfast

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/herdbook/paycore/internal/gateway"
)

// 包级错误定义
var (
	ErrInvalidConfig    = errors.New("payfast: merchant id and key are required")
	ErrMissingParams    = errors.New("payfast: missing required callback params")
	ErrInvalidSignature = errors.New("payfast: invalid callback signature")
	ErrMalformedBody    = errors.New("payfast: malformed callback body")
)

const (
	productionURL = "https://www.payfast.co.za/eng/process"
	sandboxURL    = "https://sandbox.payfast.co.za/eng/process"
)

// Config PayFast 网关配置
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
}

// ValidateConfig 校验配置完整性
func (c *Config) ValidateConfig() error {
	if c.MerchantID == "" || c.MerchantKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// Adapter PayFast 支付适配器
type Adapter struct {
	config Config
}

// New 创建 PayFast 适配器
func New(config Config) (*Adapter, error) {
	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return &Adapter{config: config}, nil
}

// Name 返回网关标识
func (a *Adapter) Name() string {
	return "payfast"
}

// field 有序键值对；PayFast 签名依赖字段顺序，不能经 map 中转
type field struct {
	key   string
	value string
}

// BuildCheckout 构造自提交表单（PayFast 托管结账页）
func (a *Adapter) BuildCheckout(_ context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	// 签名按字段出现顺序计算，这里的顺序即提交顺序
	ordered := []field{
		{"merchant_id", a.config.MerchantID},
		{"merchant_key", a.config.MerchantKey},
		{"return_url", req.ReturnURL},
		{"cancel_url", req.CancelURL},
		{"notify_url", req.NotifyURL},
		{"name_first", req.CustomerName},
		{"email_address", req.CustomerEmail},
		{"m_payment_id", req.OrderID},
		{"amount", req.Amount.StringFixed(2)},
		{"item_name", req.Description},
	}
	signature := a.sign(ordered)

	fields := make(map[string]string, len(ordered)+1)
	for _, f := range ordered {
		if f.value != "" {
			fields[f.key] = f.value
		}
	}
	fields["signature"] = signature

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

// VerifyCallback 校验 ITN 签名并提取结果
//
// 签名覆盖按接收顺序排列的全部字段，因此从原始报文体解析，
// 不依赖 url.Values 的无序映射。
func (a *Adapter) VerifyCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	ordered, receivedSignature, err := parseOrderedBody(req.Body)
	if err != nil {
		return nil, err
	}
	if receivedSignature == "" {
		return nil, ErrMissingParams
	}

	expected := a.sign(ordered)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(receivedSignature))) != 1 {
		return nil, ErrInvalidSignature
	}

	form := req.Form
	orderID := form.Get("m_payment_id")
	paymentStatus := form.Get("payment_status")
	if orderID == "" || paymentStatus == "" {
		return nil, ErrMissingParams
	}

	result := &gateway.CallbackResult{
		OrderID:       orderID,
		Amount:        form.Get("amount_gross"),
		TransactionID: form.Get("pf_payment_id"),
		Raw:           gateway.FlattenForm(form),
	}
	switch strings.ToUpper(paymentStatus) {
	case "COMPLETE":
		result.Status = gateway.CallbackStatusSuccess
	case "PENDING":
		result.Status = gateway.CallbackStatusPending
	default:
		result.Status = gateway.CallbackStatusFailure
	}
	return result, nil
}

// sign 计算签名：按序拼接 key=urlencode(value)，空值跳过，再附加 passphrase
func (a *Adapter) sign(ordered []field) string {
	var b strings.Builder
	for _, f := range ordered {
		if f.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(encodeValue(f.value))
	}
	if a.config.Passphrase != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString("passphrase=")
		b.WriteString(encodeValue(a.config.Passphrase))
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// parseOrderedBody 按接收顺序解析报文体，剥离 signature 字段
func parseOrderedBody(body []byte) ([]field, string, error) {
	if len(body) == 0 {
		return nil, "", ErrMalformedBody
	}
	var ordered []field
	var signature string
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		key, rawValue, _ := strings.Cut(pair, "=")
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, "", ErrMalformedBody
		}
		if key == "signature" {
			signature = value
			continue
		}
		ordered = append(ordered, field{key: key, value: value})
	}
	return ordered, signature, nil
}

// encodeValue PayFast 要求大写百分号编码、空格编码为 +
func encodeValue(value string) string {
	encoded := url.QueryEscape(value)
	var b strings.Builder
	b.Grow(len(encoded))
	for i := 0; i < len(encoded); i++ {
		if encoded[i] == '%' && i+2 < len(encoded) {
			b.WriteByte('%')
			b.WriteByte(upperHex(encoded[i+1]))
			b.WriteByte(upperHex(encoded[i+2]))
			i += 2
			continue
		}
		b.WriteByte(encoded[i])
	}
	return b.String()
}

func upperHex(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 'A'
	}
	return c
}
