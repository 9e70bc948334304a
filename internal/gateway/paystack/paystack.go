package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/herdbook/paycore/internal/gateway"
)

// 包级错误定义
var (
	ErrInvalidConfig    = errors.New("paystack: secret key is required")
	ErrMissingParams    = errors.New("paystack: missing required callback params")
	ErrInvalidSignature = errors.New("paystack: invalid webhook signature")
	ErrMalformedBody    = errors.New("paystack: malformed webhook body")
)

const (
	defaultBaseURL  = "https://api.paystack.co"
	signatureHeader = "x-paystack-signature"
)

// Config Paystack 网关配置
type Config struct {
	SecretKey string
	BaseURL   string // 留空使用官方地址；测试时可指向本地
}

// ValidateConfig 校验配置完整性
func (c *Config) ValidateConfig() error {
	if c.SecretKey == "" {
		return ErrInvalidConfig
	}
	return nil
}

// Adapter Paystack 支付适配器
type Adapter struct {
	config Config
	client *http.Client
}

// New 创建 Paystack 适配器
func New(config Config) (*Adapter, error) {
	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Name 返回网关标识
func (a *Adapter) Name() string {
	return "paystack"
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // 最小货币单位
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// BuildCheckout 调用 transaction/initialize 换取托管支付页地址
func (a *Adapter) BuildCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	payload := initializeRequest{
		Email:       req.CustomerEmail,
		Amount:      req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency:    req.Currency,
		Reference:   req.OrderID,
		CallbackURL: req.ReturnURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.config.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paystack: initialize request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack: initialize returned status %d", resp.StatusCode)
	}

	var parsed initializeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("paystack: decode initialize response: %w", err)
	}
	if !parsed.Status || parsed.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack: initialize rejected: %s", parsed.Message)
	}

	return &gateway.CheckoutResult{
		Method: gateway.CheckoutMethodGet,
		URL:    parsed.Data.AuthorizationURL,
	}, nil
}

type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"` // 最小货币单位
		Currency  string `json:"currency"`
		ID        int64  `json:"id"`
	} `json:"data"`
}

// VerifyCallback 校验 webhook HMAC 并提取结果
//
// HMAC-SHA512 覆盖整个原始报文体，任何一字节改动都会使签名失效。
func (a *Adapter) VerifyCallback(req *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	receivedSignature := req.Header.Get(signatureHeader)
	if receivedSignature == "" {
		return nil, ErrMissingParams
	}

	mac := hmac.New(sha512.New, []byte(a.config.SecretKey))
	mac.Write(req.Body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedSignature))) {
		return nil, ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(req.Body, &event); err != nil {
		return nil, ErrMalformedBody
	}
	if event.Data.Reference == "" {
		return nil, ErrMissingParams
	}

	amount := decimal.NewFromInt(event.Data.Amount).Div(decimal.NewFromInt(100))
	result := &gateway.CallbackResult{
		OrderID:       event.Data.Reference,
		Amount:        amount.StringFixed(2),
		Currency:      event.Data.Currency,
		TransactionID: fmt.Sprintf("%d", event.Data.ID),
		Raw: map[string]string{
			"event":     event.Event,
			"reference": event.Data.Reference,
			"status":    event.Data.Status,
			"amount":    amount.StringFixed(2),
		},
	}
	switch {
	case event.Event == "charge.success" && event.Data.Status == "success":
		result.Status = gateway.CallbackStatusSuccess
	case event.Data.Status == "pending":
		result.Status = gateway.CallbackStatusPending
	default:
		result.Status = gateway.CallbackStatusFailure
	}
	return result, nil
}
