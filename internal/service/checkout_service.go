package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// AdapterResolver 按名称解析网关适配器
type AdapterResolver interface {
	Get(name string) (gateway.Adapter, bool)
	Names() []string
}

// CheckoutRequest 发起结账的入参
type CheckoutRequest struct {
	TenantID      uint   `json:"tenant_id" binding:"required"`
	UserID        uint   `json:"user_id" binding:"required"`
	Plan          string `json:"plan" binding:"required"`
	Gateway       string `json:"gateway" binding:"required"`
	CouponCode    string `json:"coupon_code"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
}

// CheckoutResponse 结账入口与折扣明细
type CheckoutResponse struct {
	OrderID        string            `json:"order_id"`
	Method         string            `json:"method"`
	CheckoutURL    string            `json:"checkout_url"`
	Fields         map[string]string `json:"fields,omitempty"`
	Amount         string            `json:"amount"`
	OriginalAmount string            `json:"original_amount"`
	DiscountAmount string            `json:"discount_amount"`
	CouponCode     string            `json:"coupon_code,omitempty"`
	Currency       string            `json:"currency"`
}

// PreviewResponse 结账试算结果（不落库、不请求网关）
type PreviewResponse struct {
	Plan           string `json:"plan"`
	Amount         string `json:"amount"`
	OriginalAmount string `json:"original_amount"`
	DiscountAmount string `json:"discount_amount"`
	CouponCode     string `json:"coupon_code,omitempty"`
	Currency       string `json:"currency"`
}

// CheckoutService 结账编排服务
type CheckoutService struct {
	catalog       *PlanCatalog
	couponService *CouponService
	adapters      AdapterResolver
	intentRepo    repository.PaymentIntentRepository
	publicBaseURL string
	resultURL     string
}

// NewCheckoutService 创建结账编排服务
func NewCheckoutService(
	catalog *PlanCatalog,
	couponService *CouponService,
	adapters AdapterResolver,
	intentRepo repository.PaymentIntentRepository,
	publicBaseURL, resultURL string,
) *CheckoutService {
	return &CheckoutService{
		catalog:       catalog,
		couponService: couponService,
		adapters:      adapters,
		intentRepo:    intentRepo,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		resultURL:     resultURL,
	}
}

// CreateCheckout 发起结账：校验计划与网关、应用折扣、生成订单号、
// 持久化 pending 意向，再委托网关构造结账入口
func (s *CheckoutService) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	plan, err := s.catalog.Price(req.Plan)
	if err != nil {
		return nil, err
	}
	adapter, ok := s.adapters.Get(req.Gateway)
	if !ok {
		return nil, ErrGatewayNotConfigured
	}

	amount := plan.Price
	original := plan.Price
	intent := &models.PaymentIntent{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Plan:     plan.Name,
		Gateway:  req.Gateway,
		Currency: plan.Currency,
		Status:   constants.IntentStatusPending,
	}

	if req.CouponCode != "" {
		calc, err := s.couponService.Validate(req.CouponCode, plan.Name, amount, req.TenantID, req.UserID)
		if err != nil {
			return nil, err
		}
		amount = calc.FinalAmount
		couponID := calc.Coupon.ID
		intent.CouponID = &couponID
		intent.CouponCode = calc.Coupon.Code
		intent.DiscountAmount = models.NewMoneyFromDecimal(calc.DiscountAmount)
	}
	intent.Amount = models.NewMoneyFromDecimal(amount)
	intent.OriginalAmount = models.NewMoneyFromDecimal(original)

	// 订单号冲突概率极低，重试一次即可
	for attempt := 0; attempt < 2; attempt++ {
		intent.OrderID = generateOrderID(req.TenantID)
		if err = s.intentRepo.Create(intent); err == nil {
			break
		}
		logger.Warnw("order_id_collision_retry",
			"tenant_id", req.TenantID,
			"order_id", intent.OrderID,
			"attempt", attempt,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	result, err := adapter.BuildCheckout(ctx, &gateway.CheckoutRequest{
		OrderID:       intent.OrderID,
		Amount:        amount,
		Currency:      plan.Currency,
		Description:   plan.Name,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		NotifyURL:     s.callbackURL(req.Gateway),
		ReturnURL:     s.callbackURL(req.Gateway),
		CancelURL:     s.resultURL,
	})
	if err != nil {
		logger.Errorw("checkout_build_failed",
			"order_id", intent.OrderID,
			"gateway", req.Gateway,
			"error", err,
		)
		return nil, err
	}

	logger.Infow("checkout_created",
		"order_id", intent.OrderID,
		"tenant_id", req.TenantID,
		"plan", plan.Name,
		"gateway", req.Gateway,
		"amount", intent.Amount.String(),
		"coupon_code", intent.CouponCode,
	)
	return &CheckoutResponse{
		OrderID:        intent.OrderID,
		Method:         result.Method,
		CheckoutURL:    result.URL,
		Fields:         result.Fields,
		Amount:         intent.Amount.String(),
		OriginalAmount: intent.OriginalAmount.String(),
		DiscountAmount: intent.DiscountAmount.String(),
		CouponCode:     intent.CouponCode,
		Currency:       plan.Currency,
	}, nil
}

// PreviewCheckout 试算折扣明细，不产生任何持久化副作用
func (s *CheckoutService) PreviewCheckout(req *CheckoutRequest) (*PreviewResponse, error) {
	plan, err := s.catalog.Price(req.Plan)
	if err != nil {
		return nil, err
	}

	resp := &PreviewResponse{
		Plan:           plan.Name,
		Amount:         models.NewMoneyFromDecimal(plan.Price).String(),
		OriginalAmount: models.NewMoneyFromDecimal(plan.Price).String(),
		DiscountAmount: "0.00",
		Currency:       plan.Currency,
	}
	if req.CouponCode != "" {
		calc, err := s.couponService.Validate(req.CouponCode, plan.Name, plan.Price, req.TenantID, req.UserID)
		if err != nil {
			return nil, err
		}
		resp.Amount = models.NewMoneyFromDecimal(calc.FinalAmount).String()
		resp.DiscountAmount = models.NewMoneyFromDecimal(calc.DiscountAmount).String()
		resp.CouponCode = calc.Coupon.Code
	}
	return resp, nil
}

// Gateways 返回当前可用网关名称
func (s *CheckoutService) Gateways() []string {
	return s.adapters.Names()
}

// Plans 返回当前可用计划名称
func (s *CheckoutService) Plans() []string {
	return s.catalog.Names()
}

func (s *CheckoutService) callbackURL(gatewayName string) string {
	return fmt.Sprintf("%s/api/v1/payments/callback/%s", s.publicBaseURL, gatewayName)
}

// generateOrderID 生成订单号：HB + 租户ID + 时间戳 + 随机数字后缀
func generateOrderID(tenantID uint) string {
	return fmt.Sprintf("%s%d-%s%s",
		constants.OrderIDPrefix,
		tenantID,
		time.Now().Format("20060102150405"),
		randNumeric(6),
	)
}

// randNumeric 生成指定长度的随机数字串（crypto/rand）
func randNumeric(length int) string {
	const digits = "0123456789"
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			// crypto/rand 不可用时退化为固定字符，订单号仍含时间戳
			b[i] = '0'
			continue
		}
		b[i] = digits[n.Int64()]
	}
	return string(b)
}
