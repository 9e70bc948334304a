package service

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// recordingAdapter 记录收到的结账请求并返回固定入口
type recordingAdapter struct {
	name string
	last *gateway.CheckoutRequest
}

func (a *recordingAdapter) Name() string { return a.name }

func (a *recordingAdapter) BuildCheckout(_ context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	a.last = req
	return &gateway.CheckoutResult{
		Method: gateway.CheckoutMethodPost,
		URL:    "https://gateway.example.com/pay",
		Fields: map[string]string{"txnid": req.OrderID},
	}, nil
}

func (a *recordingAdapter) VerifyCallback(_ *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	return nil, nil
}

func newTestCatalog(t *testing.T) *PlanCatalog {
	t.Helper()
	catalog, err := NewPlanCatalog(map[string]config.PlanConfig{
		"starter":    {Price: "1500.00"},
		"growth":     {Price: "3000.00"},
		"enterprise": {Price: "7500.00", Currency: "KES"},
	}, "KES")
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	return catalog
}

type checkoutFixture struct {
	db      *gorm.DB
	svc     *CheckoutService
	adapter *recordingAdapter
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	db := newTestDB(t)
	adapter := &recordingAdapter{name: "payu"}
	svc := NewCheckoutService(
		newTestCatalog(t),
		newCouponService(t, db),
		stubResolver{"payu": adapter},
		repository.NewPaymentIntentRepository(db),
		"https://pay.herdbook.africa/",
		"https://app.herdbook.africa/billing/result",
	)
	return &checkoutFixture{db: db, svc: svc, adapter: adapter}
}

func baseCheckoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		TenantID:      7,
		UserID:        42,
		Plan:          "growth",
		Gateway:       "payu",
		CustomerName:  "Wanjiku",
		CustomerEmail: "wanjiku@example.com",
	}
}

func TestCreateCheckoutPersistsPendingIntent(t *testing.T) {
	f := newCheckoutFixture(t)

	resp, err := f.svc.CreateCheckout(context.Background(), baseCheckoutRequest())
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if !strings.HasPrefix(resp.OrderID, "HB7-") {
		t.Fatalf("order id = %s, want HB7- prefix", resp.OrderID)
	}
	if resp.Amount != "3000.00" || resp.DiscountAmount != "0.00" {
		t.Fatalf("amounts = %s/%s", resp.Amount, resp.DiscountAmount)
	}
	if resp.CheckoutURL != "https://gateway.example.com/pay" {
		t.Fatalf("checkout url = %s", resp.CheckoutURL)
	}

	intent, err := repository.NewPaymentIntentRepository(f.db).GetByOrderID(resp.OrderID)
	if err != nil {
		t.Fatalf("get intent: %v", err)
	}
	if intent.Status != constants.IntentStatusPending {
		t.Fatalf("intent status = %s, want pending", intent.Status)
	}
	if intent.TenantID != 7 || intent.Plan != "growth" || intent.Currency != "KES" {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	// 回调地址按网关模板化，且基于公开地址
	wantNotify := "https://pay.herdbook.africa/api/v1/payments/callback/payu"
	if f.adapter.last.NotifyURL != wantNotify {
		t.Fatalf("notify url = %s, want %s", f.adapter.last.NotifyURL, wantNotify)
	}
}

func TestCreateCheckoutAppliesCoupon(t *testing.T) {
	f := newCheckoutFixture(t)
	coupon := seedCoupon(t, f.db, &models.Coupon{
		Code:     "TEN",
		Type:     constants.CouponTypePercentage,
		Value:    mustMoney(t, "10"),
		IsActive: true,
	})

	req := baseCheckoutRequest()
	req.CouponCode = "ten"
	resp, err := f.svc.CreateCheckout(context.Background(), req)
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if resp.Amount != "2700.00" || resp.DiscountAmount != "300.00" || resp.OriginalAmount != "3000.00" {
		t.Fatalf("amounts = %s/%s/%s", resp.Amount, resp.DiscountAmount, resp.OriginalAmount)
	}
	if resp.CouponCode != "TEN" {
		t.Fatalf("coupon code = %s", resp.CouponCode)
	}

	intent, _ := repository.NewPaymentIntentRepository(f.db).GetByOrderID(resp.OrderID)
	if intent.CouponID == nil || *intent.CouponID != coupon.ID {
		t.Fatalf("intent coupon linkage missing: %+v", intent)
	}
	// 网关收到的是折后金额
	if !f.adapter.last.Amount.Equal(mustMoney(t, "2700.00").Decimal) {
		t.Fatalf("gateway amount = %s", f.adapter.last.Amount.String())
	}
}

func TestCreateCheckoutRejectsUnknownPlan(t *testing.T) {
	f := newCheckoutFixture(t)
	req := baseCheckoutRequest()
	req.Plan = "platinum"
	if _, err := f.svc.CreateCheckout(context.Background(), req); err != ErrInvalidPlan {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
}

func TestCreateCheckoutRejectsUnconfiguredGateway(t *testing.T) {
	f := newCheckoutFixture(t)
	req := baseCheckoutRequest()
	req.Gateway = "paystack"
	if _, err := f.svc.CreateCheckout(context.Background(), req); err != ErrGatewayNotConfigured {
		t.Fatalf("err = %v, want ErrGatewayNotConfigured", err)
	}
}

func TestCreateCheckoutPropagatesCouponRejection(t *testing.T) {
	f := newCheckoutFixture(t)
	req := baseCheckoutRequest()
	req.CouponCode = "NOPE"
	if _, err := f.svc.CreateCheckout(context.Background(), req); err != ErrCouponInvalid {
		t.Fatalf("err = %v, want ErrCouponInvalid", err)
	}
	// 被拒绝的结账不留任何意向
	var count int64
	f.db.Model(&models.PaymentIntent{}).Count(&count)
	if count != 0 {
		t.Fatalf("intents = %d, want 0", count)
	}
}

func TestPreviewCheckoutHasNoSideEffects(t *testing.T) {
	f := newCheckoutFixture(t)
	seedCoupon(t, f.db, &models.Coupon{
		Code:     "TEN",
		Type:     constants.CouponTypePercentage,
		Value:    mustMoney(t, "10"),
		IsActive: true,
	})

	req := baseCheckoutRequest()
	req.CouponCode = "TEN"
	resp, err := f.svc.PreviewCheckout(req)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if resp.Amount != "2700.00" || resp.DiscountAmount != "300.00" {
		t.Fatalf("amounts = %s/%s", resp.Amount, resp.DiscountAmount)
	}

	var count int64
	f.db.Model(&models.PaymentIntent{}).Count(&count)
	if count != 0 {
		t.Fatalf("intents = %d, want 0", count)
	}
	if f.adapter.last != nil {
		t.Fatal("preview must not call the gateway")
	}
}
