package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
	"github.com/herdbook/paycore/internal/service"
)

const testResultURL = "https://app.herdbook.africa/billing/result"

// scriptedAdapter 按预置脚本响应的网关桩
type scriptedAdapter struct {
	verifyResult *gateway.CallbackResult
	verifyErr    error
}

func (a *scriptedAdapter) Name() string { return "payu" }

func (a *scriptedAdapter) BuildCheckout(_ context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutResult, error) {
	return &gateway.CheckoutResult{
		Method: gateway.CheckoutMethodPost,
		URL:    "https://gateway.example.com/pay",
		Fields: map[string]string{"txnid": req.OrderID},
	}, nil
}

func (a *scriptedAdapter) VerifyCallback(_ *gateway.CallbackRequest) (*gateway.CallbackResult, error) {
	return a.verifyResult, a.verifyErr
}

type handlerFixture struct {
	db      *gorm.DB
	engine  *gin.Engine
	adapter *scriptedAdapter
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:paycore_http_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.PaymentIntent{},
		&models.Payment{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Subscription{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	adapter := &scriptedAdapter{}
	registry := gateway.NewRegistry()
	if err := registry.Register(adapter); err != nil {
		t.Fatalf("register adapter: %v", err)
	}

	catalog, err := service.NewPlanCatalog(map[string]config.PlanConfig{
		"growth": {Price: "3000.00"},
	}, "KES")
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}

	intentRepo := repository.NewPaymentIntentRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	usageRepo := repository.NewCouponUsageRepository(db)
	couponService := service.NewCouponService(couponRepo, usageRepo)
	checkoutService := service.NewCheckoutService(
		catalog, couponService, registry, intentRepo,
		"https://pay.herdbook.africa", testResultURL,
	)
	reconcileService := service.NewReconcileService(
		db, registry, intentRepo,
		repository.NewPaymentRepository(db),
		couponRepo, usageRepo,
		repository.NewSubscriptionRepository(db),
		nil,
	)
	subscriptionService := service.NewSubscriptionService(repository.NewSubscriptionRepository(db))

	handler := NewHandler(checkoutService, reconcileService, subscriptionService, testResultURL)
	engine := gin.New()
	engine.POST("/api/v1/checkout", handler.CreateCheckout)
	engine.GET("/api/v1/payments/callback/:gateway", handler.HandleCallback)
	engine.POST("/api/v1/payments/callback/:gateway", handler.HandleCallback)
	engine.GET("/healthz", handler.Healthz)

	return &handlerFixture{db: db, engine: engine, adapter: adapter}
}

func (f *handlerFixture) createCheckout(t *testing.T) string {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id":      7,
		"user_id":        42,
		"plan":           "growth",
		"gateway":        "payu",
		"customer_email": "wanjiku@example.com",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var parsed struct {
		Data struct {
			OrderID string `json:"order_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("parse checkout response: %v", err)
	}
	if parsed.Data.OrderID == "" {
		t.Fatal("order_id missing from checkout response")
	}
	return parsed.Data.OrderID
}

func TestCheckoutEndpointCreatesIntent(t *testing.T) {
	f := newHandlerFixture(t)
	orderID := f.createCheckout(t)

	intent, err := repository.NewPaymentIntentRepository(f.db).GetByOrderID(orderID)
	if err != nil {
		t.Fatalf("get intent: %v", err)
	}
	if intent.Status != constants.IntentStatusPending {
		t.Fatalf("intent status = %s, want pending", intent.Status)
	}
}

func TestCheckoutEndpointRejectsUnknownGateway(t *testing.T) {
	f := newHandlerFixture(t)
	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id":      7,
		"user_id":        42,
		"plan":           "growth",
		"gateway":        "mpesa",
		"customer_email": "wanjiku@example.com",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for unconfigured gateway", rec.Code)
	}
}

func TestCallbackBrowserFlowRedirects(t *testing.T) {
	f := newHandlerFixture(t)
	orderID := f.createCheckout(t)
	f.adapter.verifyResult = &gateway.CallbackResult{
		OrderID: orderID,
		Status:  gateway.CallbackStatusSuccess,
		Amount:  "3000.00",
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback/payu?txnid="+orderID, nil)
	f.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, testResultURL+"?status=success") {
		t.Fatalf("redirect = %s, want success result page", location)
	}
	if !strings.Contains(location, "order=") {
		t.Fatalf("redirect = %s, want order reference", location)
	}
}

func TestCallbackFailureRedirectsWithoutDetail(t *testing.T) {
	f := newHandlerFixture(t)
	f.createCheckout(t)
	f.adapter.verifyErr = fmt.Errorf("signature mismatch")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback/payu", nil)
	f.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, testResultURL+"?status=failed") {
		t.Fatalf("redirect = %s, want generic failure", location)
	}
	// 失败跳转不得携带验签细节
	if strings.Contains(location, "signature") {
		t.Fatalf("redirect leaks detail: %s", location)
	}
}

func TestCallbackServerNotificationRespondsPlain(t *testing.T) {
	f := newHandlerFixture(t)
	orderID := f.createCheckout(t)
	f.adapter.verifyResult = &gateway.CallbackResult{
		OrderID: orderID,
		Status:  gateway.CallbackStatusSuccess,
		Amount:  "3000.00",
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/payu",
		bytes.NewReader([]byte(`{"event":"charge.success"}`)))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("body = %s, want OK", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	f := newHandlerFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
