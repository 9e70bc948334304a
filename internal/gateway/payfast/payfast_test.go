package payfast

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/herdbook/paycore/internal/gateway"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := New(Config{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "herd pass",
		Sandbox:     true,
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	if _, err := New(Config{MerchantID: "10000100"}); err == nil {
		t.Fatal("missing merchant key should be rejected")
	}
}

func TestBuildCheckoutSignsForm(t *testing.T) {
	adapter := newTestAdapter(t)
	result, err := adapter.BuildCheckout(context.Background(), &gateway.CheckoutRequest{
		OrderID:       "HB7-600",
		Amount:        decimal.RequireFromString("3000.00"),
		Currency:      "ZAR",
		Description:   "growth",
		CustomerName:  "Sipho",
		CustomerEmail: "sipho@example.com",
		NotifyURL:     "https://pay.example.com/payments/callback/payfast",
		ReturnURL:     "https://pay.example.com/return",
		CancelURL:     "https://pay.example.com/cancel",
	})
	if err != nil {
		t.Fatalf("build checkout: %v", err)
	}
	if result.URL != sandboxURL {
		t.Fatalf("url = %s, want sandbox", result.URL)
	}
	if result.Fields["signature"] == "" {
		t.Fatal("signature must be set")
	}
	if result.Fields["m_payment_id"] != "HB7-600" || result.Fields["amount"] != "3000.00" {
		t.Fatalf("unexpected fields: %v", result.Fields)
	}
}

// itnBody 以固定接收顺序构造 ITN 报文，签名由适配器自身算法生成
func itnBody(adapter *Adapter, paymentStatus string) ([]byte, url.Values) {
	ordered := []field{
		{"m_payment_id", "HB7-600"},
		{"pf_payment_id", "1089250"},
		{"payment_status", paymentStatus},
		{"item_name", "growth"},
		{"amount_gross", "3000.00"},
		{"amount_fee", "-69.00"},
		{"amount_net", "2931.00"},
		{"merchant_id", "10000100"},
	}
	signature := adapter.sign(ordered)

	var b strings.Builder
	form := url.Values{}
	for _, f := range ordered {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.value))
		form.Set(f.key, f.value)
	}
	b.WriteString("&signature=" + signature)
	form.Set("signature", signature)
	return []byte(b.String()), form
}

func TestVerifyCallbackRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)
	body, form := itnBody(adapter, "COMPLETE")
	result, err := adapter.VerifyCallback(&gateway.CallbackRequest{Form: form, Body: body})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != gateway.CallbackStatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if result.OrderID != "HB7-600" || result.Amount != "3000.00" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestVerifyCallbackCancelledStatus(t *testing.T) {
	adapter := newTestAdapter(t)
	body, form := itnBody(adapter, "CANCELLED")
	result, err := adapter.VerifyCallback(&gateway.CallbackRequest{Form: form, Body: body})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != gateway.CallbackStatusFailure {
		t.Fatalf("status = %s, want failure", result.Status)
	}
}

func TestVerifyCallbackRejectsTamperedBody(t *testing.T) {
	adapter := newTestAdapter(t)
	body, form := itnBody(adapter, "COMPLETE")
	tampered := []byte(strings.Replace(string(body), "3000.00", "1.00", 1))
	form.Set("amount_gross", "1.00")
	_, err := adapter.VerifyCallback(&gateway.CallbackRequest{Form: form, Body: tampered})
	if err != ErrInvalidSignature {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyCallbackRejectsEmptyBody(t *testing.T) {
	adapter := newTestAdapter(t)
	_, err := adapter.VerifyCallback(&gateway.CallbackRequest{Form: url.Values{}, Body: nil})
	if err != ErrMalformedBody {
		t.Fatalf("err = %v, want ErrMalformedBody", err)
	}
}

func TestSignEncodesSpacesAsPlus(t *testing.T) {
	adapter := newTestAdapter(t)
	a := adapter.sign([]field{{"item_name", "growth plan"}})
	b := adapter.sign([]field{{"item_name", "growth+plan"}})
	if a != b {
		t.Fatal("space must encode to + before hashing")
	}
}
