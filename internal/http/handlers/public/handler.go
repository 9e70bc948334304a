package public

import (
	"github.com/herdbook/paycore/internal/service"
)

// Handler 公开接口处理器
type Handler struct {
	checkoutService     *service.CheckoutService
	reconcileService    *service.ReconcileService
	subscriptionService *service.SubscriptionService
	resultURL           string
}

// NewHandler 创建公开接口处理器
func NewHandler(
	checkoutService *service.CheckoutService,
	reconcileService *service.ReconcileService,
	subscriptionService *service.SubscriptionService,
	resultURL string,
) *Handler {
	return &Handler{
		checkoutService:     checkoutService,
		reconcileService:    reconcileService,
		subscriptionService: subscriptionService,
		resultURL:           resultURL,
	}
}
