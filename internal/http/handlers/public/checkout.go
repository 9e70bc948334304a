package public

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/service"
)

// CreateCheckout 发起结账
// POST /api/v1/checkout
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.checkoutService.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.OK(c, resp)
}

// PreviewCheckout 结账试算（校验优惠码并返回折扣明细）
// POST /api/v1/checkout/preview
func (h *Handler) PreviewCheckout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	resp, err := h.checkoutService.PreviewCheckout(&req)
	if err != nil {
		writeCheckoutError(c, err)
		return
	}
	response.OK(c, resp)
}

// Catalog 返回可用计划与网关
// GET /api/v1/catalog
func (h *Handler) Catalog(c *gin.Context) {
	response.OK(c, gin.H{
		"plans":    h.checkoutService.Plans(),
		"gateways": h.checkoutService.Gateways(),
	})
}

// GetSubscription 查询租户订阅
// GET /api/v1/subscriptions/:tenant_id
func (h *Handler) GetSubscription(c *gin.Context) {
	tenantID, ok := parseUintParam(c, "tenant_id")
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Get(tenantID)
	if err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "failed to load subscription")
		return
	}
	response.OK(c, sub)
}

// CancelSubscription 取消租户订阅
// POST /api/v1/subscriptions/:tenant_id/cancel
func (h *Handler) CancelSubscription(c *gin.Context) {
	tenantID, ok := parseUintParam(c, "tenant_id")
	if !ok {
		return
	}
	if err := h.subscriptionService.Cancel(tenantID); err != nil {
		if errors.Is(err, service.ErrSubscriptionNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.ServerError(c, "failed to cancel subscription")
		return
	}
	response.OK(c, nil)
}

// writeCheckoutError 区分校验错误与配置/内部错误
func writeCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidGateway),
		errors.Is(err, service.ErrCouponInvalid),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrCouponPlanMismatch),
		errors.Is(err, service.ErrCouponBelowMin),
		errors.Is(err, service.ErrCouponMaxUses),
		errors.Is(err, service.ErrCouponAlreadyUsed):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrGatewayNotConfigured):
		// 缺失网关凭据属于部署配置错误，不能静默降级
		response.ServerError(c, err.Error())
	default:
		response.ServerError(c, "checkout failed")
	}
}
