package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/logger"
)

// ListIntents 分页查询支付意向
// GET /api/v1/admin/intents
func (h *Handler) ListIntents(c *gin.Context) {
	offset, limit := pagination(c)
	tenantID, _ := strconv.ParseUint(c.Query("tenant_id"), 10, 32)
	status := c.Query("status")

	intents, total, err := h.intentRepo.List(offset, limit, uint(tenantID), status)
	if err != nil {
		response.ServerError(c, "failed to list intents")
		return
	}
	response.Page(c, intents, total)
}

// MarkIntentFailed 人工将滞留的 pending 意向置为 failed
// POST /api/v1/admin/intents/:order_id/fail
//
// 已完成的意向不可改写；条件更新未命中时如实返回。
func (h *Handler) MarkIntentFailed(c *gin.Context) {
	orderID := c.Param("order_id")
	if orderID == "" {
		response.BadRequest(c, "invalid order id")
		return
	}

	changed, err := h.intentRepo.MarkFailed(orderID)
	if err != nil {
		response.ServerError(c, "failed to update intent")
		return
	}
	if !changed {
		response.BadRequest(c, "intent is not pending")
		return
	}
	logger.Infow("intent_marked_failed_manually", "order_id", orderID)
	response.OK(c, nil)
}

// ListPayments 分页查询支付流水
// GET /api/v1/admin/payments
func (h *Handler) ListPayments(c *gin.Context) {
	offset, limit := pagination(c)
	tenantID, _ := strconv.ParseUint(c.Query("tenant_id"), 10, 32)
	gatewayName := c.Query("gateway")

	payments, total, err := h.paymentRepo.List(offset, limit, uint(tenantID), gatewayName)
	if err != nil {
		response.ServerError(c, "failed to list payments")
		return
	}
	response.Page(c, payments, total)
}
