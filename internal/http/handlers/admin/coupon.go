package admin

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/http/response"
	"github.com/herdbook/paycore/internal/service"
)

// CreateCoupon 创建优惠券
// POST /api/v1/admin/coupons
func (h *Handler) CreateCoupon(c *gin.Context) {
	var input service.CouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	coupon, err := h.couponAdminService.Create(&input)
	if err != nil {
		writeCouponError(c, err)
		return
	}
	response.OK(c, coupon)
}

// UpdateCoupon 更新优惠券
// PUT /api/v1/admin/coupons/:id
func (h *Handler) UpdateCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}
	var input service.CouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	coupon, err := h.couponAdminService.Update(id, &input)
	if err != nil {
		writeCouponError(c, err)
		return
	}
	response.OK(c, coupon)
}

// DeactivateCoupon 停用优惠券
// POST /api/v1/admin/coupons/:id/deactivate
func (h *Handler) DeactivateCoupon(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}
	if err := h.couponAdminService.Deactivate(id); err != nil {
		writeCouponError(c, err)
		return
	}
	response.OK(c, nil)
}

// ListCoupons 分页查询优惠券
// GET /api/v1/admin/coupons
func (h *Handler) ListCoupons(c *gin.Context) {
	offset, limit := pagination(c)
	activeOnly := c.Query("active") == "true"
	coupons, total, err := h.couponAdminService.List(offset, limit, activeOnly)
	if err != nil {
		response.ServerError(c, "failed to list coupons")
		return
	}
	response.Page(c, coupons, total)
}

// ListCouponUsages 分页查询核销记录
// GET /api/v1/admin/coupons/:id/usages
func (h *Handler) ListCouponUsages(c *gin.Context) {
	id, ok := couponID(c)
	if !ok {
		return
	}
	offset, limit := pagination(c)
	usages, total, err := h.couponAdminService.Usages(id, offset, limit)
	if err != nil {
		response.ServerError(c, "failed to list usages")
		return
	}
	response.Page(c, usages, total)
}

func couponID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid coupon id")
		return 0, false
	}
	return uint(id), true
}

func writeCouponError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponRuleInvalid):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c, "coupon not found")
	default:
		response.ServerError(c, "coupon operation failed")
	}
}
