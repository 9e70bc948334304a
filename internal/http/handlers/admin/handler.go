package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/herdbook/paycore/internal/repository"
	"github.com/herdbook/paycore/internal/service"
)

// Handler 管理端接口处理器
type Handler struct {
	authService        *service.AuthService
	couponAdminService *service.CouponAdminService
	intentRepo         repository.PaymentIntentRepository
	paymentRepo        repository.PaymentRepository
}

// NewHandler 创建管理端接口处理器
func NewHandler(
	authService *service.AuthService,
	couponAdminService *service.CouponAdminService,
	intentRepo repository.PaymentIntentRepository,
	paymentRepo repository.PaymentRepository,
) *Handler {
	return &Handler{
		authService:        authService,
		couponAdminService: couponAdminService,
		intentRepo:         intentRepo,
		paymentRepo:        paymentRepo,
	}
}

// pagination 解析分页参数，page 从 1 开始
func pagination(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if size < 1 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}
