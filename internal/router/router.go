package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/http/handlers/admin"
	"github.com/herdbook/paycore/internal/http/handlers/public"
	"github.com/herdbook/paycore/internal/service"
)

// Options 路由装配参数
type Options struct {
	Config        *config.Config
	RedisClient   *redis.Client
	PublicHandler *public.Handler
	AdminHandler  *admin.Handler
	AuthService   *service.AuthService
}

// New 装配路由
func New(opts Options) *gin.Engine {
	gin.SetMode(ginMode(opts.Config.Server.Mode))
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), AccessLog(), CORS(opts.Config.CORS))

	engine.GET("/healthz", opts.PublicHandler.Healthz)

	v1 := engine.Group("/api/v1")
	{
		checkout := v1.Group("")
		checkout.Use(CheckoutRateLimit(opts.RedisClient, opts.Config.Redis.Prefix, opts.Config.Security.CheckoutRateLimit))
		{
			checkout.POST("/checkout", opts.PublicHandler.CreateCheckout)
			checkout.POST("/checkout/preview", opts.PublicHandler.PreviewCheckout)
		}

		v1.GET("/catalog", opts.PublicHandler.Catalog)
		v1.GET("/subscriptions/:tenant_id", opts.PublicHandler.GetSubscription)
		v1.POST("/subscriptions/:tenant_id/cancel", opts.PublicHandler.CancelSubscription)

		// 网关回调：部分网关用 GET 跳转，部分用 POST 通知，同一入口承接
		v1.GET("/payments/callback/:gateway", opts.PublicHandler.HandleCallback)
		v1.POST("/payments/callback/:gateway", opts.PublicHandler.HandleCallback)

		adminGroup := v1.Group("/admin")
		{
			adminGroup.POST("/login", opts.AdminHandler.Login)

			authed := adminGroup.Group("")
			authed.Use(AdminAuth(opts.AuthService))
			{
				authed.POST("/coupons", opts.AdminHandler.CreateCoupon)
				authed.GET("/coupons", opts.AdminHandler.ListCoupons)
				authed.PUT("/coupons/:id", opts.AdminHandler.UpdateCoupon)
				authed.POST("/coupons/:id/deactivate", opts.AdminHandler.DeactivateCoupon)
				authed.GET("/coupons/:id/usages", opts.AdminHandler.ListCouponUsages)
				authed.GET("/intents", opts.AdminHandler.ListIntents)
				authed.POST("/intents/:order_id/fail", opts.AdminHandler.MarkIntentFailed)
				authed.GET("/payments", opts.AdminHandler.ListPayments)
			}
		}
	}

	return engine
}

func ginMode(mode string) string {
	if mode == "release" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}
