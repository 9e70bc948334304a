package provider

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/herdbook/paycore/internal/cache"
	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/gateway/payfast"
	"github.com/herdbook/paycore/internal/gateway/paystack"
	"github.com/herdbook/paycore/internal/gateway/payu"
	"github.com/herdbook/paycore/internal/http/handlers/admin"
	"github.com/herdbook/paycore/internal/http/handlers/public"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/queue"
	"github.com/herdbook/paycore/internal/repository"
	"github.com/herdbook/paycore/internal/service"
)

// Container 依赖容器：启动时装配一次，运行期只读
type Container struct {
	Config      *config.Config
	RedisClient *redis.Client
	QueueClient *queue.Client
	Registry    *gateway.Registry

	IntentRepo      repository.PaymentIntentRepository
	PaymentRepo     repository.PaymentRepository
	CouponRepo      repository.CouponRepository
	CouponUsageRepo repository.CouponUsageRepository
	SubRepo         repository.SubscriptionRepository

	AuthService         *service.AuthService
	CheckoutService     *service.CheckoutService
	ReconcileService    *service.ReconcileService
	SubscriptionService *service.SubscriptionService
	CouponAdminService  *service.CouponAdminService

	PublicHandler *public.Handler
	AdminHandler  *admin.Handler
}

// NewContainer 装配全部依赖
//
// 网关凭据不完整属于部署错误，装配失败直接中止启动。
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	registry, err := buildRegistry(cfg.Gateways)
	if err != nil {
		return nil, err
	}
	c.Registry = registry

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			// 限流降级可接受，拿不到 Redis 不阻塞启动
			logger.Warnw("redis_unavailable", "error", err)
		} else {
			c.RedisClient = client
		}
	}
	if cfg.Queue.Enabled {
		c.QueueClient = queue.NewClient(cfg.Queue)
	}

	c.IntentRepo = repository.NewPaymentIntentRepository(models.DB)
	c.PaymentRepo = repository.NewPaymentRepository(models.DB)
	c.CouponRepo = repository.NewCouponRepository(models.DB)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(models.DB)
	c.SubRepo = repository.NewSubscriptionRepository(models.DB)

	catalog, err := service.NewPlanCatalog(cfg.Plans, cfg.Payment.DefaultCurrency)
	if err != nil {
		return nil, fmt.Errorf("build plan catalog: %w", err)
	}

	couponService := service.NewCouponService(c.CouponRepo, c.CouponUsageRepo)
	c.AuthService = service.NewAuthService(
		cfg.Admin.Username,
		cfg.Admin.PasswordHash,
		cfg.JWT.SecretKey,
		cfg.JWT.ExpireHours,
	)
	c.CheckoutService = service.NewCheckoutService(
		catalog,
		couponService,
		registry,
		c.IntentRepo,
		cfg.Server.PublicBaseURL,
		cfg.Payment.ResultURL,
	)

	var enqueuer service.TaskEnqueuer
	if c.QueueClient != nil {
		enqueuer = c.QueueClient
	}
	c.ReconcileService = service.NewReconcileService(
		models.DB,
		registry,
		c.IntentRepo,
		c.PaymentRepo,
		c.CouponRepo,
		c.CouponUsageRepo,
		c.SubRepo,
		enqueuer,
	)
	c.SubscriptionService = service.NewSubscriptionService(c.SubRepo)
	c.CouponAdminService = service.NewCouponAdminService(c.CouponRepo, c.CouponUsageRepo, catalog)

	c.PublicHandler = public.NewHandler(
		c.CheckoutService,
		c.ReconcileService,
		c.SubscriptionService,
		cfg.Payment.ResultURL,
	)
	c.AdminHandler = admin.NewHandler(
		c.AuthService,
		c.CouponAdminService,
		c.IntentRepo,
		c.PaymentRepo,
	)
	return c, nil
}

// buildRegistry 按配置注册启用的网关
func buildRegistry(cfg config.GatewaysConfig) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()

	if cfg.PayU.Enabled {
		adapter, err := payu.New(payu.Config{
			MerchantKey: cfg.PayU.MerchantKey,
			Salt:        cfg.PayU.Salt,
			Sandbox:     cfg.PayU.Sandbox,
		})
		if err != nil {
			return nil, fmt.Errorf("gateway payu: %w", err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	if cfg.Payfast.Enabled {
		adapter, err := payfast.New(payfast.Config{
			MerchantID:  cfg.Payfast.MerchantID,
			MerchantKey: cfg.Payfast.MerchantKey,
			Passphrase:  cfg.Payfast.Passphrase,
			Sandbox:     cfg.Payfast.Sandbox,
		})
		if err != nil {
			return nil, fmt.Errorf("gateway payfast: %w", err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	if cfg.Paystack.Enabled {
		adapter, err := paystack.New(paystack.Config{
			SecretKey: cfg.Paystack.SecretKey,
			BaseURL:   cfg.Paystack.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("gateway paystack: %w", err)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	logger.Infow("gateways_registered", "gateways", registry.Names())
	return registry, nil
}
