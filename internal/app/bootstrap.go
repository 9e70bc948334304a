package app

import (
	"errors"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/provider"
	"github.com/herdbook/paycore/internal/router"
	"github.com/herdbook/paycore/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, err
	}

	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.New(router.Options{
			Config:        cfg,
			RedisClient:   container.RedisClient,
			PublicHandler: container.PublicHandler,
			AdminHandler:  container.AdminHandler,
			AuthService:   container.AuthService,
		})
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	if (mode == ModeAll || mode == ModeWorker) && cfg.Queue.Enabled {
		consumer := worker.NewConsumer(container.PaymentRepo, container.SubRepo)
		services = append(services, worker.NewService(cfg.Queue, consumer))
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
