package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/logger"
)

// Service asynq 消费端服务，随应用一起启停
type Service struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建消费端服务
func NewService(cfg config.QueueConfig, consumer *Consumer) *Service {
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{"default": 10}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			Logger:      asynqLogger{},
		},
	)

	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{server: server, mux: mux}
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费循环（阻塞直到 Shutdown）
func (s *Service) Start(_ context.Context) error {
	logger.Infow("worker_starting")
	return s.server.Run(s.mux)
}

// Stop 优雅停止：等在途任务收尾
func (s *Service) Stop(_ context.Context) error {
	logger.Infow("worker_stopping")
	s.server.Shutdown()
	return nil
}

// asynqLogger 将 asynq 内部日志接入 zap
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.S().Debug(args...) }
func (asynqLogger) Info(args ...interface{})  { logger.S().Info(args...) }
func (asynqLogger) Warn(args ...interface{})  { logger.S().Warn(args...) }
func (asynqLogger) Error(args ...interface{}) { logger.S().Error(args...) }
func (asynqLogger) Fatal(args ...interface{}) { logger.S().Fatal(args...) }
