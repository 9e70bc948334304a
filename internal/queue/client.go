package queue

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/herdbook/paycore/internal/config"
	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/logger"
)

// Client 异步任务投递客户端
type Client struct {
	client *asynq.Client
}

// NewClient 创建任务投递客户端
func NewClient(cfg config.QueueConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

// EnqueueReceiptEmail 投递支付凭据邮件任务
func (c *Client) EnqueueReceiptEmail(orderID string) error {
	task, err := NewReceiptEmailTask(orderID)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, asynq.Queue(constants.QueueDefault), asynq.MaxRetry(5))
	if err != nil {
		return err
	}
	logger.Debugw("task_enqueued", "task_id", info.ID, "type", info.Type, "order_id", orderID)
	return nil
}

// EnqueueSubscriptionActivated 投递订阅激活通知任务
func (c *Client) EnqueueSubscriptionActivated(tenantID uint, plan string) error {
	task, err := NewSubscriptionActivatedTask(tenantID, plan)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task, asynq.Queue(constants.QueueDefault), asynq.MaxRetry(5))
	if err != nil {
		return err
	}
	logger.Debugw("task_enqueued", "task_id", info.ID, "type", info.Type, "tenant_id", tenantID)
	return nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	return c.client.Close()
}
