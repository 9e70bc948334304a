package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/queue"
	"github.com/herdbook/paycore/internal/repository"
)

// Consumer 异步任务处理器集合
type Consumer struct {
	payRepo repository.PaymentRepository
	subRepo repository.SubscriptionRepository
}

// NewConsumer 创建任务处理器
func NewConsumer(payRepo repository.PaymentRepository, subRepo repository.SubscriptionRepository) *Consumer {
	return &Consumer{payRepo: payRepo, subRepo: subRepo}
}

// Register 注册全部任务处理函数
func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(constants.TaskPaymentReceiptEmail, c.HandleReceiptEmail)
	mux.HandleFunc(constants.TaskSubscriptionActivated, c.HandleSubscriptionActivated)
}

// HandleReceiptEmail 处理支付凭据邮件任务
//
// 邮件通道由平台侧承接，这里核对流水存在后输出投递事件；
// 流水缺失视为暂时性异常，交给 asynq 重试。
func (c *Consumer) HandleReceiptEmail(_ context.Context, task *asynq.Task) error {
	var payload queue.ReceiptEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal receipt payload: %v: %w", err, asynq.SkipRetry)
	}

	payments, err := c.payRepo.ListByOrderID(payload.OrderID)
	if err != nil {
		return fmt.Errorf("load payments for %s: %w", payload.OrderID, err)
	}
	if len(payments) == 0 {
		return fmt.Errorf("no payment recorded for %s yet", payload.OrderID)
	}

	p := payments[0]
	logger.Infow("receipt_email_dispatched",
		"order_id", p.OrderID,
		"tenant_id", p.TenantID,
		"amount", p.Amount.String(),
		"gateway", p.Gateway,
	)
	return nil
}

// HandleSubscriptionActivated 处理订阅激活通知任务
func (c *Consumer) HandleSubscriptionActivated(_ context.Context, task *asynq.Task) error {
	var payload queue.SubscriptionActivatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal activation payload: %v: %w", err, asynq.SkipRetry)
	}

	sub, err := c.subRepo.GetByTenantID(payload.TenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription for tenant %d missing: %v: %w", payload.TenantID, err, asynq.SkipRetry)
		}
		return err
	}

	logger.Infow("subscription_activation_notified",
		"tenant_id", sub.TenantID,
		"plan", sub.Plan,
		"status", sub.Status,
		"renew_date", sub.RenewDate.Format("2006-01-02"),
	)
	return nil
}
