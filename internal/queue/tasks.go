package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/herdbook/paycore/internal/constants"
)

// ReceiptEmailPayload 支付凭据邮件任务载荷
type ReceiptEmailPayload struct {
	OrderID string `json:"order_id"`
}

// SubscriptionActivatedPayload 订阅激活通知任务载荷
type SubscriptionActivatedPayload struct {
	TenantID uint   `json:"tenant_id"`
	Plan     string `json:"plan"`
}

// NewReceiptEmailTask 构造支付凭据邮件任务
func NewReceiptEmailTask(orderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReceiptEmailPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskPaymentReceiptEmail, payload), nil
}

// NewSubscriptionActivatedTask 构造订阅激活通知任务
func NewSubscriptionActivatedTask(tenantID uint, plan string) (*asynq.Task, error) {
	payload, err := json.Marshal(SubscriptionActivatedPayload{TenantID: tenantID, Plan: plan})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskSubscriptionActivated, payload), nil
}
