package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/gateway"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// TaskEnqueuer 对账成功后的异步任务投递
type TaskEnqueuer interface {
	EnqueueReceiptEmail(orderID string) error
	EnqueueSubscriptionActivated(tenantID uint, plan string) error
}

// CallbackOutcome 对账结果
type CallbackOutcome struct {
	OrderID   string
	Duplicate bool // 重复回调：走幂等成功路径，未产生新的状态变更
}

// ReconcileService 回调对账服务
//
// 对账写序列（流水、核销、订阅、意向完成）在单个事务内提交；
// 意向的 pending→completed 条件更新是并发去重的唯一裁决点。
type ReconcileService struct {
	db         *gorm.DB
	adapters   AdapterResolver
	intentRepo repository.PaymentIntentRepository
	payRepo    repository.PaymentRepository
	couponRepo repository.CouponRepository
	usageRepo  repository.CouponUsageRepository
	subRepo    repository.SubscriptionRepository
	enqueuer   TaskEnqueuer
	now        func() time.Time
}

// NewReconcileService 创建回调对账服务
func NewReconcileService(
	db *gorm.DB,
	adapters AdapterResolver,
	intentRepo repository.PaymentIntentRepository,
	payRepo repository.PaymentRepository,
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	subRepo repository.SubscriptionRepository,
	enqueuer TaskEnqueuer,
) *ReconcileService {
	return &ReconcileService{
		db:         db,
		adapters:   adapters,
		intentRepo: intentRepo,
		payRepo:    payRepo,
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		subRepo:    subRepo,
		enqueuer:   enqueuer,
		now:        time.Now,
	}
}

// HandleCallback 处理网关回调
//
// 任何校验失败都不改变状态（fail-closed）；验签失败只记日志，
// 不向外返回可用于试探验签函数的细节。
func (s *ReconcileService) HandleCallback(_ context.Context, gatewayName string, req *gateway.CallbackRequest) (*CallbackOutcome, error) {
	logger.Infow("payment_callback_received", "gateway", gatewayName)

	adapter, ok := s.adapters.Get(gatewayName)
	if !ok {
		logger.Warnw("payment_callback_unknown_gateway", "gateway", gatewayName)
		return nil, ErrInvalidGateway
	}

	result, err := adapter.VerifyCallback(req)
	if err != nil {
		// 安全事件：丢弃请求，细节只进日志
		logger.Warnw("payment_callback_verify_failed",
			"gateway", gatewayName,
			"error", err,
		)
		return nil, ErrCallbackRejected
	}
	if result.Status != gateway.CallbackStatusSuccess {
		logger.Infow("payment_callback_not_success",
			"gateway", gatewayName,
			"order_id", result.OrderID,
			"status", result.Status,
		)
		return nil, ErrCallbackNotPaid
	}

	intent, err := s.intentRepo.GetByOrderID(result.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 可能是重放或发给他人的回调，留日志供人工排查
			logger.Warnw("payment_callback_order_not_found",
				"gateway", gatewayName,
				"order_id", result.OrderID,
			)
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if err := s.checkAmountEcho(intent, result); err != nil {
		return nil, err
	}

	// 幂等预检：已完成的意向直接返回相同的成功结果
	if intent.Status == constants.IntentStatusCompleted {
		logger.Infow("payment_callback_duplicate",
			"gateway", gatewayName,
			"order_id", intent.OrderID,
		)
		return &CallbackOutcome{OrderID: intent.OrderID, Duplicate: true}, nil
	}
	if intent.Status != constants.IntentStatusPending {
		logger.Warnw("payment_callback_intent_not_pending",
			"order_id", intent.OrderID,
			"status", intent.Status,
		)
		return nil, ErrIntentNotPending
	}

	outcome := &CallbackOutcome{OrderID: intent.OrderID}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 条件更新裁决并发：只有一个回调能把 pending 置为 completed
		won, err := s.intentRepo.WithTx(tx).MarkCompleted(intent.OrderID, s.now())
		if err != nil {
			return err
		}
		if !won {
			outcome.Duplicate = true
			return nil
		}
		return s.commitReconciliation(tx, intent, result)
	})
	if err != nil {
		logger.Errorw("payment_reconcile_failed",
			"order_id", intent.OrderID,
			"error", err,
		)
		return nil, err
	}
	if outcome.Duplicate {
		logger.Infow("payment_callback_duplicate",
			"gateway", gatewayName,
			"order_id", intent.OrderID,
		)
		return outcome, nil
	}

	logger.Infow("payment_reconciled",
		"gateway", gatewayName,
		"order_id", intent.OrderID,
		"tenant_id", intent.TenantID,
		"plan", intent.Plan,
		"amount", intent.Amount.String(),
		"transaction_id", result.TransactionID,
	)
	s.enqueueFollowups(intent)
	return outcome, nil
}

// checkAmountEcho 金额回声校验：网关回传金额必须与意向折后金额一致
func (s *ReconcileService) checkAmountEcho(intent *models.PaymentIntent, result *gateway.CallbackResult) error {
	if result.Amount == "" {
		return nil
	}
	echoed, err := decimal.NewFromString(result.Amount)
	if err != nil {
		logger.Warnw("payment_callback_amount_unparsable",
			"order_id", intent.OrderID,
			"amount", result.Amount,
		)
		return ErrAmountMismatch
	}
	if !echoed.Round(2).Equal(intent.Amount.Decimal.Round(2)) {
		logger.Warnw("payment_callback_amount_mismatch",
			"order_id", intent.OrderID,
			"expected", intent.Amount.String(),
			"received", result.Amount,
		)
		return ErrAmountMismatch
	}
	return nil
}

// commitReconciliation 在事务内提交流水、核销与订阅激活
func (s *ReconcileService) commitReconciliation(tx *gorm.DB, intent *models.PaymentIntent, result *gateway.CallbackResult) error {
	now := s.now()

	payment := &models.Payment{
		TenantID:      intent.TenantID,
		OrderID:       intent.OrderID,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		Gateway:       intent.Gateway,
		Status:        constants.PaymentStatusSuccess,
		TransactionID: result.TransactionID,
		Plan:          intent.Plan,
		Metadata:      rawMetadata(result.Raw),
		CreatedAt:     now,
	}
	if err := s.payRepo.WithTx(tx).Create(payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if intent.CouponID != nil {
		if err := s.recordCouponUsage(tx, intent, now); err != nil {
			return err
		}
	}

	sub := &models.Subscription{
		TenantID:  intent.TenantID,
		Plan:      intent.Plan,
		Status:    constants.SubscriptionStatusActive,
		Gateway:   intent.Gateway,
		RenewDate: now.AddDate(0, 0, constants.SubscriptionRenewDays),
		Amount:    intent.Amount,
		Currency:  intent.Currency,
		UpdatedAt: now,
	}
	if err := s.subRepo.WithTx(tx).Upsert(sub); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	return nil
}

// recordCouponUsage 条件自增配额并写核销记录
//
// 两个订单同时带着最后一个名额到达时，输掉自增的一方放弃核销，
// 但支付照常入账：没有事后追退折扣的路径。
func (s *ReconcileService) recordCouponUsage(tx *gorm.DB, intent *models.PaymentIntent, now time.Time) error {
	won, err := s.couponRepo.WithTx(tx).IncrementUsage(*intent.CouponID)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if !won {
		logger.Warnw("coupon_cap_race_lost",
			"order_id", intent.OrderID,
			"coupon_id", *intent.CouponID,
		)
		return nil
	}
	usage := &models.CouponUsage{
		CouponID:       *intent.CouponID,
		TenantID:       intent.TenantID,
		UserID:         intent.UserID,
		OrderID:        intent.OrderID,
		DiscountAmount: intent.DiscountAmount,
		UsedAt:         now,
	}
	if err := s.usageRepo.WithTx(tx).Create(usage); err != nil {
		return fmt.Errorf("insert coupon usage: %w", err)
	}
	return nil
}

// enqueueFollowups 投递对账后的异步任务（尽力而为，失败只记日志）
func (s *ReconcileService) enqueueFollowups(intent *models.PaymentIntent) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueReceiptEmail(intent.OrderID); err != nil {
		logger.Errorw("enqueue_receipt_email_failed", "order_id", intent.OrderID, "error", err)
	}
	if err := s.enqueuer.EnqueueSubscriptionActivated(intent.TenantID, intent.Plan); err != nil {
		logger.Errorw("enqueue_subscription_activated_failed", "tenant_id", intent.TenantID, "error", err)
	}
}

func rawMetadata(raw map[string]string) models.JSON {
	if len(raw) == 0 {
		return nil
	}
	meta := make(models.JSON, len(raw))
	for k, v := range raw {
		meta[k] = v
	}
	return meta
}
