package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/logger"
	"github.com/herdbook/paycore/internal/models"
	"github.com/herdbook/paycore/internal/repository"
)

// SubscriptionService 订阅查询与取消
//
// 激活只发生在回调对账事务内，这里不提供激活入口。
type SubscriptionService struct {
	subRepo repository.SubscriptionRepository
}

// NewSubscriptionService 创建订阅服务
func NewSubscriptionService(subRepo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo}
}

// Get 查询租户订阅
func (s *SubscriptionService) Get(tenantID uint) (*models.Subscription, error) {
	sub, err := s.subRepo.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// Cancel 取消租户订阅（记录保留，状态置为 cancelled）
func (s *SubscriptionService) Cancel(tenantID uint) error {
	if _, err := s.subRepo.GetByTenantID(tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if err := s.subRepo.UpdateStatus(tenantID, constants.SubscriptionStatusCancelled); err != nil {
		return err
	}
	logger.Infow("subscription_cancelled", "tenant_id", tenantID)
	return nil
}
