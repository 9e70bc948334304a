package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/herdbook/paycore/internal/models"
)

// SubscriptionRepository 订阅数据访问接口
type SubscriptionRepository interface {
	GetByTenantID(tenantID uint) (*models.Subscription, error)
	// Upsert 按租户ID插入或更新订阅（每租户单行）
	Upsert(sub *models.Subscription) error
	UpdateStatus(tenantID uint, status string) error
	WithTx(tx *gorm.DB) SubscriptionRepository
}

// GormSubscriptionRepository 基于GORM的订阅仓储实现
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository 创建订阅仓储
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormSubscriptionRepository) WithTx(tx *gorm.DB) SubscriptionRepository {
	return &GormSubscriptionRepository{db: tx}
}

// GetByTenantID 根据租户ID查询订阅
func (r *GormSubscriptionRepository) GetByTenantID(tenantID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("tenant_id = ?", tenantID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert 按租户ID插入或更新订阅
func (r *GormSubscriptionRepository) Upsert(sub *models.Subscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan", "status", "gateway", "renew_date", "amount", "currency", "updated_at",
		}),
	}).Create(sub).Error
}

// UpdateStatus 更新订阅状态
func (r *GormSubscriptionRepository) UpdateStatus(tenantID uint, status string) error {
	return r.db.Model(&models.Subscription{}).
		Where("tenant_id = ?", tenantID).
		Update("status", status).Error
}
