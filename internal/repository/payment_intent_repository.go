package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/constants"
	"github.com/herdbook/paycore/internal/models"
)

// PaymentIntentRepository 支付意向数据访问接口
type PaymentIntentRepository interface {
	Create(intent *models.PaymentIntent) error
	GetByOrderID(orderID string) (*models.PaymentIntent, error)
	// MarkCompleted 条件更新：仅当意向仍为 pending 时置为 completed。
	// 返回 true 表示本次调用赢得了状态转换，false 表示已有其他回调先行完成。
	MarkCompleted(orderID string, completedAt time.Time) (bool, error)
	MarkFailed(orderID string) (bool, error)
	List(offset, limit int, tenantID uint, status string) ([]models.PaymentIntent, int64, error)
	WithTx(tx *gorm.DB) PaymentIntentRepository
}

// GormPaymentIntentRepository 基于GORM的支付意向仓储实现
type GormPaymentIntentRepository struct {
	db *gorm.DB
}

// NewPaymentIntentRepository 创建支付意向仓储
func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &GormPaymentIntentRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormPaymentIntentRepository) WithTx(tx *gorm.DB) PaymentIntentRepository {
	return &GormPaymentIntentRepository{db: tx}
}

// Create 创建支付意向
func (r *GormPaymentIntentRepository) Create(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

// GetByOrderID 根据订单号查询支付意向
func (r *GormPaymentIntentRepository) GetByOrderID(orderID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("order_id = ?", orderID).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// MarkCompleted 将 pending 意向置为 completed（并发安全的单行条件更新）
func (r *GormPaymentIntentRepository) MarkCompleted(orderID string, completedAt time.Time) (bool, error) {
	result := r.db.Model(&models.PaymentIntent{}).
		Where("order_id = ? AND status = ?", orderID, constants.IntentStatusPending).
		Updates(map[string]interface{}{
			"status":       constants.IntentStatusCompleted,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkFailed 将 pending 意向置为 failed
func (r *GormPaymentIntentRepository) MarkFailed(orderID string) (bool, error) {
	result := r.db.Model(&models.PaymentIntent{}).
		Where("order_id = ? AND status = ?", orderID, constants.IntentStatusPending).
		Update("status", constants.IntentStatusFailed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// List 分页查询支付意向（管理端）
func (r *GormPaymentIntentRepository) List(offset, limit int, tenantID uint, status string) ([]models.PaymentIntent, int64, error) {
	var intents []models.PaymentIntent
	var total int64

	query := r.db.Model(&models.PaymentIntent{})
	if tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&intents).Error
	return intents, total, err
}
