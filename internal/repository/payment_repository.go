package repository

import (
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/models"
)

// PaymentRepository 支付流水数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	CountByOrderID(orderID string) (int64, error)
	ListByOrderID(orderID string) ([]models.Payment, error)
	List(offset, limit int, tenantID uint, gateway string) ([]models.Payment, int64, error)
	WithTx(tx *gorm.DB) PaymentRepository
}

// GormPaymentRepository 基于GORM的支付流水仓储实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付流水仓储
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付流水
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// CountByOrderID 统计某订单的流水数
func (r *GormPaymentRepository) CountByOrderID(orderID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// ListByOrderID 查询某订单的全部流水
func (r *GormPaymentRepository) ListByOrderID(orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// List 分页查询支付流水（管理端）
func (r *GormPaymentRepository) List(offset, limit int, tenantID uint, gateway string) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := r.db.Model(&models.Payment{})
	if tenantID > 0 {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if gateway != "" {
		query = query.Where("gateway = ?", gateway)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, total, err
}
