package repository

import (
	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/models"
)

// CouponUsageRepository 优惠券核销记录数据访问接口
type CouponUsageRepository interface {
	Create(usage *models.CouponUsage) error
	CountByCouponUser(couponID, userID uint) (int64, error)
	GetByOrderID(orderID string) (*models.CouponUsage, error)
	ListByCoupon(couponID uint, offset, limit int) ([]models.CouponUsage, int64, error)
	WithTx(tx *gorm.DB) CouponUsageRepository
}

// GormCouponUsageRepository 基于GORM的核销记录仓储实现
type GormCouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建核销记录仓储
func NewCouponUsageRepository(db *gorm.DB) CouponUsageRepository {
	return &GormCouponUsageRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormCouponUsageRepository) WithTx(tx *gorm.DB) CouponUsageRepository {
	return &GormCouponUsageRepository{db: tx}
}

// Create 创建核销记录（OrderID 唯一约束兜底重复写入）
func (r *GormCouponUsageRepository) Create(usage *models.CouponUsage) error {
	return r.db.Create(usage).Error
}

// CountByCouponUser 统计某用户对某优惠券的核销次数
func (r *GormCouponUsageRepository) CountByCouponUser(couponID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

// GetByOrderID 根据订单号查询核销记录
func (r *GormCouponUsageRepository) GetByOrderID(orderID string) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := r.db.Where("order_id = ?", orderID).First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// ListByCoupon 分页查询某优惠券的核销记录
func (r *GormCouponUsageRepository) ListByCoupon(couponID uint, offset, limit int) ([]models.CouponUsage, int64, error) {
	var usages []models.CouponUsage
	var total int64

	query := r.db.Model(&models.CouponUsage{}).Where("coupon_id = ?", couponID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("used_at DESC").Offset(offset).Limit(limit).Find(&usages).Error
	return usages, total, err
}
