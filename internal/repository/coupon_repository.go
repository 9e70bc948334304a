package repository

import (
	"strings"

	"gorm.io/gorm"

	"github.com/herdbook/paycore/internal/models"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	GetByID(id uint) (*models.Coupon, error)
	GetByCode(code string) (*models.Coupon, error)
	// IncrementUsage 条件自增已用次数：仅当未达总上限时生效。
	// 返回 false 表示配额已被并发订单抢完。
	IncrementUsage(id uint) (bool, error)
	List(offset, limit int, activeOnly bool) ([]models.Coupon, int64, error)
	Delete(id uint) error
	WithTx(tx *gorm.DB) CouponRepository
}

// GormCouponRepository 基于GORM的优惠券仓储实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储
func (r *GormCouponRepository) WithTx(tx *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: tx}
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	return r.db.Create(coupon).Error
}

// Update 更新优惠券
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// GetByID 根据ID查询优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.First(&coupon, id).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据优惠码查询（大小写不敏感，规范化为大写后匹配）
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	normalized := strings.ToUpper(strings.TrimSpace(code))
	err := r.db.Where("code = ?", normalized).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage 条件自增已用次数（并发安全）
func (r *GormCouponRepository) IncrementUsage(id uint) (bool, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND (max_uses = 0 OR used_count < max_uses)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// List 分页查询优惠券（管理端）
func (r *GormCouponRepository) List(offset, limit int, activeOnly bool) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	var total int64

	query := r.db.Model(&models.Coupon{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&coupons).Error
	return coupons, total, err
}

// Delete 软删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}
