package models

import (
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                      // 主键
	Code           string         `gorm:"uniqueIndex;size:64;not null" json:"code"`                  // 优惠码（存储为大写）
	Type           string         `gorm:"not null" json:"type"`                                      // 类型（percentage/fixed/free_trial）
	Value          Money          `gorm:"type:decimal(20,2);not null" json:"value"`                  // 数值（百分比或固定金额）
	TargetPlans    StringArray    `gorm:"type:text" json:"target_plans"`                             // 适用计划集合（可含 all）
	MinAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_amount"`   // 使用门槛
	MaxDiscount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount"` // 最大优惠金额（0 表示不限制）
	ValidFrom      *time.Time     `gorm:"index" json:"valid_from"`                                   // 生效时间
	ValidUntil     *time.Time     `gorm:"index" json:"valid_until"`                                  // 失效时间
	MaxUses        int            `gorm:"not null;default:0" json:"max_uses"`                        // 总使用上限（0 表示不限制）
	UsedCount      int            `gorm:"not null;default:0" json:"used_count"`                      // 已使用次数
	MaxUsesPerUser int            `gorm:"not null;default:0" json:"max_uses_per_user"`               // 每人使用上限（0 表示不限制）
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`                    // 是否启用
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}
