package models

import (
	"time"
)

// CouponUsage 优惠券核销记录
//
// OrderID 唯一索引保证每个订单至多一条核销记录，是回调幂等的结构性保障；
// 只在对账成功时写入，未完成的结账不消耗配额。
type CouponUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	CouponID       uint      `gorm:"index;not null" json:"coupon_id"`                              // 优惠券ID
	TenantID       uint      `gorm:"index;not null" json:"tenant_id"`                              // 租户ID
	UserID         uint      `gorm:"index;not null" json:"user_id"`                                // 用户ID
	OrderID        string    `gorm:"uniqueIndex;size:64;not null" json:"order_id"`                 // 订单号
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	UsedAt         time.Time `gorm:"index" json:"used_at"`                                         // 核销时间
}

// TableName 指定表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}
