package models

import (
	"time"
)

// PaymentIntent 支付意向
//
// 状态机：pending -> completed 或 pending -> failed，两者均为终态；
// completed 转换只能由回调对账的条件更新完成，保证并发下恰好一次。
type PaymentIntent struct {
	ID             uint       `gorm:"primarykey" json:"id"`                            // 主键
	OrderID        string     `gorm:"uniqueIndex;size:64;not null" json:"order_id"`    // 全局唯一订单号（对网关不透明）
	TenantID       uint       `gorm:"index;not null" json:"tenant_id"`                 // 租户ID
	UserID         uint       `gorm:"index;not null" json:"user_id"`                   // 发起用户ID
	Plan           string     `gorm:"not null" json:"plan"`                            // 订阅计划
	Gateway        string     `gorm:"index;not null" json:"gateway"`                   // 支付网关
	Amount         Money      `gorm:"type:decimal(20,2);not null" json:"amount"`       // 应付金额（折后）
	OriginalAmount Money      `gorm:"type:decimal(20,2);not null" json:"original_amount"` // 原价
	DiscountAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	CouponCode     string     `gorm:"size:64" json:"coupon_code"`                      // 使用的优惠码（规范化大写）
	CouponID       *uint      `gorm:"index" json:"coupon_id"`                          // 优惠券ID
	Currency       string     `gorm:"not null" json:"currency"`                        // 币种
	Status         string     `gorm:"index;not null" json:"status"`                    // 状态（pending/completed/failed）
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                      // 更新时间
	CompletedAt    *time.Time `json:"completed_at"`                                    // 完成时间
}

// TableName 指定表名
func (PaymentIntent) TableName() string {
	return "payment_intents"
}
