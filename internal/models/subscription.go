package models

import (
	"time"
)

// Subscription 租户订阅（每租户单行，懒创建，只由对账激活或显式取消）
type Subscription struct {
	ID        uint      `gorm:"primarykey" json:"id"`                      // 主键
	TenantID  uint      `gorm:"uniqueIndex;not null" json:"tenant_id"`     // 租户ID
	Plan      string    `gorm:"not null" json:"plan"`                      // 当前计划
	Status    string    `gorm:"index;not null" json:"status"`              // 状态（active/trial/cancelled）
	Gateway   string    `json:"gateway"`                                   // 最近一次支付网关
	RenewDate time.Time `gorm:"index" json:"renew_date"`                   // 续费日期
	Amount    Money     `gorm:"type:decimal(20,2);not null" json:"amount"` // 最近一次支付金额
	Currency  string    `gorm:"not null" json:"currency"`                  // 币种
	CreatedAt time.Time `json:"created_at"`                                // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}
