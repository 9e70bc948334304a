package models

import (
	"time"
)

// Payment 支付流水（仅追加，每次对账成功恰好一条）
type Payment struct {
	ID            uint      `gorm:"primarykey" json:"id"`                      // 主键
	TenantID      uint      `gorm:"index;not null" json:"tenant_id"`           // 租户ID
	OrderID       string    `gorm:"index;size:64;not null" json:"order_id"`    // 订单号
	Amount        Money     `gorm:"type:decimal(20,2);not null" json:"amount"` // 网关确认的折后金额
	Currency      string    `gorm:"not null" json:"currency"`                  // 币种
	Gateway       string    `gorm:"index;not null" json:"gateway"`             // 支付网关
	Status        string    `gorm:"index;not null" json:"status"`              // 支付状态
	TransactionID string    `gorm:"index" json:"transaction_id"`               // 网关侧流水号
	Plan          string    `gorm:"not null" json:"plan"`                      // 订阅计划
	Metadata      JSON      `gorm:"type:json" json:"metadata"`                 // 网关回调原始数据
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                   // 创建时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
